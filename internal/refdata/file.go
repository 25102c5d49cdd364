package refdata

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/commutewatch-data/pkg/transit/models"
)

// FileProvider serves reference data from a YAML network definition. Used for
// local deployments and tests where the shared database is not available.
type FileProvider struct {
	stations map[string]models.Station
	hubs     map[string][]string
	lines    map[string]models.Line
}

type networkFile struct {
	UpdatedAt time.Time     `yaml:"updated_at"`
	Stations  []stationNode `yaml:"stations"`
	Lines     []lineNode    `yaml:"lines"`
}

type stationNode struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Lat     float64  `yaml:"lat"`
	Lon     float64  `yaml:"lon"`
	Lines   []string `yaml:"lines"`
	HubID   string   `yaml:"hub_id,omitempty"`
	HubName string   `yaml:"hub_name,omitempty"`
}

type lineNode struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Mode     string        `yaml:"mode"`
	Variants []variantNode `yaml:"variants"`
}

type variantNode struct {
	Name      string   `yaml:"name"`
	Direction string   `yaml:"direction"`
	Stations  []string `yaml:"stations"`
}

// LoadFile parses a YAML network definition into a FileProvider.
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	return ParseNetwork(data)
}

// ParseNetwork builds a FileProvider from YAML bytes.
func ParseNetwork(data []byte) (*FileProvider, error) {
	var file networkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing network file: %w", err)
	}

	p := &FileProvider{
		stations: make(map[string]models.Station),
		hubs:     make(map[string][]string),
		lines:    make(map[string]models.Line),
	}

	for _, s := range file.Stations {
		station := models.Station{
			StationID: s.ID,
			Name:      s.Name,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Lines:     s.Lines,
			HubID:     s.HubID,
			HubName:   s.HubName,
			UpdatedAt: file.UpdatedAt,
		}
		p.stations[s.ID] = station
		if s.HubID != "" {
			p.hubs[s.HubID] = append(p.hubs[s.HubID], s.ID)
		}
	}

	for _, l := range file.Lines {
		line := models.Line{
			LineID:    l.ID,
			Name:      l.Name,
			Mode:      l.Mode,
			UpdatedAt: file.UpdatedAt,
		}
		for _, v := range l.Variants {
			line.Variants = append(line.Variants, models.RouteVariant{
				Name:      v.Name,
				Direction: v.Direction,
				Stations:  v.Stations,
			})
		}
		p.lines[l.ID] = line
	}

	return p, nil
}

func (p *FileProvider) Station(_ context.Context, stationID string) (models.Station, error) {
	station, ok := p.stations[stationID]
	if !ok {
		return models.Station{}, fmt.Errorf("station %s: %w", stationID, ErrNotFound)
	}
	return station, nil
}

func (p *FileProvider) HubStations(_ context.Context, hubID string) ([]models.Station, error) {
	ids, ok := p.hubs[hubID]
	if !ok {
		return nil, fmt.Errorf("hub %s: %w", hubID, ErrNotFound)
	}
	stations := make([]models.Station, 0, len(ids))
	for _, id := range ids {
		stations = append(stations, p.stations[id])
	}
	return stations, nil
}

func (p *FileProvider) Line(_ context.Context, lineID string) (models.Line, error) {
	line, ok := p.lines[lineID]
	if !ok {
		return models.Line{}, fmt.Errorf("line %s: %w", lineID, ErrNotFound)
	}
	return line, nil
}
