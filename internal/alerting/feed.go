package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/commutewatch-data/internal/common/config"
	"github.com/commutewatch-data/internal/common/logger"
	"github.com/commutewatch-data/pkg/transit/models"
)

const userAgent = "commutewatch-data/1.0"

// Fetcher supplies the current disruption list. The feed is pull-based and
// re-fetched whole each cycle.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Disruption, error)
}

// HTTPFetcher reads a JSON disruption feed.
type HTTPFetcher struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

type feedDisruption struct {
	Line     string        `json:"line"`
	Mode     string        `json:"mode"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason"`
	Sections []feedSection `json:"affected_sections,omitempty"`
}

type feedSection struct {
	Name     string   `json:"name"`
	Stations []string `json:"stations"`
}

func NewHTTPFetcher(cfg config.FeedConfig, log logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]models.Disruption, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching disruption feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("disruption feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed response: %w", err)
	}

	var raw []feedDisruption
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing feed response: %w", err)
	}

	disruptions := make([]models.Disruption, 0, len(raw))
	for _, d := range raw {
		disruption := models.Disruption{
			LineID: d.Line,
			Mode:   d.Mode,
			Status: d.Status,
			Reason: d.Reason,
		}
		for _, s := range d.Sections {
			disruption.Sections = append(disruption.Sections, models.AffectedSection{
				Name:       s.Name,
				StationIDs: s.Stations,
			})
		}
		disruptions = append(disruptions, disruption)
	}

	f.logger.Debug("Fetched disruption feed",
		"disruptions", len(disruptions),
		"duration", time.Since(start))

	return disruptions, nil
}
