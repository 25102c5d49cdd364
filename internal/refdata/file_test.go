package refdata

import (
	"context"
	"errors"
	"testing"
)

const testNetwork = `
updated_at: 2026-02-01T00:00:00Z
stations:
  - id: S1
    name: First
    lat: 51.5
    lon: -0.1
    lines: [victoria]
  - id: S2
    name: Second Rail
    lines: [mainline]
    hub_id: HUB1
    hub_name: Second
  - id: S3
    name: Second Underground
    lines: [victoria]
    hub_id: HUB1
    hub_name: Second
lines:
  - id: victoria
    name: Victoria
    mode: tube
    variants:
      - name: full
        direction: outbound
        stations: [S1, S3]
      - name: full
        direction: inbound
        stations: [S3, S1]
`

func TestParseNetwork(t *testing.T) {
	p, err := ParseNetwork([]byte(testNetwork))
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	ctx := context.Background()

	station, err := p.Station(ctx, "S1")
	if err != nil {
		t.Fatalf("Station: %v", err)
	}
	if station.Name != "First" || station.Lat != 51.5 || !station.ServesLine("victoria") {
		t.Errorf("unexpected station: %+v", station)
	}
	if station.UpdatedAt.IsZero() {
		t.Error("expected the file timestamp on the station")
	}

	hub, err := p.HubStations(ctx, "HUB1")
	if err != nil {
		t.Fatalf("HubStations: %v", err)
	}
	if len(hub) != 2 {
		t.Fatalf("expected 2 hub stations, got %d", len(hub))
	}

	line, err := p.Line(ctx, "victoria")
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	if line.Mode != "tube" || len(line.Variants) != 2 {
		t.Errorf("unexpected line: %+v", line)
	}
	if line.Variants[0].Direction != "outbound" || len(line.Variants[0].Stations) != 2 {
		t.Errorf("unexpected variant: %+v", line.Variants[0])
	}
}

func TestFileProviderNotFound(t *testing.T) {
	p, err := ParseNetwork([]byte(testNetwork))
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	ctx := context.Background()

	if _, err := p.Station(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for station, got %v", err)
	}
	if _, err := p.HubStations(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for hub, got %v", err)
	}
	if _, err := p.Line(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for line, got %v", err)
	}
}

func TestParseNetworkRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseNetwork([]byte("stations: {oops")); err == nil {
		t.Error("expected a parse error")
	}
}
