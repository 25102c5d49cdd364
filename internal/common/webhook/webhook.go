package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/commutewatch-data/pkg/transit/models"
)

// AlertPayload is the JSON body posted for one route's matched disruptions.
type AlertPayload struct {
	RouteID          uuid.UUID          `json:"route_id"`
	UserID           uuid.UUID          `json:"user_id"`
	RouteName        string             `json:"route_name"`
	Disruptions      []DisruptionDetail `json:"disruptions"`
	AffectedSegments []int              `json:"affected_segments,omitempty"`
	AffectedStations []string           `json:"affected_stations,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}

type DisruptionDetail struct {
	Line   string `json:"line"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Dispatch posts the matched disruption set for a route. A client with no
// webhook URL configured is a no-op.
func (c *Client) Dispatch(ctx context.Context, route models.UserRoute, result models.MatchResult) error {
	if c.webhookURL == "" {
		return nil
	}

	payload := AlertPayload{
		RouteID:          route.RouteID,
		UserID:           route.UserID,
		RouteName:        route.Name,
		AffectedSegments: result.AffectedSegments,
		AffectedStations: result.AffectedStations,
		Timestamp:        time.Now().UTC(),
	}
	for _, d := range result.Disruptions {
		payload.Disruptions = append(payload.Disruptions, DisruptionDetail{
			Line:   d.LineID,
			Status: d.Status,
			Reason: d.Reason,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status: %d", resp.StatusCode)
	}

	return nil
}
