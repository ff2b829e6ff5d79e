package xano

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "github.com/jackhunterking/renoassist-forms/internal/common/http"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// LeadPayload is the wire shape the Xano lead API accepts.
type LeadPayload struct {
	Category          int                   `json:"category"`
	HomeownerName     string                `json:"homeownerName"`
	Email             string                `json:"email"`
	Phone             string                `json:"phone"`
	PostalCode        string                `json:"postalCode"`
	City              string                `json:"city"`
	Urgency           string                `json:"urgency"`
	HasDesign         bool                  `json:"hasDesign"`
	AdditionalDetails string                `json:"additionalDetails"`
	Answers           []models.ScoredAnswer `json:"answers"`
	GeoPoint          models.GeoPoint       `json:"geoPoint"`
}

type Client struct {
	endpoint   string
	httpClient *commonhttp.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: commonhttp.NewClient(timeout),
	}
}

// CreateProject submits a lead to the Xano project-create endpoint and
// returns the raw response body on success.
func (c *Client) CreateProject(ctx context.Context, payload *LeadPayload) (json.RawMessage, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("lead API error (status %d): %s", resp.StatusCode, string(body))
	}

	return json.RawMessage(body), nil
}
