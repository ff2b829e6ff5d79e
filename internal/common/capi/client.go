// Package capi sends server-side conversion events to the Meta
// Conversions API relay. All sends are best-effort: the relay hashes
// PII and forwards to Meta, and a failed send never fails a lead.
package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "github.com/jackhunterking/renoassist-forms/internal/common/http"

	"github.com/google/uuid"
)

// EventName is a Meta standard event name.
type EventName string

const (
	EventViewContent      EventName = "ViewContent"
	EventInitiateCheckout EventName = "InitiateCheckout"
	EventLead             EventName = "Lead"
)

// UserData carries matching keys for the event. The relay hashes these
// before they leave our infrastructure.
type UserData struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	FBP        string `json:"fbp,omitempty"`
	FBC        string `json:"fbc,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// CustomData carries funnel context attached to the event.
type CustomData struct {
	FunnelType      string `json:"funnel_type,omitempty"`
	ContentName     string `json:"content_name,omitempty"`
	ContentCategory string `json:"content_category,omitempty"`
}

// EventPayload is the wire shape the relay accepts.
type EventPayload struct {
	EventName       EventName   `json:"eventName"`
	EventID         string      `json:"eventId"`
	EventTime       int64       `json:"eventTime"`
	EventSourceURL  string      `json:"eventSourceUrl"`
	UserData        *UserData   `json:"userData,omitempty"`
	CustomData      *CustomData `json:"customData,omitempty"`
	FunnelSessionID string      `json:"funnelSessionId,omitempty"`
}

type Client struct {
	endpointURL string
	accessToken string
	pixelID     string
	httpClient  *commonhttp.Client
}

func NewClient(endpointURL, accessToken, pixelID string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpointURL: endpointURL,
		accessToken: accessToken,
		pixelID:     pixelID,
		httpClient:  commonhttp.NewClient(timeout),
	}
}

// NewEventID builds a deduplication ID unique per session and event.
func NewEventID(sessionID string, name EventName) string {
	return fmt.Sprintf("%s_%s_%d_%s", sessionID, name, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Send posts a single event to the relay.
func (c *Client) Send(ctx context.Context, payload *EventPayload) error {
	if payload.EventTime == 0 {
		payload.EventTime = time.Now().Unix()
	}
	if payload.EventID == "" {
		payload.EventID = NewEventID(payload.FunnelSessionID, payload.EventName)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.pixelID != "" {
		req.Header.Set("X-Pixel-Id", c.pixelID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("conversion relay error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
