// internal/funnel/submission/inquiries.go
package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// InquiryStore persists lead inquiries in the renoassist_inquiries
// table, our system of record independent of the remote lead API.
type InquiryStore struct {
	db *sql.DB
}

func NewInquiryStore(db *sql.DB) *InquiryStore {
	return &InquiryStore{db: db}
}

// Insert writes a new inquiry row and returns its ID. New rows start
// unsynced with status "submitted".
func (s *InquiryStore) Insert(ctx context.Context, inquiry *models.Inquiry) (string, error) {
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inquiry.CreatedAt = now
	inquiry.UpdatedAt = now
	if inquiry.Status == "" {
		inquiry.Status = "submitted"
	}

	answers, err := json.Marshal(inquiry.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}

	var details interface{}
	if inquiry.AdditionalDetails != "" {
		details = inquiry.AdditionalDetails
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO renoassist_inquiries (
			id, created_at, updated_at, homeowner_name, email, phone,
			city, postal_code, geo_lat, geo_lng, answers, urgency,
			has_design, additional_details, category, xano_synced, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		inquiry.ID, inquiry.CreatedAt, inquiry.UpdatedAt,
		inquiry.HomeownerName, inquiry.Email, inquiry.Phone,
		inquiry.City, inquiry.PostalCode, inquiry.GeoLat, inquiry.GeoLng,
		answers, inquiry.Urgency, inquiry.HasDesign, details,
		inquiry.Category, inquiry.XanoSynced, inquiry.Status,
	)
	if err != nil {
		return "", fmt.Errorf("insert inquiry: %w", err)
	}

	return inquiry.ID, nil
}

// MarkSynced records the outcome of the remote lead API call.
func (s *InquiryStore) MarkSynced(ctx context.Context, inquiryID string, synced bool, response json.RawMessage) error {
	var resp interface{}
	if len(response) > 0 {
		resp = []byte(response)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE renoassist_inquiries
		 SET xano_synced = $2, xano_response = $3, updated_at = $4
		 WHERE id = $1`,
		inquiryID, synced, resp, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update inquiry sync status: %w", err)
	}
	return nil
}
