// internal/funnel/session/store.go
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// Store persists funnel sessions and step events in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert creates a new session row. Attribution is captured here once
// and never updated afterwards.
func (s *Store) Insert(ctx context.Context, sess *models.FunnelSession) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	formData, err := json.Marshal(sess.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}

	query := `
		INSERT INTO funnel_sessions (
			id, session_id, funnel_type, current_step, completed_steps,
			form_data, email, started_at,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			referrer, fbclid, fbc, fbp,
			hsa_acc, hsa_cam, hsa_grp, hsa_ad, hsa_src, hsa_net, hsa_ver
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24
		)`

	a := sess.Attribution
	_, err = s.db.ExecContext(ctx, query,
		sess.ID, sess.SessionID, sess.FunnelType, sess.CurrentStep,
		pq.Array(sess.CompletedSteps), formData, nullable(sess.Email), sess.StartedAt,
		nullable(a.UTMSource), nullable(a.UTMMedium), nullable(a.UTMCampaign),
		nullable(a.UTMTerm), nullable(a.UTMContent),
		nullable(a.Referrer), nullable(a.FBClid), nullable(a.FBC), nullable(a.FBP),
		nullable(a.HSAAcc), nullable(a.HSACam), nullable(a.HSAGrp), nullable(a.HSAAd),
		nullable(a.HSASrc), nullable(a.HSANet), nullable(a.HSAVer),
	)
	if err != nil {
		return fmt.Errorf("insert funnel session: %w", err)
	}
	return nil
}

// Exists reports whether a session row exists for the external session ID.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM funnel_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify funnel session: %w", err)
	}
	return true, nil
}

// UpdateProgress records the new current step, the completed-steps set
// and a snapshot of the draft.
func (s *Store) UpdateProgress(ctx context.Context, sessionID string, currentStep int, completedSteps []int, formData *models.DraftRecord) error {
	data, err := json.Marshal(formData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE funnel_sessions
		 SET current_step = $2, completed_steps = $3, form_data = $4
		 WHERE session_id = $1`,
		sessionID, currentStep, pq.Array(completedSteps), data,
	)
	if err != nil {
		return fmt.Errorf("update funnel progress: %w", err)
	}
	return nil
}

// UpdateEmail attaches the captured email to the session.
func (s *Store) UpdateEmail(ctx context.Context, sessionID, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE funnel_sessions SET email = $2 WHERE session_id = $1`,
		sessionID, email,
	)
	if err != nil {
		return fmt.Errorf("update funnel email: %w", err)
	}
	return nil
}

// MarkCompleted stamps completed_at.
func (s *Store) MarkCompleted(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE funnel_sessions SET completed_at = $2 WHERE session_id = $1`,
		sessionID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("complete funnel session: %w", err)
	}
	return nil
}

// MarkAbandoned stamps abandoned_at.
func (s *Store) MarkAbandoned(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE funnel_sessions SET abandoned_at = $2 WHERE session_id = $1`,
		sessionID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("abandon funnel session: %w", err)
	}
	return nil
}

// InsertEvent appends one step event row.
func (s *Store) InsertEvent(ctx context.Context, event *models.FunnelEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	var timeOnStep interface{}
	if event.TimeOnStepMs > 0 {
		timeOnStep = event.TimeOnStepMs
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO funnel_events (
			id, session_id, funnel_type, step_number, step_name,
			event_type, time_on_step_ms, page_url, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.SessionID, event.FunnelType, event.StepNumber,
		event.StepName, event.EventType, timeOnStep, event.PageURL, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert funnel event: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
