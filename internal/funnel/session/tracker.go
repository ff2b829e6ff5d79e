// Package session tracks funnel sessions and step events. Tracking is
// never load-bearing: every write is best-effort and a dead database
// must not stop a homeowner mid-funnel.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// SessionStore is the durable session sink.
type SessionStore interface {
	Insert(ctx context.Context, sess *models.FunnelSession) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	UpdateProgress(ctx context.Context, sessionID string, currentStep int, completedSteps []int, formData *models.DraftRecord) error
	UpdateEmail(ctx context.Context, sessionID, email string) error
	MarkCompleted(ctx context.Context, sessionID string) error
	MarkAbandoned(ctx context.Context, sessionID string) error
	InsertEvent(ctx context.Context, event *models.FunnelEvent) error
}

// EventIndexer is the analytics sink for step events.
type EventIndexer interface {
	IndexEvent(ctx context.Context, event *models.FunnelEvent) error
}

type Tracker struct {
	store     SessionStore
	analytics EventIndexer
	log       logger.Logger
}

// NewTracker creates a session tracker. analytics may be nil when no
// Elasticsearch cluster is configured.
func NewTracker(store SessionStore, analytics EventIndexer, log logger.Logger) *Tracker {
	return &Tracker{
		store:     store,
		analytics: analytics,
		log:       log,
	}
}

// NewSessionID builds an external session identifier.
func NewSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

// Init resumes an existing session or starts a new one. A claimed
// session ID is verified against the store; if the store is down the
// claim is trusted so the user is not forced into a fresh session.
// Attribution is only captured for brand-new sessions.
func (t *Tracker) Init(ctx context.Context, funnelType models.FunnelType, claimedSessionID string, attribution models.Attribution) string {
	if claimedSessionID != "" {
		exists, err := t.store.Exists(ctx, claimedSessionID)
		if err != nil {
			t.log.Warn("Session verify failed, trusting claimed session", map[string]interface{}{
				"session_id": claimedSessionID,
				"error":      err.Error(),
			})
			return claimedSessionID
		}
		if exists {
			return claimedSessionID
		}
	}

	sessionID := NewSessionID()
	sess := &models.FunnelSession{
		SessionID:      sessionID,
		FunnelType:     funnelType,
		CurrentStep:    1,
		CompletedSteps: []int{},
		FormData:       &models.DraftRecord{},
		StartedAt:      time.Now().UTC(),
		Attribution:    attribution,
	}

	if err := t.store.Insert(ctx, sess); err != nil {
		t.log.Error("Failed to create funnel session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	return sessionID
}

// TrackStepEvent records a step event in both sinks.
func (t *Tracker) TrackStepEvent(ctx context.Context, event *models.FunnelEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := t.store.InsertEvent(ctx, event); err != nil {
		t.log.Error("Failed to track step event", map[string]interface{}{
			"session_id": event.SessionID,
			"step":       event.StepNumber,
			"event_type": event.EventType,
			"error":      err.Error(),
		})
	}

	if t.analytics != nil {
		if err := t.analytics.IndexEvent(ctx, event); err != nil {
			t.log.Warn("Failed to index step event", map[string]interface{}{
				"session_id": event.SessionID,
				"step":       event.StepNumber,
				"error":      err.Error(),
			})
		}
	}
}

// UpdateProgress snapshots the draft and completed steps after a step
// completion. currentStep is the step the user has moved to.
func (t *Tracker) UpdateProgress(ctx context.Context, sessionID string, currentStep int, completedSteps []int, record *models.DraftRecord) {
	if err := t.store.UpdateProgress(ctx, sessionID, currentStep, completedSteps, record); err != nil {
		t.log.Error("Failed to update funnel progress", map[string]interface{}{
			"session_id": sessionID,
			"step":       currentStep,
			"error":      err.Error(),
		})
	}
}

// UpdateEmail attaches the email captured at step 8 to the session.
func (t *Tracker) UpdateEmail(ctx context.Context, sessionID, email string) {
	if err := t.store.UpdateEmail(ctx, sessionID, email); err != nil {
		t.log.Error("Failed to update funnel email", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// Complete marks the session converted.
func (t *Tracker) Complete(ctx context.Context, sessionID string) {
	if err := t.store.MarkCompleted(ctx, sessionID); err != nil {
		t.log.Error("Failed to complete funnel session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// Abandon marks the session abandoned.
func (t *Tracker) Abandon(ctx context.Context, sessionID string) {
	if err := t.store.MarkAbandoned(ctx, sessionID); err != nil {
		t.log.Error("Failed to abandon funnel session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
