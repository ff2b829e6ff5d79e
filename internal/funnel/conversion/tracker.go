// Package conversion pushes funnel milestones to the ad-platform
// conversion sink. Every send is fire-and-forget, and the Lead event
// fires at most once per session no matter how often the confirmation
// flow replays.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackhunterking/renoassist-forms/internal/common/capi"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/metrics"
	"github.com/jackhunterking/renoassist-forms/internal/common/storage"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/session"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

const contentCategory = "renovation_lead"

// EventSender posts one conversion event.
type EventSender interface {
	Send(ctx context.Context, payload *capi.EventPayload) error
}

type Tracker struct {
	funnelType  models.FunnelType
	sender      EventSender
	kv          storage.KV
	sessions    *session.Tracker
	contentName string
	flagTTL     time.Duration
	log         logger.Logger
}

// New creates a conversion tracker. sender may be nil when the
// conversion sink is not configured; all calls become no-ops. flagTTL
// bounds the lifetime of the per-session milestone flags; zero keeps
// them forever.
func New(funnelType models.FunnelType, sender EventSender, kv storage.KV, sessions *session.Tracker, contentName string, flagTTL time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		funnelType:  funnelType,
		sender:      sender,
		kv:          kv,
		sessions:    sessions,
		contentName: contentName,
		flagTTL:     flagTTL,
		log:         log,
	}
}

// ViewContent fires when the user first lands on the funnel.
func (t *Tracker) ViewContent(ctx context.Context, sessionID, sourceURL string) {
	if t.sender == nil {
		return
	}
	if !t.firstFire(ctx, sessionID, "viewcontent") {
		return
	}

	t.send(ctx, &capi.EventPayload{
		EventName:       capi.EventViewContent,
		EventSourceURL:  sourceURL,
		FunnelSessionID: sessionID,
		CustomData:      t.customData(),
	})
}

// InitiateCheckout fires when the email step completes.
func (t *Tracker) InitiateCheckout(ctx context.Context, sessionID, email, sourceURL string) {
	if t.sender == nil {
		return
	}

	t.send(ctx, &capi.EventPayload{
		EventName:       capi.EventInitiateCheckout,
		EventSourceURL:  sourceURL,
		FunnelSessionID: sessionID,
		UserData:        &capi.UserData{Email: email},
		CustomData:      t.customData(),
	})
}

// Lead fires once per session after a successful submission, marks the
// session converted, and drops the per-session milestone flags that
// are no longer needed.
func (t *Tracker) Lead(ctx context.Context, sessionID string, user capi.UserData, sourceURL string) {
	if t.sender != nil && t.firstFire(ctx, sessionID, "lead") {
		t.send(ctx, &capi.EventPayload{
			EventName:       capi.EventLead,
			EventSourceURL:  sourceURL,
			FunnelSessionID: sessionID,
			UserData:        &user,
			CustomData:      t.customData(),
		})
	}

	t.sessions.Complete(ctx, sessionID)

	if err := t.kv.Del(ctx, t.flagKey(sessionID, "viewcontent")); err != nil {
		t.log.Warn("Failed to purge conversion flags", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func (t *Tracker) customData() *capi.CustomData {
	return &capi.CustomData{
		FunnelType:      string(t.funnelType),
		ContentName:     t.contentName,
		ContentCategory: contentCategory,
	}
}

func (t *Tracker) flagKey(sessionID, milestone string) string {
	return fmt.Sprintf("renoassist:%s:capi:%s:%s", t.funnelType, milestone, sessionID)
}

// firstFire flips a per-session milestone flag. A flag store outage
// lets the event through; an occasional duplicate is better than a
// lost conversion.
func (t *Tracker) firstFire(ctx context.Context, sessionID, milestone string) bool {
	key := t.flagKey(sessionID, milestone)

	if _, err := t.kv.Get(ctx, key); err == nil {
		return false
	} else if !errors.Is(err, storage.ErrNotFound) {
		return true
	}

	if err := t.kv.Set(ctx, key, "1", t.flagTTL); err != nil {
		t.log.Warn("Failed to set conversion flag", map[string]interface{}{
			"session_id": sessionID,
			"milestone":  milestone,
			"error":      err.Error(),
		})
	}
	return true
}

func (t *Tracker) send(ctx context.Context, payload *capi.EventPayload) {
	if err := t.sender.Send(ctx, payload); err != nil {
		metrics.FunnelConversionEvents.WithLabelValues(string(t.funnelType), "failed").Inc()
		t.log.Warn("Conversion event dispatch failed", map[string]interface{}{
			"session_id": payload.FunnelSessionID,
			"event_name": payload.EventName,
			"error":      err.Error(),
		})
		return
	}
	metrics.FunnelConversionEvents.WithLabelValues(string(t.funnelType), "sent").Inc()
}
