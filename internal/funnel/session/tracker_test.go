// internal/funnel/session/tracker_test.go
package session

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSessionStore struct {
	inserted    []*models.FunnelSession
	events      []*models.FunnelEvent
	existing    map[string]bool
	failAll     bool
	emails      map[string]string
	completed   []string
	abandoned   []string
	progressFor map[string]int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		existing:    map[string]bool{},
		emails:      map[string]string{},
		progressFor: map[string]int{},
	}
}

func (f *fakeSessionStore) Insert(_ context.Context, sess *models.FunnelSession) error {
	if f.failAll {
		return errors.New("db down")
	}
	f.inserted = append(f.inserted, sess)
	f.existing[sess.SessionID] = true
	return nil
}

func (f *fakeSessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	if f.failAll {
		return false, errors.New("db down")
	}
	return f.existing[sessionID], nil
}

func (f *fakeSessionStore) UpdateProgress(_ context.Context, sessionID string, currentStep int, _ []int, _ *models.DraftRecord) error {
	if f.failAll {
		return errors.New("db down")
	}
	f.progressFor[sessionID] = currentStep
	return nil
}

func (f *fakeSessionStore) UpdateEmail(_ context.Context, sessionID, email string) error {
	if f.failAll {
		return errors.New("db down")
	}
	f.emails[sessionID] = email
	return nil
}

func (f *fakeSessionStore) MarkCompleted(_ context.Context, sessionID string) error {
	if f.failAll {
		return errors.New("db down")
	}
	f.completed = append(f.completed, sessionID)
	return nil
}

func (f *fakeSessionStore) MarkAbandoned(_ context.Context, sessionID string) error {
	if f.failAll {
		return errors.New("db down")
	}
	f.abandoned = append(f.abandoned, sessionID)
	return nil
}

func (f *fakeSessionStore) InsertEvent(_ context.Context, event *models.FunnelEvent) error {
	if f.failAll {
		return errors.New("db down")
	}
	f.events = append(f.events, event)
	return nil
}

type fakeIndexer struct {
	indexed []*models.FunnelEvent
	err     error
}

func (f *fakeIndexer) IndexEvent(_ context.Context, event *models.FunnelEvent) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, event)
	return nil
}

// ==========================
// Session Init Tests
// ==========================

func TestNewSessionID_Format(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, regexp.MustCompile(`^\d{13}-[0-9a-f]{9}$`), id)
	assert.NotEqual(t, id, NewSessionID())
}

func TestTracker_Init_CreatesNewSession(t *testing.T) {
	store := newFakeSessionStore()
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))

	attribution := models.Attribution{UTMSource: "facebook", HSACam: "cam-9"}
	sessionID := tracker.Init(context.Background(), models.FunnelBasement, "", attribution)

	require.NotEmpty(t, sessionID)
	require.Len(t, store.inserted, 1)
	sess := store.inserted[0]
	assert.Equal(t, sessionID, sess.SessionID)
	assert.Equal(t, models.FunnelBasement, sess.FunnelType)
	assert.Equal(t, 1, sess.CurrentStep)
	assert.Empty(t, sess.CompletedSteps)
	assert.Equal(t, attribution, sess.Attribution)
}

func TestTracker_Init_ResumesVerifiedSession(t *testing.T) {
	store := newFakeSessionStore()
	store.existing["sess-known"] = true
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))

	sessionID := tracker.Init(context.Background(), models.FunnelBasement, "sess-known", models.Attribution{})

	assert.Equal(t, "sess-known", sessionID)
	assert.Empty(t, store.inserted, "resuming must not create a new row")
}

func TestTracker_Init_UnknownClaimStartsFresh(t *testing.T) {
	store := newFakeSessionStore()
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))

	sessionID := tracker.Init(context.Background(), models.FunnelBasement, "sess-stale", models.Attribution{})

	assert.NotEqual(t, "sess-stale", sessionID)
	assert.Len(t, store.inserted, 1)
}

func TestTracker_Init_StoreDownTrustsClaim(t *testing.T) {
	store := newFakeSessionStore()
	store.failAll = true
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))

	sessionID := tracker.Init(context.Background(), models.FunnelBasement, "sess-claimed", models.Attribution{})

	assert.Equal(t, "sess-claimed", sessionID)
}

func TestTracker_Init_StoreDownStillReturnsNewID(t *testing.T) {
	store := newFakeSessionStore()
	store.failAll = true
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))

	sessionID := tracker.Init(context.Background(), models.FunnelBasement, "", models.Attribution{})

	assert.NotEmpty(t, sessionID)
}

// ==========================
// Event Tracking Tests
// ==========================

func TestTracker_TrackStepEvent_DualWrite(t *testing.T) {
	store := newFakeSessionStore()
	indexer := &fakeIndexer{}
	tracker := NewTracker(store, indexer, logger.NewTestLogger(t))

	event := &models.FunnelEvent{
		SessionID:  "sess-1",
		FunnelType: models.FunnelBasement,
		StepNumber: 3,
		StepName:   "separate_entrance",
		EventType:  models.EventComplete,
	}
	tracker.TrackStepEvent(context.Background(), event)

	require.Len(t, store.events, 1)
	require.Len(t, indexer.indexed, 1)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.OccurredAt.IsZero())
	assert.Same(t, event, indexer.indexed[0])
}

func TestTracker_TrackStepEvent_IndexFailureIsSwallowed(t *testing.T) {
	store := newFakeSessionStore()
	indexer := &fakeIndexer{err: errors.New("cluster red")}
	tracker := NewTracker(store, indexer, logger.NewTestLogger(t))

	tracker.TrackStepEvent(context.Background(), &models.FunnelEvent{
		SessionID: "sess-1",
		EventType: models.EventView,
	})

	assert.Len(t, store.events, 1)
}

func TestTracker_TrackStepEvent_NilAnalytics(t *testing.T) {
	store := newFakeSessionStore()
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))

	tracker.TrackStepEvent(context.Background(), &models.FunnelEvent{
		SessionID: "sess-1",
		EventType: models.EventBack,
	})

	assert.Len(t, store.events, 1)
}

// ==========================
// Progress / Lifecycle Tests
// ==========================

func TestTracker_ProgressEmailAndLifecycle(t *testing.T) {
	store := newFakeSessionStore()
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))
	ctx := context.Background()

	tracker.UpdateProgress(ctx, "sess-1", 4, []int{1, 2, 3}, &models.DraftRecord{})
	tracker.UpdateEmail(ctx, "sess-1", "homeowner@example.com")
	tracker.Complete(ctx, "sess-1")
	tracker.Abandon(ctx, "sess-2")

	assert.Equal(t, 4, store.progressFor["sess-1"])
	assert.Equal(t, "homeowner@example.com", store.emails["sess-1"])
	assert.Equal(t, []string{"sess-1"}, store.completed)
	assert.Equal(t, []string{"sess-2"}, store.abandoned)
}

func TestTracker_LifecycleFailuresDoNotPanic(t *testing.T) {
	store := newFakeSessionStore()
	store.failAll = true
	tracker := NewTracker(store, nil, logger.NewTestLogger(t))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		tracker.UpdateProgress(ctx, "sess-1", 2, []int{1}, &models.DraftRecord{})
		tracker.UpdateEmail(ctx, "sess-1", "homeowner@example.com")
		tracker.Complete(ctx, "sess-1")
		tracker.Abandon(ctx, "sess-1")
	})
}
