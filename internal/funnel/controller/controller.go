// Package controller drives the step-by-step funnel flow: gated
// navigation, draft patching, and the tracking side effects each move
// produces.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/metrics"
	"github.com/jackhunterking/renoassist-forms/internal/common/storage"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/draft"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/schema"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/session"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

var (
	ErrInvalidStep    = errors.New("STEP_OUT_OF_RANGE")
	ErrStepIncomplete = errors.New("STEP_INCOMPLETE")
)

// ConversionNotifier receives funnel milestones for ad-platform
// tracking. Implementations are fire-and-forget.
type ConversionNotifier interface {
	ViewContent(ctx context.Context, sessionID, sourceURL string)
	InitiateCheckout(ctx context.Context, sessionID, email, sourceURL string)
}

type Controller struct {
	funnelType  models.FunnelType
	drafts      *draft.Store
	tracker     *session.Tracker
	kv          storage.KV
	conversions ConversionNotifier
	sessionTTL  time.Duration
	log         logger.Logger
}

// New creates a funnel controller. conversions may be nil. sessionTTL
// bounds the lifetime of the per-session view and completion flags;
// zero keeps them until StartOver.
func New(funnelType models.FunnelType, drafts *draft.Store, tracker *session.Tracker, kv storage.KV, conversions ConversionNotifier, sessionTTL time.Duration, log logger.Logger) *Controller {
	return &Controller{
		funnelType:  funnelType,
		drafts:      drafts,
		tracker:     tracker,
		kv:          kv,
		conversions: conversions,
		sessionTTL:  sessionTTL,
		log:         log,
	}
}

// EnterResult reports where the user actually landed.
type EnterResult struct {
	Step       int                 `json:"step"`
	Redirected bool                `json:"redirected"`
	Record     *models.DraftRecord `json:"record"`
}

// Enter resolves a page visit. Deep links past the furthest earned
// step are clamped back, and the view event fires once per step per
// session no matter how often the page reloads.
func (c *Controller) Enter(ctx context.Context, sessionID string, requested int, pageURL string) *EnterResult {
	record := c.drafts.Load(ctx, sessionID)
	step := schema.EntryStep(record, requested)

	if c.firstView(ctx, sessionID, step) {
		c.tracker.TrackStepEvent(ctx, &models.FunnelEvent{
			SessionID:  sessionID,
			FunnelType: c.funnelType,
			StepNumber: step,
			StepName:   schema.StepName(step),
			EventType:  models.EventView,
			PageURL:    pageURL,
		})
		metrics.FunnelStepViews.WithLabelValues(string(c.funnelType), strconv.Itoa(step)).Inc()

		if step == schema.FirstStep && c.conversions != nil {
			c.conversions.ViewContent(ctx, sessionID, pageURL)
		}
	}

	return &EnterResult{
		Step:       step,
		Redirected: step != requested,
		Record:     record,
	}
}

// AdvanceResult is the outcome of a successful step completion.
type AdvanceResult struct {
	NextStep int                 `json:"nextStep"`
	Record   *models.DraftRecord `json:"record"`
}

// Advance applies the step's answers and moves forward. The patch is
// persisted even when the gate then fails, so partial input survives a
// refresh. Steps 1 through 8 advance here; step 9 ends in submission.
func (c *Controller) Advance(ctx context.Context, sessionID string, step int, patch models.DraftPatch, timeOnStepMs int64, pageURL string) (*AdvanceResult, error) {
	if step < schema.FirstStep || step >= schema.LastStep {
		return nil, fmt.Errorf("%w: step %d", ErrInvalidStep, step)
	}

	record := c.drafts.Update(ctx, sessionID, patch)

	if !schema.IsStepComplete(record, step) {
		return nil, fmt.Errorf("%w: step %d", ErrStepIncomplete, step)
	}

	completed := c.markCompleted(ctx, sessionID, step)

	c.tracker.TrackStepEvent(ctx, &models.FunnelEvent{
		SessionID:    sessionID,
		FunnelType:   c.funnelType,
		StepNumber:   step,
		StepName:     schema.StepName(step),
		EventType:    models.EventComplete,
		TimeOnStepMs: timeOnStepMs,
		PageURL:      pageURL,
	})
	metrics.FunnelStepCompletions.WithLabelValues(string(c.funnelType), strconv.Itoa(step)).Inc()

	nextStep := step + 1
	c.tracker.UpdateProgress(ctx, sessionID, nextStep, completed, record)

	if step == 8 {
		c.tracker.UpdateEmail(ctx, sessionID, record.Email)
		if c.conversions != nil {
			c.conversions.InitiateCheckout(ctx, sessionID, record.Email, pageURL)
		}
	}

	return &AdvanceResult{
		NextStep: nextStep,
		Record:   record,
	}, nil
}

// Back steps the view one page earlier. Answers are kept, nothing is
// re-validated and nothing is tracked; moving back is a pure view
// transition.
func (c *Controller) Back(fromStep int) int {
	prev := fromStep - 1
	if prev < schema.FirstStep {
		prev = schema.FirstStep
	}
	return prev
}

// Abandon records that the user walked away at a step.
func (c *Controller) Abandon(ctx context.Context, sessionID string, step int, pageURL string) {
	c.tracker.TrackStepEvent(ctx, &models.FunnelEvent{
		SessionID:  sessionID,
		FunnelType: c.funnelType,
		StepNumber: step,
		StepName:   schema.StepName(step),
		EventType:  models.EventAbandon,
		PageURL:    pageURL,
	})
	c.tracker.Abandon(ctx, sessionID)
}

// StartOver wipes the draft and all per-session flags so the funnel
// restarts from a clean step 1 under the same session.
func (c *Controller) StartOver(ctx context.Context, sessionID string) {
	c.drafts.Reset(ctx, sessionID)

	keys := []string{completedKey(c.funnelType, sessionID)}
	for step := schema.FirstStep; step <= schema.LastStep; step++ {
		keys = append(keys, viewedKey(c.funnelType, sessionID, step))
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		c.log.Warn("Failed to clear funnel flags", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	c.tracker.UpdateProgress(ctx, sessionID, schema.FirstStep, []int{}, &models.DraftRecord{})
}

// CompletedSteps returns the set of steps this session has completed,
// in ascending order.
func (c *Controller) CompletedSteps(ctx context.Context, sessionID string) []int {
	return c.loadCompleted(ctx, sessionID)
}

// Draft returns the session's current draft without tracking a view.
func (c *Controller) Draft(ctx context.Context, sessionID string) *models.DraftRecord {
	return c.drafts.Load(ctx, sessionID)
}

func viewedKey(funnelType models.FunnelType, sessionID string, step int) string {
	return fmt.Sprintf("renoassist:%s:viewed:%s:%d", funnelType, sessionID, step)
}

func completedKey(funnelType models.FunnelType, sessionID string) string {
	return fmt.Sprintf("renoassist:%s:completed:%s", funnelType, sessionID)
}

// firstView flips the per-step view flag, reporting true only once.
// If the flag store is down every view counts as the first; duplicate
// view events beat silently dropped ones.
func (c *Controller) firstView(ctx context.Context, sessionID string, step int) bool {
	key := viewedKey(c.funnelType, sessionID, step)

	if _, err := c.kv.Get(ctx, key); err == nil {
		return false
	} else if !errors.Is(err, storage.ErrNotFound) {
		return true
	}

	if err := c.kv.Set(ctx, key, "1", c.sessionTTL); err != nil {
		c.log.Warn("Failed to set view flag", map[string]interface{}{
			"session_id": sessionID,
			"step":       step,
			"error":      err.Error(),
		})
	}
	return true
}

func (c *Controller) loadCompleted(ctx context.Context, sessionID string) []int {
	raw, err := c.kv.Get(ctx, completedKey(c.funnelType, sessionID))
	if err != nil {
		return []int{}
	}

	var steps []int
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return []int{}
	}
	return steps
}

func (c *Controller) markCompleted(ctx context.Context, sessionID string, step int) []int {
	steps := c.loadCompleted(ctx, sessionID)
	for _, s := range steps {
		if s == step {
			return steps
		}
	}
	steps = append(steps, step)
	sort.Ints(steps)

	data, _ := json.Marshal(steps)
	if err := c.kv.Set(ctx, completedKey(c.funnelType, sessionID), string(data), c.sessionTTL); err != nil {
		c.log.Warn("Failed to persist completed steps", map[string]interface{}{
			"session_id": sessionID,
			"step":       step,
			"error":      err.Error(),
		})
	}
	return steps
}
