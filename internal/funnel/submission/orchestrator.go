// Package submission runs the multi-sink lead submission pipeline:
// record locally, forward to the lead API, reconcile, then clear the
// funnel. Only the lead API call is fatal; every other sink degrades.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackhunterking/renoassist-forms/internal/common/capi"
	commonerrors "github.com/jackhunterking/renoassist-forms/internal/common/errors"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/metrics"
	"github.com/jackhunterking/renoassist-forms/internal/common/xano"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/catalog"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/draft"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/schema"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/session"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

var (
	ErrInFlight         = errors.New("SUBMISSION_IN_FLIGHT")
	ErrFunnelIncomplete = errors.New("FUNNEL_INCOMPLETE")
)

// LeadSubmitter forwards the payload to the remote lead API.
type LeadSubmitter interface {
	CreateProject(ctx context.Context, payload *xano.LeadPayload) (json.RawMessage, error)
}

// InquiryRecorder is the local system-of-record sink.
type InquiryRecorder interface {
	Insert(ctx context.Context, inquiry *models.Inquiry) (string, error)
	MarkSynced(ctx context.Context, inquiryID string, synced bool, response json.RawMessage) error
}

// Notifier alerts the ops channel about a new lead, fire-and-forget.
type Notifier interface {
	LeadSubmitted(ctx context.Context, inquiry *models.Inquiry)
}

// ConversionSink receives the Lead milestone after the lead API has
// accepted a submission.
type ConversionSink interface {
	Lead(ctx context.Context, sessionID string, user capi.UserData, sourceURL string)
}

// OutcomeRecorder mirrors submission outcomes into the OpenTelemetry
// meter alongside the Prometheus counters.
type OutcomeRecorder interface {
	RecordSubmission(ctx context.Context, status string)
	RecordSubmissionDuration(ctx context.Context, duration time.Duration, status string)
}

// Result is what a successful submission returns to the caller.
type Result struct {
	InquiryID    string          `json:"inquiryId,omitempty"`
	LeadResponse json.RawMessage `json:"leadResponse,omitempty"`
}

type Orchestrator struct {
	funnelType  models.FunnelType
	drafts      *draft.Store
	tracker     *session.Tracker
	inquiries   InquiryRecorder
	leads       LeadSubmitter
	notifier    Notifier
	conversions ConversionSink
	outcomes    OutcomeRecorder
	log         logger.Logger

	inFlight sync.Map // sessionID -> struct{}
}

// NewOrchestrator wires the submission pipeline. inquiries, notifier,
// conversions and outcomes may be nil; leads must not be.
func NewOrchestrator(funnelType models.FunnelType, drafts *draft.Store, tracker *session.Tracker, inquiries InquiryRecorder, leads LeadSubmitter, notifier Notifier, conversions ConversionSink, outcomes OutcomeRecorder, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		funnelType:  funnelType,
		drafts:      drafts,
		tracker:     tracker,
		inquiries:   inquiries,
		leads:       leads,
		notifier:    notifier,
		conversions: conversions,
		outcomes:    outcomes,
		log:         log,
	}
}

// Submit runs the pipeline for a session's draft after applying the
// final contact patch. Reentrant calls for the same session are
// rejected while one is in flight. On any failure the draft stays
// intact so the user can retry; it is cleared only after the lead API
// has accepted the submission.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, patch models.DraftPatch, pageURL string) (*Result, error) {
	if _, loaded := o.inFlight.LoadOrStore(sessionID, struct{}{}); loaded {
		return nil, fmt.Errorf("%w: session %s", ErrInFlight, sessionID)
	}
	defer o.inFlight.Delete(sessionID)

	started := time.Now()
	record := o.drafts.Update(ctx, sessionID, patch)

	for step := schema.FirstStep; step <= schema.LastStep; step++ {
		if !schema.IsStepComplete(record, step) {
			o.countOutcome(ctx, "incomplete")
			return nil, fmt.Errorf("%w: step %d", ErrFunnelIncomplete, step)
		}
	}

	payload := BuildPayload(record)
	if err := ValidatePayload(payload); err != nil {
		o.countOutcome(ctx, "invalid")
		return nil, err
	}

	// Local insert is best-effort: a dead database must not cost us
	// the lead.
	inquiryID := o.recordInquiry(ctx, sessionID, record, payload)

	leadResponse, err := o.leads.CreateProject(ctx, payload)
	if err != nil {
		o.countOutcome(ctx, "lead_api_error")
		o.log.Error("Lead API submission failed", map[string]interface{}{
			"session_id": sessionID,
			"inquiry_id": inquiryID,
			"error":      err.Error(),
		})
		return nil, commonerrors.NewLeadAPIError(err)
	}

	if inquiryID != "" {
		if err := o.inquiries.MarkSynced(ctx, inquiryID, true, leadResponse); err != nil {
			o.log.Warn("Failed to mark inquiry synced", map[string]interface{}{
				"inquiry_id": inquiryID,
				"error":      err.Error(),
			})
		}
	}

	o.finish(ctx, sessionID, record, pageURL)

	if o.notifier != nil {
		o.notifier.LeadSubmitted(ctx, o.buildInquiry(record, payload))
	}

	o.countOutcome(ctx, "success")
	metrics.FunnelSubmissionDuration.WithLabelValues(string(o.funnelType)).Observe(time.Since(started).Seconds())
	if o.outcomes != nil {
		o.outcomes.RecordSubmissionDuration(ctx, time.Since(started), "success")
	}

	return &Result{
		InquiryID:    inquiryID,
		LeadResponse: leadResponse,
	}, nil
}

func (o *Orchestrator) countOutcome(ctx context.Context, status string) {
	metrics.FunnelSubmissions.WithLabelValues(string(o.funnelType), status).Inc()
	if o.outcomes != nil {
		o.outcomes.RecordSubmission(ctx, status)
	}
}

func (o *Orchestrator) recordInquiry(ctx context.Context, sessionID string, record *models.DraftRecord, payload *xano.LeadPayload) string {
	if o.inquiries == nil {
		return ""
	}

	inquiryID, err := o.inquiries.Insert(ctx, o.buildInquiry(record, payload))
	if err != nil {
		o.log.Error("Failed to record inquiry locally", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return ""
	}
	return inquiryID
}

func (o *Orchestrator) buildInquiry(record *models.DraftRecord, payload *xano.LeadPayload) *models.Inquiry {
	inquiry := &models.Inquiry{
		HomeownerName:     record.HomeownerName,
		Email:             record.Email,
		Phone:             payload.Phone,
		City:              record.City,
		PostalCode:        record.PostalCode,
		Answers:           catalog.Answers(record),
		Urgency:           payload.Urgency,
		HasDesign:         payload.HasDesign,
		AdditionalDetails: record.AdditionalDetails,
		Category:          payload.Category,
		Status:            "submitted",
	}
	if record.GeoPoint != nil {
		lat, lng := record.GeoPoint.Lat, record.GeoPoint.Lng
		inquiry.GeoLat = &lat
		inquiry.GeoLng = &lng
	}
	return inquiry
}

// finish closes out funnel tracking and then clears the draft once
// the lead is safely accepted. The step-9 completion event and the
// progress update land before the draft is discarded.
func (o *Orchestrator) finish(ctx context.Context, sessionID string, record *models.DraftRecord, pageURL string) {
	o.tracker.TrackStepEvent(ctx, &models.FunnelEvent{
		SessionID:  sessionID,
		FunnelType: o.funnelType,
		StepNumber: schema.LastStep,
		StepName:   schema.StepName(schema.LastStep),
		EventType:  models.EventComplete,
		PageURL:    pageURL,
	})
	o.tracker.UpdateProgress(ctx, sessionID, schema.ConfirmationStep, allSteps(), record)
	o.drafts.Reset(ctx, sessionID)

	if o.conversions != nil {
		first, last := splitName(record.HomeownerName)
		o.conversions.Lead(ctx, sessionID, capi.UserData{
			Email:     record.Email,
			Phone:     schema.NormalizePhone(record.Phone),
			FirstName: first,
			LastName:  last,
		}, pageURL)
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func allSteps() []int {
	steps := make([]int, 0, schema.LastStep)
	for s := schema.FirstStep; s <= schema.LastStep; s++ {
		steps = append(steps, s)
	}
	return steps
}
