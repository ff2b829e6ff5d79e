package models

import "time"

// FunnelType identifies which funnel variant a session belongs to.
type FunnelType string

const (
	FunnelBasement FunnelType = "basement"
	FunnelPod      FunnelType = "pod"
)

// EventType classifies a step event.
type EventType string

const (
	EventView     EventType = "view"
	EventComplete EventType = "complete"
	EventBack     EventType = "back"
	EventAbandon  EventType = "abandon"
)

// Attribution is the campaign metadata captured once at session start and
// immutable afterwards.
type Attribution struct {
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	UTMTerm     string `json:"utmTerm,omitempty"`
	UTMContent  string `json:"utmContent,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	FBClid      string `json:"fbclid,omitempty"`
	FBC         string `json:"fbc,omitempty"`
	FBP         string `json:"fbp,omitempty"`
	HSAAcc      string `json:"hsaAcc,omitempty"`
	HSACam      string `json:"hsaCam,omitempty"`
	HSAGrp      string `json:"hsaGrp,omitempty"`
	HSAAd       string `json:"hsaAd,omitempty"`
	HSASrc      string `json:"hsaSrc,omitempty"`
	HSANet      string `json:"hsaNet,omitempty"`
	HSAVer      string `json:"hsaVer,omitempty"`
}

// FunnelSession tracks one user's journey through a funnel, independent of
// the draft's field values.
type FunnelSession struct {
	ID             string       `json:"id" db:"id"`
	SessionID      string       `json:"sessionId" db:"session_id"`
	FunnelType     FunnelType   `json:"funnelType" db:"funnel_type"`
	CurrentStep    int          `json:"currentStep" db:"current_step"`
	CompletedSteps []int        `json:"completedSteps" db:"completed_steps"`
	FormData       *DraftRecord `json:"formData,omitempty" db:"form_data"`
	Email          string       `json:"email,omitempty" db:"email"`
	StartedAt      time.Time    `json:"startedAt" db:"started_at"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty" db:"completed_at"`
	AbandonedAt    *time.Time   `json:"abandonedAt,omitempty" db:"abandoned_at"`
	Attribution    Attribution  `json:"attribution"`
}

// IsFinished reports whether the session has been completed or abandoned.
func (s *FunnelSession) IsFinished() bool {
	return s.CompletedAt != nil || s.AbandonedAt != nil
}

// FunnelEvent is one step-level tracking event within a session.
type FunnelEvent struct {
	ID           string     `json:"id" db:"id"`
	SessionID    string     `json:"sessionId" db:"session_id"`
	FunnelType   FunnelType `json:"funnelType" db:"funnel_type"`
	StepNumber   int        `json:"stepNumber" db:"step_number"`
	StepName     string     `json:"stepName" db:"step_name"`
	EventType    EventType  `json:"eventType" db:"event_type"`
	TimeOnStepMs int64      `json:"timeOnStepMs,omitempty" db:"time_on_step_ms"`
	PageURL      string     `json:"pageUrl,omitempty" db:"page_url"`
	OccurredAt   time.Time  `json:"occurredAt" db:"occurred_at"`
}
