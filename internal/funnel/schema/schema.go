// Package schema defines the nine-step funnel layout and the per-step
// completion rules that gate forward navigation.
package schema

import (
	"regexp"
	"strings"

	"github.com/jackhunterking/renoassist-forms/internal/models"
)

const (
	FirstStep = 1
	LastStep  = 9

	// ConfirmationStep is the post-submit page; it is not part of the
	// gated sequence.
	ConfirmationStep = 10
)

// Step describes one funnel page.
type Step struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	// Field is the draft field this step collects, empty for
	// multi-field steps.
	Field    string `json:"field,omitempty"`
	Optional bool   `json:"optional"`
}

// Steps is the basement funnel layout in order.
var Steps = []Step{
	{Number: 1, Name: "basement_condition", Field: "basementCondition"},
	{Number: 2, Name: "renovation_scope", Field: "renovationScope"},
	{Number: 3, Name: "separate_entrance", Field: "separateEntrance"},
	{Number: 4, Name: "plan_design", Field: "hasDesign"},
	{Number: 5, Name: "urgency", Field: "urgency"},
	{Number: 6, Name: "additional_details", Field: "additionalDetails", Optional: true},
	{Number: 7, Name: "location"},
	{Number: 8, Name: "email", Field: "email"},
	{Number: 9, Name: "contact"},
}

// StepName returns the page name for a step number, empty if out of range.
func StepName(step int) string {
	if step < FirstStep || step > LastStep {
		if step == ConfirmationStep {
			return "confirmation"
		}
		return ""
	}
	return Steps[step-1].Name
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address matches the lead API's
// loose email shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips everything but digits and caps at ten digits.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) > 10 {
		digits = digits[:10]
	}
	return digits
}

// ValidPhone requires a full ten-digit number after normalization.
func ValidPhone(phone string) bool {
	return len(NormalizePhone(phone)) == 10
}

// IsStepComplete reports whether the draft satisfies a step's gate.
// Step 6 is always complete because details are optional; step 7 needs
// city and postal code but not coordinates, which resolve best-effort.
func IsStepComplete(record *models.DraftRecord, step int) bool {
	switch step {
	case 1:
		return record.BasementCondition != ""
	case 2:
		return len(record.RenovationScope) > 0
	case 3:
		return record.SeparateEntrance != ""
	case 4:
		return record.HasDesign != nil
	case 5:
		return record.Urgency != ""
	case 6:
		return true
	case 7:
		return record.City != "" && record.PostalCode != ""
	case 8:
		return ValidEmail(record.Email)
	case 9:
		return strings.TrimSpace(record.HomeownerName) != "" && ValidPhone(record.Phone)
	default:
		return false
	}
}

// FurthestCompletedStep returns the highest step N such that steps
// 1..N are all complete, zero when step 1 is not yet answered.
func FurthestCompletedStep(record *models.DraftRecord) int {
	for step := FirstStep; step <= LastStep; step++ {
		if !IsStepComplete(record, step) {
			return step - 1
		}
	}
	return LastStep
}

// EntryStep clamps a requested deep-link step to the furthest page the
// draft has earned. A fresh draft always lands on step 1.
func EntryStep(record *models.DraftRecord, requested int) int {
	if requested < FirstStep {
		requested = FirstStep
	}
	if requested > LastStep {
		requested = LastStep
	}

	earned := FurthestCompletedStep(record) + 1
	if earned > LastStep {
		earned = LastStep
	}
	if requested > earned {
		return earned
	}
	return requested
}

// CanAdvance reports whether the draft may move from step to step+1.
func CanAdvance(record *models.DraftRecord, step int) bool {
	if step < FirstStep || step > LastStep {
		return false
	}
	return IsStepComplete(record, step)
}
