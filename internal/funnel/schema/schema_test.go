// internal/funnel/schema/schema_test.go
package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func boolPtr(b bool) *bool { return &b }

func createCompleteDraft() *models.DraftRecord {
	return &models.DraftRecord{
		BasementCondition: "Unfinished",
		RenovationScope:   []string{"Full Basement Remodel"},
		SeparateEntrance:  "Yes",
		HasDesign:         boolPtr(false),
		Urgency:           "asap",
		City:              "Toronto",
		PostalCode:        "M5V 2T6",
		Email:             "homeowner@example.com",
		HomeownerName:     "Jordan Smith",
		Phone:             "(416) 555-0199",
	}
}

// ==========================
// Validation Helper Tests
// ==========================

func TestValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"simple address", "a@b.co", true},
		{"subdomain", "user@mail.example.com", true},
		{"missing at", "userexample.com", false},
		{"missing domain dot", "user@example", false},
		{"embedded space", "user @example.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidEmail(tt.email))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		expected string
	}{
		{"formatted", "(416) 555-0199", "4165550199"},
		{"dotted", "416.555.0199", "4165550199"},
		{"over ten digits truncated", "141655501999", "1416555019"},
		{"letters stripped", "416-CALL-NOW", "416"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.phone))
		})
	}
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("(416) 555-0199"))
	assert.False(t, ValidPhone("555-0199"))
	assert.False(t, ValidPhone(""))
}

// ==========================
// Step Gating Tests
// ==========================

func TestIsStepComplete(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.DraftRecord)
		step     int
		complete bool
	}{
		{
			name:     "step 1 incomplete on empty draft",
			mutate:   func(r *models.DraftRecord) { *r = models.DraftRecord{} },
			step:     1,
			complete: false,
		},
		{
			name:     "step 4 complete with explicit false",
			mutate:   func(r *models.DraftRecord) { r.HasDesign = boolPtr(false) },
			step:     4,
			complete: true,
		},
		{
			name:     "step 4 incomplete when unanswered",
			mutate:   func(r *models.DraftRecord) { r.HasDesign = nil },
			step:     4,
			complete: false,
		},
		{
			name:     "step 6 complete with empty details",
			mutate:   func(r *models.DraftRecord) { r.AdditionalDetails = "" },
			step:     6,
			complete: true,
		},
		{
			name:     "step 7 complete without coordinates",
			mutate:   func(r *models.DraftRecord) { r.GeoPoint = nil },
			step:     7,
			complete: true,
		},
		{
			name:     "step 7 incomplete without city",
			mutate:   func(r *models.DraftRecord) { r.City = "" },
			step:     7,
			complete: false,
		},
		{
			name:     "step 8 rejects malformed email",
			mutate:   func(r *models.DraftRecord) { r.Email = "not-an-email" },
			step:     8,
			complete: false,
		},
		{
			name:     "step 9 rejects whitespace name",
			mutate:   func(r *models.DraftRecord) { r.HomeownerName = "   " },
			step:     9,
			complete: false,
		},
		{
			name:     "step 9 rejects short phone",
			mutate:   func(r *models.DraftRecord) { r.Phone = "555-0199" },
			step:     9,
			complete: false,
		},
		{
			name:     "out of range step",
			mutate:   func(r *models.DraftRecord) {},
			step:     12,
			complete: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := createCompleteDraft()
			tt.mutate(record)
			assert.Equal(t, tt.complete, IsStepComplete(record, tt.step))
		})
	}
}

func TestFurthestCompletedStep(t *testing.T) {
	tests := []struct {
		name     string
		record   *models.DraftRecord
		expected int
	}{
		{
			name:     "empty draft",
			record:   &models.DraftRecord{},
			expected: 0,
		},
		{
			name: "stops at first gap even with later answers",
			record: &models.DraftRecord{
				BasementCondition: "Unfinished",
				RenovationScope:   []string{"Other"},
				Urgency:           "asap",
				Email:             "homeowner@example.com",
			},
			expected: 2,
		},
		{
			name:     "complete draft",
			record:   createCompleteDraft(),
			expected: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FurthestCompletedStep(tt.record))
		})
	}
}

func TestEntryStep(t *testing.T) {
	partial := &models.DraftRecord{
		BasementCondition: "Unfinished",
		RenovationScope:   []string{"Other"},
	}

	tests := []struct {
		name      string
		record    *models.DraftRecord
		requested int
		expected  int
	}{
		{"fresh draft deep link clamps to one", &models.DraftRecord{}, 7, 1},
		{"earned step passes through", partial, 3, 3},
		{"unearned deep link clamps to first incomplete", partial, 8, 3},
		{"backward request allowed", partial, 2, 2},
		{"below range clamps to one", partial, 0, 1},
		{"above range clamps to last", createCompleteDraft(), 15, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EntryStep(tt.record, tt.requested))
		})
	}
}

func TestStepName(t *testing.T) {
	assert.Equal(t, "basement_condition", StepName(1))
	assert.Equal(t, "contact", StepName(9))
	assert.Equal(t, "confirmation", StepName(10))
	assert.Equal(t, "", StepName(11))
}
