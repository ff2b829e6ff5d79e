// Package catalog holds the scored question configuration for the
// basement funnel. Option values and credits must match what the lead
// API expects, down to punctuation.
package catalog

import "github.com/jackhunterking/renoassist-forms/internal/models"

// Option is a selectable answer with its lead-quality credit.
type Option struct {
	Value  string `json:"value"`
	Credit int    `json:"credit"`
}

// Question is a scored question keyed by the lead API's question ID.
type Question struct {
	QuestionID  int      `json:"questionID"`
	MultiSelect bool     `json:"multiSelect"`
	Options     []Option `json:"options"`
}

const (
	QuestionIDBasementCondition = 10
	QuestionIDRenovationScope   = 11
	QuestionIDSeparateEntrance  = 13
)

var BasementCondition = Question{
	QuestionID: QuestionIDBasementCondition,
	Options: []Option{
		{Value: "Fully Finished", Credit: 0},
		{Value: "Partially Finished", Credit: 0},
		{Value: "Unfinished", Credit: 2},
	},
}

var RenovationScope = Question{
	QuestionID:  QuestionIDRenovationScope,
	MultiSelect: true,
	Options: []Option{
		{Value: "Full Basement Remodel", Credit: 1},
		{Value: "Basement Bathroom Addition", Credit: 1},
		{Value: "Flooring & Carpeting", Credit: 0},
		{Value: "Drywall & Insulation", Credit: 0},
		{Value: "Separate Entrance Addition", Credit: 0},
		{Value: "Other", Credit: 0},
	},
}

// The "Not, sure" spelling is what the lead API stores; do not fix it.
var SeparateEntrance = Question{
	QuestionID: QuestionIDSeparateEntrance,
	Options: []Option{
		{Value: "Yes", Credit: 1},
		{Value: "No", Credit: 0},
		{Value: "Not, sure", Credit: 0},
	},
}

// LabeledOption pairs a display label with the stored value for the
// non-scored steps.
type LabeledOption struct {
	Label string      `json:"label"`
	Value interface{} `json:"value"`
}

var UrgencyOptions = []LabeledOption{
	{Label: "I need it done ASAP", Value: "asap"},
	{Label: "Planning in the next 1-3 months", Value: "1_3_months"},
}

var DesignOptions = []LabeledOption{
	{Label: "Yes, I already have plans/designs", Value: true},
	{Label: "No, I need design help", Value: false},
}

// CreditFor returns the credit for a single option value. Unknown
// values score zero rather than erroring, matching sink behavior.
func (q Question) CreditFor(value string) int {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Credit
		}
	}
	return 0
}

// HasOption reports whether value is a configured option.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// TotalCredit sums credits across a multi-select answer.
func (q Question) TotalCredit(values []string) int {
	total := 0
	for _, v := range values {
		total += q.CreditFor(v)
	}
	return total
}

// Answers converts a draft into the scored answers array the lead API
// expects. Unanswered questions are omitted; order is fixed by
// ascending question ID.
func Answers(record *models.DraftRecord) []models.ScoredAnswer {
	answers := make([]models.ScoredAnswer, 0, 3)

	if record.BasementCondition != "" {
		answers = append(answers, models.ScoredAnswer{
			Answer:     record.BasementCondition,
			Credit:     BasementCondition.CreditFor(record.BasementCondition),
			QuestionID: BasementCondition.QuestionID,
		})
	}

	if len(record.RenovationScope) > 0 {
		answers = append(answers, models.ScoredAnswer{
			Answer:     record.RenovationScope,
			Credit:     RenovationScope.TotalCredit(record.RenovationScope),
			QuestionID: RenovationScope.QuestionID,
		})
	}

	if record.SeparateEntrance != "" {
		answers = append(answers, models.ScoredAnswer{
			Answer:     record.SeparateEntrance,
			Credit:     SeparateEntrance.CreditFor(record.SeparateEntrance),
			QuestionID: SeparateEntrance.QuestionID,
		})
	}

	return answers
}
