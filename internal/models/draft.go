package models

// GeoPoint is a resolved latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DraftRecord is the in-progress answer set for one funnel traversal.
// It is the single source of truth for every step; JSON tags match the
// wire format the frontend and Xano both use.
type DraftRecord struct {
	BasementCondition string    `json:"basementCondition,omitempty"`
	RenovationScope   []string  `json:"renovationScope,omitempty"`
	SeparateEntrance  string    `json:"separateEntrance,omitempty"`
	HasDesign         *bool     `json:"hasDesign,omitempty"`
	Urgency           string    `json:"urgency,omitempty"`
	AdditionalDetails string    `json:"additionalDetails,omitempty"`
	City              string    `json:"city,omitempty"`
	PostalCode        string    `json:"postalCode,omitempty"`
	GeoPoint          *GeoPoint `json:"geoPoint,omitempty"`
	Email             string    `json:"email,omitempty"`
	HomeownerName     string    `json:"homeownerName,omitempty"`
	Phone             string    `json:"phone,omitempty"`
}

// IsEmpty reports whether no field has been answered yet.
func (r *DraftRecord) IsEmpty() bool {
	return r.BasementCondition == "" &&
		len(r.RenovationScope) == 0 &&
		r.SeparateEntrance == "" &&
		r.HasDesign == nil &&
		r.Urgency == "" &&
		r.AdditionalDetails == "" &&
		r.City == "" &&
		r.PostalCode == "" &&
		r.GeoPoint == nil &&
		r.Email == "" &&
		r.HomeownerName == "" &&
		r.Phone == ""
}

// DraftPatch is a partial update against a DraftRecord. Nil fields are
// left untouched; non-nil fields replace the current value (shallow merge).
type DraftPatch struct {
	BasementCondition *string   `json:"basementCondition,omitempty"`
	RenovationScope   []string  `json:"renovationScope,omitempty"`
	SeparateEntrance  *string   `json:"separateEntrance,omitempty"`
	HasDesign         *bool     `json:"hasDesign,omitempty"`
	Urgency           *string   `json:"urgency,omitempty"`
	AdditionalDetails *string   `json:"additionalDetails,omitempty"`
	City              *string   `json:"city,omitempty"`
	PostalCode        *string   `json:"postalCode,omitempty"`
	GeoPoint          *GeoPoint `json:"geoPoint,omitempty"`
	Email             *string   `json:"email,omitempty"`
	HomeownerName     *string   `json:"homeownerName,omitempty"`
	Phone             *string   `json:"phone,omitempty"`
}

// Apply merges the patch into the record.
func (p *DraftPatch) Apply(r *DraftRecord) {
	if p.BasementCondition != nil {
		r.BasementCondition = *p.BasementCondition
	}
	if p.RenovationScope != nil {
		r.RenovationScope = p.RenovationScope
	}
	if p.SeparateEntrance != nil {
		r.SeparateEntrance = *p.SeparateEntrance
	}
	if p.HasDesign != nil {
		r.HasDesign = p.HasDesign
	}
	if p.Urgency != nil {
		r.Urgency = *p.Urgency
	}
	if p.AdditionalDetails != nil {
		r.AdditionalDetails = *p.AdditionalDetails
	}
	if p.City != nil {
		r.City = *p.City
	}
	if p.PostalCode != nil {
		r.PostalCode = *p.PostalCode
	}
	if p.GeoPoint != nil {
		r.GeoPoint = p.GeoPoint
	}
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.HomeownerName != nil {
		r.HomeownerName = *p.HomeownerName
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
}

// ScoredAnswer is the derived projection of one answered question in the
// format the lead-management API expects. Answer is a string for
// single-select questions and a []string for multi-select ones.
type ScoredAnswer struct {
	Answer     interface{} `json:"answer"`
	Credit     int         `json:"credit"`
	QuestionID int         `json:"questionID"`
}
