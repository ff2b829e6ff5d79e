package models

import "time"

// Inquiry is the durable system-of-record row written for every submission
// before the lead is forwarded to Xano. XanoSynced flips to true once the
// remote call has succeeded and the response payload has been attached.
type Inquiry struct {
	ID                string         `json:"id" db:"id"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
	HomeownerName     string         `json:"homeownerName" db:"homeowner_name"`
	Email             string         `json:"email" db:"email"`
	Phone             string         `json:"phone" db:"phone"`
	City              string         `json:"city" db:"city"`
	PostalCode        string         `json:"postalCode" db:"postal_code"`
	GeoLat            *float64       `json:"geoLat,omitempty" db:"geo_lat"`
	GeoLng            *float64       `json:"geoLng,omitempty" db:"geo_lng"`
	Answers           []ScoredAnswer `json:"answers" db:"answers"`
	Urgency           string         `json:"urgency" db:"urgency"`
	HasDesign         bool           `json:"hasDesign" db:"has_design"`
	AdditionalDetails string         `json:"additionalDetails,omitempty" db:"additional_details"`
	Category          int            `json:"category" db:"category"`
	XanoSynced        bool           `json:"xanoSynced" db:"xano_synced"`
	XanoResponse      []byte         `json:"xanoResponse,omitempty" db:"xano_response"`
	Status            string         `json:"status" db:"status"`
}
