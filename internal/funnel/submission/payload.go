// internal/funnel/submission/payload.go
package submission

import (
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "github.com/jackhunterking/renoassist-forms/internal/common/errors"
	"github.com/jackhunterking/renoassist-forms/internal/common/xano"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/catalog"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/schema"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// basementCategory is the lead API's category code for basement projects.
const basementCategory = 1

const (
	defaultUrgency = "asap"
)

var (
	nameDisallowed = regexp.MustCompile(`[^\pL\pN\s-]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// SanitizeName strips everything but letters, digits, spaces and
// hyphens from a homeowner name, then joins the remaining words with
// underscores the way the lead API stores them.
func SanitizeName(name string) string {
	cleaned := nameDisallowed.ReplaceAllString(name, "")
	cleaned = strings.TrimSpace(cleaned)
	return whitespaceRun.ReplaceAllString(cleaned, "_")
}

// BuildPayload assembles the lead API payload from a finished draft,
// applying the API's defaults for anything left unanswered.
func BuildPayload(record *models.DraftRecord) *xano.LeadPayload {
	urgency := record.Urgency
	if urgency == "" {
		urgency = defaultUrgency
	}

	hasDesign := false
	if record.HasDesign != nil {
		hasDesign = *record.HasDesign
	}

	geoPoint := models.GeoPoint{}
	if record.GeoPoint != nil {
		geoPoint = *record.GeoPoint
	}

	return &xano.LeadPayload{
		Category:          basementCategory,
		HomeownerName:     SanitizeName(record.HomeownerName),
		Email:             record.Email,
		Phone:             schema.NormalizePhone(record.Phone),
		PostalCode:        record.PostalCode,
		City:              record.City,
		Urgency:           urgency,
		HasDesign:         hasDesign,
		AdditionalDetails: record.AdditionalDetails,
		Answers:           catalog.Answers(record),
		GeoPoint:          geoPoint,
	}
}

// payloadSchema is the lead API contract. Validation runs before any
// sink is touched so a malformed payload never half-submits.
const payloadSchema = `{
	"type": "object",
	"required": ["category", "homeownerName", "email", "phone", "postalCode", "city", "urgency", "hasDesign", "additionalDetails", "answers", "geoPoint"],
	"properties": {
		"category": {"type": "integer", "minimum": 1},
		"homeownerName": {"type": "string", "minLength": 1},
		"email": {"type": "string", "pattern": "^[^\\s@]+@[^\\s@]+\\.[^\\s@]+$"},
		"phone": {"type": "string", "pattern": "^[0-9]{10}$"},
		"postalCode": {"type": "string", "minLength": 1},
		"city": {"type": "string", "minLength": 1},
		"urgency": {"type": "string", "enum": ["asap", "1_3_months"]},
		"hasDesign": {"type": "boolean"},
		"additionalDetails": {"type": "string"},
		"answers": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["answer", "credit", "questionID"],
				"properties": {
					"answer": {
						"anyOf": [
							{"type": "string", "minLength": 1},
							{"type": "array", "items": {"type": "string"}, "minItems": 1}
						]
					},
					"credit": {"type": "integer", "minimum": 0},
					"questionID": {"type": "integer", "minimum": 1}
				}
			}
		},
		"geoPoint": {
			"type": "object",
			"required": ["lat", "lng"],
			"properties": {
				"lat": {"type": "number"},
				"lng": {"type": "number"}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// ValidatePayload checks the payload against the lead API contract.
func ValidatePayload(payload *xano.LeadPayload) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(payload))
	if err != nil {
		return commonerrors.NewLeadPayloadInvalidError(err.Error())
	}

	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return commonerrors.NewLeadPayloadInvalidError(strings.Join(details, "; "))
	}

	return nil
}
