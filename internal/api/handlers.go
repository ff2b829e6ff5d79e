// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jackhunterking/renoassist-forms/internal/common/errors"
	"github.com/jackhunterking/renoassist-forms/internal/common/geocode"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/catalog"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/controller"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/schema"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/session"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/submission"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// Handlers binds the funnel packages to HTTP endpoints.
type Handlers struct {
	funnelType   models.FunnelType
	controller   *controller.Controller
	tracker      *session.Tracker
	orchestrator *submission.Orchestrator
	geocoder     *geocode.Client
	logger       logger.Logger
}

func NewHandlers(funnelType models.FunnelType, ctrl *controller.Controller, tracker *session.Tracker, orch *submission.Orchestrator, geocoder *geocode.Client, log logger.Logger) *Handlers {
	return &Handlers{
		funnelType:   funnelType,
		controller:   ctrl,
		tracker:      tracker,
		orchestrator: orch,
		geocoder:     geocoder,
		logger:       log.WithFields(map[string]interface{}{"component": "handlers"}),
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Session ---

type initSessionRequest struct {
	SessionID string `json:"sessionId"`
	PageURL   string `json:"pageUrl"`
}

// InitSession creates or resumes a session. Attribution comes from the
// landing URL's query parameters forwarded by the client, plus the Meta
// browser cookies and the Referer header.
func (h *Handlers) InitSession(c *gin.Context) {
	var req initSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	attribution := extractAttribution(c)
	sessionID := h.tracker.Init(c.Request.Context(), h.funnelType, req.SessionID, attribution)
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

func extractAttribution(c *gin.Context) models.Attribution {
	attribution := models.Attribution{
		UTMSource:   c.Query("utm_source"),
		UTMMedium:   c.Query("utm_medium"),
		UTMCampaign: c.Query("utm_campaign"),
		UTMTerm:     c.Query("utm_term"),
		UTMContent:  c.Query("utm_content"),
		FBClid:      c.Query("fbclid"),
		HSAAcc:      c.Query("hsa_acc"),
		HSACam:      c.Query("hsa_cam"),
		HSAGrp:      c.Query("hsa_grp"),
		HSAAd:       c.Query("hsa_ad"),
		HSASrc:      c.Query("hsa_src"),
		HSANet:      c.Query("hsa_net"),
		HSAVer:      c.Query("hsa_ver"),
		Referrer:    c.Request.Referer(),
	}
	if fbc, err := c.Cookie("_fbc"); err == nil {
		attribution.FBC = fbc
	}
	if fbp, err := c.Cookie("_fbp"); err == nil {
		attribution.FBP = fbp
	}
	return attribution
}

// --- Funnel steps ---

type stepInfo struct {
	Step     int         `json:"step"`
	Name     string      `json:"name"`
	Question interface{} `json:"question,omitempty"`
	Options  interface{} `json:"options,omitempty"`
}

// ListSteps describes the funnel's steps and their selectable options so
// the client renders from the same configuration the scorer uses.
func (h *Handlers) ListSteps(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}

	steps := make([]stepInfo, 0, len(schema.Steps))
	for _, s := range schema.Steps {
		info := stepInfo{Step: s.Number, Name: s.Name}
		switch s.Number {
		case 1:
			info.Question = catalog.BasementCondition
		case 2:
			info.Question = catalog.RenovationScope
		case 3:
			info.Question = catalog.SeparateEntrance
		case 4:
			info.Options = catalog.DesignOptions
		case 5:
			info.Options = catalog.UrgencyOptions
		}
		steps = append(steps, info)
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

// --- Draft ---

func (h *Handlers) GetDraft(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	record := h.controller.Draft(c.Request.Context(), sessionID)
	completed := h.controller.CompletedSteps(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{
		"record":         record,
		"completedSteps": completed,
	})
}

// --- Navigation ---

type enterRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Step      int    `json:"step"`
	PageURL   string `json:"pageUrl"`
}

func (h *Handlers) Enter(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.controller.Enter(c.Request.Context(), req.SessionID, req.Step, req.PageURL)
	c.JSON(http.StatusOK, result)
}

type advanceRequest struct {
	SessionID    string            `json:"sessionId" binding:"required"`
	Step         int               `json:"step" binding:"required"`
	Patch        models.DraftPatch `json:"patch"`
	TimeOnStepMs int64             `json:"timeOnStepMs"`
	PageURL      string            `json:"pageUrl"`
}

func (h *Handlers) Advance(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.controller.Advance(c.Request.Context(), req.SessionID, req.Step, req.Patch, req.TimeOnStepMs, req.PageURL)
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrInvalidStep):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, controller.ErrStepIncomplete):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

type backRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	FromStep  int    `json:"fromStep" binding:"required"`
	PageURL   string `json:"pageUrl"`
}

func (h *Handlers) Back(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	var req backRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step := h.controller.Back(req.FromStep)
	c.JSON(http.StatusOK, gin.H{"step": step})
}

type abandonRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Step      int    `json:"step"`
	PageURL   string `json:"pageUrl"`
}

func (h *Handlers) Abandon(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	var req abandonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.controller.Abandon(c.Request.Context(), req.SessionID, req.Step, req.PageURL)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type startOverRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func (h *Handlers) StartOver(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	var req startOverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.controller.StartOver(c.Request.Context(), req.SessionID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Geocode ---

// Geocode resolves a Canadian postal code on behalf of the location step.
// A lookup miss is a 404 so the client falls back to manual city entry.
func (h *Handlers) Geocode(c *gin.Context) {
	postalCode := strings.TrimSpace(c.Query("postalCode"))
	if postalCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postalCode is required"})
		return
	}

	result, err := h.geocoder.LookupPostalCode(c.Request.Context(), postalCode)
	if err != nil {
		h.logger.Warn("geocode lookup failed", map[string]interface{}{
			"error":      err,
			"postalCode": postalCode,
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocode lookup failed"})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "postal code not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"city":     result.City,
		"geoPoint": result.GeoPoint,
	})
}

// --- Submission ---

type submitRequest struct {
	SessionID string            `json:"sessionId" binding:"required"`
	Patch     models.DraftPatch `json:"patch"`
	PageURL   string            `json:"pageUrl"`
}

func (h *Handlers) Submit(c *gin.Context) {
	if !h.checkFunnelType(c) {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orchestrator.Submit(c.Request.Context(), req.SessionID, req.Patch, req.PageURL)
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, submission.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, submission.ErrFunnelIncomplete):
		return http.StatusUnprocessableEntity
	}

	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case apperrors.ErrCodeLeadPayloadInvalid:
			return http.StatusUnprocessableEntity
		case apperrors.ErrCodeLeadAPIError:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func (h *Handlers) checkFunnelType(c *gin.Context) bool {
	if models.FunnelType(c.Param("funnelType")) != h.funnelType {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown funnel type"})
		return false
	}
	return true
}
