// internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhunterking/renoassist-forms/internal/common/config"
	"github.com/jackhunterking/renoassist-forms/internal/common/geocode"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/storage"
	"github.com/jackhunterking/renoassist-forms/internal/common/xano"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/controller"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/draft"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/session"
	"github.com/jackhunterking/renoassist-forms/internal/funnel/submission"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type memorySessionStore struct {
	sessions []*models.FunnelSession
	events   []*models.FunnelEvent
}

func (m *memorySessionStore) Insert(_ context.Context, sess *models.FunnelSession) error {
	m.sessions = append(m.sessions, sess)
	return nil
}

func (m *memorySessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	for _, s := range m.sessions {
		if s.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memorySessionStore) UpdateProgress(context.Context, string, int, []int, *models.DraftRecord) error {
	return nil
}
func (m *memorySessionStore) UpdateEmail(context.Context, string, string) error { return nil }
func (m *memorySessionStore) MarkCompleted(context.Context, string) error       { return nil }
func (m *memorySessionStore) MarkAbandoned(context.Context, string) error       { return nil }
func (m *memorySessionStore) InsertEvent(_ context.Context, event *models.FunnelEvent) error {
	m.events = append(m.events, event)
	return nil
}

type fakeLeadAPI struct {
	err   error
	calls int
}

func (f *fakeLeadAPI) CreateProject(context.Context, *xano.LeadPayload) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"id":42}`), nil
}

type fakeInquiries struct{}

func (fakeInquiries) Insert(context.Context, *models.Inquiry) (string, error) { return "inq-1", nil }
func (fakeInquiries) MarkSynced(context.Context, string, bool, json.RawMessage) error {
	return nil
}

type apiHarness struct {
	engine  *gin.Engine
	store   *memorySessionStore
	leadAPI *fakeLeadAPI
	drafts  *draft.Store
}

func newAPIHarness(t *testing.T, geocodeURL string) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	kv := storage.NewRedisKV(client)
	drafts := draft.NewStore(kv, time.Hour, log)
	store := &memorySessionStore{}
	tracker := session.NewTracker(store, nil, log)
	ctrl := controller.New(models.FunnelBasement, drafts, tracker, kv, nil, time.Hour, log)
	leadAPI := &fakeLeadAPI{}
	orch := submission.NewOrchestrator(models.FunnelBasement, drafts, tracker, fakeInquiries{}, leadAPI, nil, nil, nil, log)
	geocoder := geocode.NewClient(geocodeURL, "ca", time.Second)

	cfg := &config.Config{}
	cfg.Server.EnableCORS = true
	cfg.Server.Port = 0

	handlers := NewHandlers(models.FunnelBasement, ctrl, tracker, orch, geocoder, log)
	server := NewServer(cfg, handlers, log)

	return &apiHarness{engine: server.Engine(), store: store, leadAPI: leadAPI, drafts: drafts}
}

func (h *apiHarness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func completeDraft() *models.DraftRecord {
	hasDesign := true
	return &models.DraftRecord{
		BasementCondition: "Unfinished",
		RenovationScope:   []string{"Full Basement Remodel"},
		SeparateEntrance:  "Yes",
		HasDesign:         &hasDesign,
		Urgency:           "asap",
		City:              "Toronto",
		PostalCode:        "M5V 2T6",
		Email:             "jordan@example.com",
		HomeownerName:     "Jordan Smith",
		Phone:             "(416) 555-0199",
	}
}

// ==========================
// Session & Health Tests
// ==========================

func TestHealth(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")
	rec := h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInitSession_NewSession(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Regexp(t, `^\d{13}-[0-9a-f]{9}$`, body["sessionId"])
	require.Len(t, h.store.sessions, 1)
}

func TestInitSession_CapturesAttribution(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/sessions?utm_source=facebook&utm_campaign=spring&fbclid=abc123&hsa_cam=777",
		bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://www.facebook.com/")
	req.AddCookie(&http.Cookie{Name: "_fbp", Value: "fb.1.1234.5678"})
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.store.sessions, 1)
	attr := h.store.sessions[0].Attribution
	assert.Equal(t, "facebook", attr.UTMSource)
	assert.Equal(t, "spring", attr.UTMCampaign)
	assert.Equal(t, "abc123", attr.FBClid)
	assert.Equal(t, "777", attr.HSACam)
	assert.Equal(t, "fb.1.1234.5678", attr.FBP)
	assert.Equal(t, "https://www.facebook.com/", attr.Referrer)
}

func TestInitSession_ResumesClaimedSession(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	first := decodeBody(t, h.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{}))
	sessionID := first["sessionId"].(string)

	second := decodeBody(t, h.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{"sessionId": sessionID}))
	assert.Equal(t, sessionID, second["sessionId"])
	assert.Len(t, h.store.sessions, 1)
}

// ==========================
// Step Listing Tests
// ==========================

func TestListSteps(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodGet, "/api/v1/funnels/basement/steps", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Steps []struct {
			Step int    `json:"step"`
			Name string `json:"name"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Steps, 9)
	assert.Equal(t, "basement_condition", body.Steps[0].Name)
	assert.Equal(t, "contact", body.Steps[8].Name)
	assert.Contains(t, rec.Body.String(), "Unfinished")
	assert.Contains(t, rec.Body.String(), "1_3_months")
}

func TestUnknownFunnelType(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")
	rec := h.do(t, http.MethodGet, "/api/v1/funnels/kitchen/steps", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// ==========================
// Navigation Tests
// ==========================

func TestEnter_ClampsDeepLink(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/enter", map[string]interface{}{
		"sessionId": "s-1",
		"step":      7,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["step"])
	assert.Equal(t, true, body["redirected"])
}

func TestAdvance_HappyPath(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/advance", map[string]interface{}{
		"sessionId": "s-1",
		"step":      1,
		"patch":     map[string]interface{}{"basementCondition": "Unfinished"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["nextStep"])
}

func TestAdvance_GateFailure(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/advance", map[string]interface{}{
		"sessionId": "s-1",
		"step":      1,
		"patch":     map[string]interface{}{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdvance_InvalidStep(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/advance", map[string]interface{}{
		"sessionId": "s-1",
		"step":      9,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDraft(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodGet, "/api/v1/funnels/basement/draft", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	h.do(t, http.MethodPost, "/api/v1/funnels/basement/advance", map[string]interface{}{
		"sessionId": "s-1",
		"step":      1,
		"patch":     map[string]interface{}{"basementCondition": "Unfinished"},
	})

	rec = h.do(t, http.MethodGet, "/api/v1/funnels/basement/draft?sessionId=s-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unfinished")
	assert.Contains(t, rec.Body.String(), `"completedSteps":[1]`)
}

func TestBackAndStartOver(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/back", map[string]interface{}{
		"sessionId": "s-1",
		"fromStep":  3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["step"])

	rec = h.do(t, http.MethodPost, "/api/v1/funnels/basement/start-over", map[string]interface{}{
		"sessionId": "s-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAbandon(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/abandon", map[string]interface{}{
		"sessionId": "s-1",
		"step":      4,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, h.store.events)
	assert.Equal(t, models.EventAbandon, h.store.events[len(h.store.events)-1].EventType)
}

// ==========================
// Geocode Tests
// ==========================

func TestGeocode(t *testing.T) {
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "M5V 2T6", r.URL.Query().Get("postalcode"))
		fmt.Fprint(w, `[{"lat":"43.64","lon":"-79.39","display_name":"M5V 2T6, Toronto, Ontario, Canada"}]`)
	}))
	defer nominatim.Close()

	h := newAPIHarness(t, nominatim.URL)
	rec := h.do(t, http.MethodGet, "/api/v1/geocode?postalCode=M5V+2T6", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Toronto", body["city"])
}

func TestGeocode_NotFound(t *testing.T) {
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer nominatim.Close()

	h := newAPIHarness(t, nominatim.URL)
	rec := h.do(t, http.MethodGet, "/api/v1/geocode?postalCode=X0X+0X0", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGeocode_MissingParam(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")
	rec := h.do(t, http.MethodGet, "/api/v1/geocode", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Submission Tests
// ==========================

func TestSubmit_Success(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")
	h.drafts.Save(context.Background(), "s-1", completeDraft())

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/submit", map[string]interface{}{
		"sessionId": "s-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "inq-1", body["inquiryId"])
	assert.Equal(t, 1, h.leadAPI.calls)
}

func TestSubmit_IncompleteFunnel(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/submit", map[string]interface{}{
		"sessionId": "s-1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, h.leadAPI.calls)
}

func TestSubmit_LeadAPIFailure(t *testing.T) {
	h := newAPIHarness(t, "http://127.0.0.1:1")
	h.leadAPI.err = errors.New("xano down")
	h.drafts.Save(context.Background(), "s-1", completeDraft())

	rec := h.do(t, http.MethodPost, "/api/v1/funnels/basement/submit", map[string]interface{}{
		"sessionId": "s-1",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
