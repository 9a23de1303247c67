package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentryguard/internal/audit"
	"sentryguard/internal/classify"
	"sentryguard/internal/config"
	"sentryguard/internal/dispatch"
	"sentryguard/internal/history"
	"sentryguard/internal/model"
	"sentryguard/internal/settings"
	"sentryguard/internal/stats"
	"sentryguard/internal/storage"
)

func newTestServer() *Server {
	db := storage.NewMemory()
	settingsStore := settings.NewStore(model.AlertSettings{ThreatLevel: model.LevelHigh}, db, nil)
	historyStore := history.NewStore(50, db, nil)
	statsStore := stats.NewStore()
	auditLog := audit.NewLog(db, nil)
	dispatcher := dispatch.NewDispatcher(settingsStore, historyStore, auditLog, statsStore, nil)
	classifier := classify.NewClassifier(dispatcher, classify.NewContactSet(nil), statsStore, nil)
	return &Server{
		cfg:        config.NewStaticManager(config.DefaultConfig()),
		settings:   settingsStore,
		history:    historyStore,
		dispatcher: dispatcher,
		classifier: classifier,
		stats:      statsStore,
		audit:      auditLog,
		version:    "test",
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Fatalf("unexpected status body: %+v", resp)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer()

	body := `{"is_enabled":true,"threat_level":"medium","trusted_contact":{"name":"Jane","phone_number":"+15550100"}}`
	rec := httptest.NewRecorder()
	s.handleSettings(rec, httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %d", rec.Code)
	}

	got := s.settings.Get()
	if !got.Enabled || got.ThreatLevel != model.LevelMedium {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.TrustedContact == nil || got.TrustedContact.Name != "Jane" {
		t.Fatalf("contact not applied: %+v", got.TrustedContact)
	}

	rec = httptest.NewRecorder()
	s.handleSettings(rec, httptest.NewRequest(http.MethodDelete, "/settings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset code = %d", rec.Code)
	}
	if got := s.settings.Get(); got.Enabled || got.TrustedContact != nil {
		t.Fatalf("reset did not restore defaults: %+v", got)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.handleClassify(rec, httptest.NewRequest(http.MethodPost, "/classify",
		strings.NewReader(`{"text":"verify your social security number now","sender":"irs@gov.test"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("classify code = %d", rec.Code)
	}
	var resp struct {
		Classification model.Classification `json:"classification"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Classification.Level != model.LevelHigh || resp.Classification.Type != "Identity Theft Attempt" {
		t.Fatalf("unexpected classification: %+v", resp.Classification)
	}
}

func TestClassifyOverrideEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.handleClassify(rec, httptest.NewRequest(http.MethodPost, "/classify",
		strings.NewReader(`{"override":{"level":"critical","type":"Scripted Threat"}}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("classify code = %d", rec.Code)
	}
	var resp struct {
		Classification model.Classification `json:"classification"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Classification.Level != model.LevelHigh || resp.Classification.Confidence != 1.0 {
		t.Fatalf("override not applied: %+v", resp.Classification)
	}
}

func TestResponseEndpointIdempotent(t *testing.T) {
	s := newTestServer()
	s.history.Append(context.Background(), model.SentryAlert{
		ID:        "alert-1",
		EventID:   "e1",
		Timestamp: time.Now().UTC(),
		Level:     model.LevelHigh,
		Type:      "Identity Theft Attempt",
		Status:    model.StatusSent,
	})

	post := func() bool {
		rec := httptest.NewRecorder()
		s.handleResponse(rec, httptest.NewRequest(http.MethodPost, "/alerts/response",
			strings.NewReader(`{"alert_id":"alert-1","response_type":"acknowledged"}`)))
		if rec.Code != http.StatusOK {
			t.Fatalf("response code = %d", rec.Code)
		}
		var resp struct {
			Applied bool `json:"applied"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.Applied
	}

	if !post() {
		t.Fatalf("first response should apply")
	}
	if post() {
		t.Fatalf("second response should be a no-op")
	}
	got, ok := s.history.Get("alert-1")
	if !ok || got.Status != model.StatusAcknowledged {
		t.Fatalf("alert status = %+v", got)
	}
}

func TestAlertsEndpointLimit(t *testing.T) {
	s := newTestServer()
	for i := 0; i < 3; i++ {
		s.history.Append(context.Background(), model.SentryAlert{ID: "alert-" + string(rune('a'+i)), Status: model.StatusSent})
	}
	rec := httptest.NewRecorder()
	s.handleAlerts(rec, httptest.NewRequest(http.MethodGet, "/alerts?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("alerts code = %d", rec.Code)
	}
	var resp struct {
		Alerts []model.SentryAlert `json:"alerts"`
		Count  int                 `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Alerts) != 2 {
		t.Fatalf("limit not applied: %+v", resp)
	}
	if resp.Alerts[0].ID != "alert-c" {
		t.Fatalf("newest alert should lead: %+v", resp.Alerts[0])
	}
}

func TestClearEndpoint(t *testing.T) {
	s := newTestServer()
	s.history.Append(context.Background(), model.SentryAlert{ID: "alert-1", Status: model.StatusSent})
	s.stats.MessageSeen()

	rec := httptest.NewRecorder()
	s.handleClear(rec, httptest.NewRequest(http.MethodPost, "/admin/clear", strings.NewReader(`{"target":"all"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear code = %d", rec.Code)
	}
	if s.history.Len() != 0 {
		t.Fatalf("history not cleared")
	}
	if s.stats.Get().MessagesSeen != 0 {
		t.Fatalf("stats not cleared")
	}

	rec = httptest.NewRecorder()
	s.handleClear(rec, httptest.NewRequest(http.MethodPost, "/admin/clear", strings.NewReader(`{"target":"bogus"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad target should 400, got %d", rec.Code)
	}
}
