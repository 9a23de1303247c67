package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sentryguard/internal/audit"
	"sentryguard/internal/classify"
	"sentryguard/internal/config"
	"sentryguard/internal/dispatch"
	"sentryguard/internal/history"
	"sentryguard/internal/model"
	"sentryguard/internal/score"
	"sentryguard/internal/settings"
	"sentryguard/internal/stats"
)

type Server struct {
	cfg        *config.Manager
	settings   *settings.Store
	history    *history.Store
	dispatcher *dispatch.Dispatcher
	classifier *classify.Classifier
	stats      *stats.Store
	audit      *audit.Log
	logger     *slog.Logger
	version    string
}

type Deps struct {
	Config     *config.Manager
	Settings   *settings.Store
	History    *history.Store
	Dispatcher *dispatch.Dispatcher
	Classifier *classify.Classifier
	Stats      *stats.Store
	Audit      *audit.Log
	Logger     *slog.Logger
	Version    string
}

func Start(ctx context.Context, deps Deps) *http.Server {
	if deps.Config == nil {
		return nil
	}
	current := deps.Config.Get().API
	if !current.Enabled {
		if deps.Logger != nil {
			deps.Logger.Info("api disabled")
		}
		return nil
	}
	if deps.Logger != nil {
		deps.Logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:        deps.Config,
		settings:   deps.Settings,
		history:    deps.History,
		dispatcher: deps.Dispatcher,
		classifier: deps.Classifier,
		stats:      deps.Stats,
		audit:      deps.Audit,
		logger:     deps.Logger,
		version:    deps.Version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/alerts", server.handleAlerts)
	mux.HandleFunc("/alerts/response", server.handleResponse)
	mux.HandleFunc("/settings", server.handleSettings)
	mux.HandleFunc("/classify", server.handleClassify)
	mux.HandleFunc("/score", server.handleScore)
	mux.HandleFunc("/audit", server.handleAudit)
	mux.HandleFunc("/admin/clear", server.handleClear)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if deps.Logger != nil {
				deps.Logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

type statusResponse struct {
	Status   string              `json:"status"`
	Time     string              `json:"time"`
	Version  string              `json:"version"`
	Settings model.AlertSettings `json:"settings"`
	Stats    stats.Snapshot      `json:"stats"`
	Alerts   int                 `json:"alerts_in_history"`
	Ingest   ingestStatus        `json:"ingest"`
}

type ingestStatus struct {
	REST     bool `json:"rest"`
	Kafka    bool `json:"kafka"`
	FileTail bool `json:"file_tail"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:   "ok",
		Time:     time.Now().UTC().Format(time.RFC3339Nano),
		Version:  s.version,
		Settings: s.settings.Get(),
		Stats:    s.stats.Get(),
		Alerts:   s.history.Len(),
		Ingest: ingestStatus{
			REST:     cfg.Ingest.REST.Enabled,
			Kafka:    cfg.Ingest.Kafka.Enabled,
			FileTail: cfg.Ingest.FileTail.Enabled,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	list := s.history.List(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": list,
		"count":  len(list),
	})
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		AlertID      string `json:"alert_id"`
		ResponseType string `json:"response_type"`
		ThreatType   string `json:"threat_type"`
		Message      string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	applied := s.dispatcher.RecordResponse(r.Context(), req.AlertID,
		model.AlertStatus(strings.ToLower(strings.TrimSpace(req.ResponseType))),
		req.ThreatType, req.Message)
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"settings": s.settings.Get()})
	case http.MethodPost:
		var patch settings.Patch
		if !decodeBody(w, r, &patch) {
			return
		}
		merged := s.settings.Update(r.Context(), patch)
		writeJSON(w, http.StatusOK, map[string]any{"settings": merged})
	case http.MethodDelete:
		restored := s.settings.Reset(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"settings": restored})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text     string `json:"text"`
		Sender   string `json:"sender"`
		EventID  string `json:"event_id"`
		Override *struct {
			Level       string `json:"level"`
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"override"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	var result model.Classification
	if req.Override != nil {
		result = s.classifier.ClassifySynthetic(r.Context(), classify.Override{
			Level:       model.ThreatLevel(req.Override.Level),
			Type:        req.Override.Type,
			Description: req.Override.Description,
			Sender:      req.Sender,
			EventID:     req.EventID,
		})
	} else {
		result = s.classifier.Classify(r.Context(), classify.Input{
			Text:    req.Text,
			Sender:  req.Sender,
			EventID: req.EventID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"classification": result})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		NLPAnalysis        string `json:"nlp_analysis"`
		BehavioralAnalysis string `json:"behavioral_analysis"`
		Sender             string `json:"sender"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	behavioral := req.BehavioralAnalysis
	if behavioral == "" && s.classifier != nil {
		behavioral = s.classifier.Contacts().BehavioralAnalysis(req.Sender)
	}
	assessment := score.Score(req.NLPAnalysis, behavioral, req.Sender)
	writeJSON(w, http.StatusOK, map[string]any{"assessment": assessment})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries := s.audit.Entries(r.Context(), r.URL.Query().Get("event_id"), limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &req)
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		s.history.Clear(r.Context())
		s.stats.Clear()
	case "alerts":
		s.history.Clear(r.Context())
	case "stats":
		s.stats.Clear()
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.logger != nil {
		s.logger.Info("admin clear", "target", target)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
