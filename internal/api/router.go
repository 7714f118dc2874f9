package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thalia-health/thalia/internal/metrics"
	"github.com/thalia-health/thalia/internal/middleware"
	"github.com/thalia-health/thalia/internal/services"
)

type Router struct {
	store    Store
	auth     *services.AuthService
	sessions *services.SessionService
	chat     *services.ChatService
	logs     *services.SymptomLogService
	reports  *services.ReportService
	metrics  *metrics.Collector
}

// NewRouter wires the services over the given store. The chat client is
// injected so tests can stub the collaborator; metrics may be nil.
func NewRouter(store Store, chatClient services.ChatClient, collector *metrics.Collector) *Router {
	state := newStateStoreAdapter(store)
	profiles := newProfileStoreAdapter(store)
	transcripts := services.NewTranscriptService(state)
	logs := services.NewSymptomLogService(state)
	rt := &Router{
		store:    store,
		auth:     services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		sessions: services.NewSessionService(profiles, transcripts, state),
		chat:     services.NewChatService(chatClient, profiles, transcripts, logs),
		logs:     logs,
		reports:  services.NewReportService(),
		metrics:  collector,
	}
	if collector != nil {
		logs.Subscribe(func(string) { collector.RecordPendingLogUpdate() })
	}
	return rt
}

func (rt *Router) Register(r chi.Router) {
	r.Get("/health", rt.handleHealth)
	r.Post("/api/auth/register", rt.handleRegister)
	r.Post("/api/auth/login", rt.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/api/session", rt.handleSession)
		r.Post("/api/session/disclaimer", rt.handleDisclaimer)
		r.Post("/api/session/action", rt.handleAction)
		r.Post("/api/session/assessment", rt.handleAssessment)
		r.Post("/api/chat", rt.handleChat)
		r.Get("/api/logs/pending", rt.handlePendingLogs)
		r.Get("/api/logs/export", rt.handleLogsExport)
		r.Post("/api/report", rt.handleReport)
	})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	res, err := rt.auth.Register(req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: res.Token, UserID: res.UserID, Name: res.Name, Email: res.Email})
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: res.Token, UserID: res.UserID, Name: res.Name, Email: res.Email})
}

func (rt *Router) handleSession(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	view, err := rt.sessions.Start(uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) handleDisclaimer(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	if !req.Accept {
		res, err := rt.sessions.DeclineDisclaimer(uid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	state, err := rt.sessions.AcceptDisclaimer(uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (rt *Router) handleAction(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	res, err := rt.sessions.Dispatch(uid, services.ActionID(req.Action))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/session/assessment
// { type: "submit", answers: {q1..q11: 0..4} } or { type: "close" }
func (rt *Router) handleAssessment(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	var req struct {
		Type    string              `json:"type"`
		Answers services.RawAnswers `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	switch req.Type {
	case "submit":
		res, err := rt.sessions.SubmitAssessment(uid, req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordAssessmentCompleted()
		}
		writeJSON(w, http.StatusOK, res)
	case "close":
		state, err := rt.sessions.CloseAssessment(uid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
	default:
		writeError(w, services.NewInvalidError("type must be submit or close"))
	}
}

func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	res, err := rt.chat.Send(r.Context(), uid, req.Message)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordChatTurn("rejected")
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		outcome := "ok"
		if res.Recovered {
			outcome = "fallback"
		}
		rt.metrics.RecordChatTurn(outcome)
		rt.metrics.RecordDetections(res.Detected)
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) handlePendingLogs(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	events, err := rt.logs.ListPending(uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (rt *Router) handleLogsExport(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	events, err := rt.logs.ListPending(uid)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := services.ExportPendingLogsCSV(events)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="symptom_logs.csv"`)
	_, _ = w.Write(b)
}

func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var req struct {
		Answers services.RawAnswers `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json"))
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, services.NewInvalidError("answers required"))
		return
	}
	name := ""
	if claims != nil {
		name = claims.Name
	}
	b, err := rt.reports.BuildBaselineReport(name, req.Answers, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="thalia_baseline_report.pdf"`)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusFor(se.Code), map[string]string{"error": se.Message})
		return
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "internal error"
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorTooManyRequests:
		return http.StatusTooManyRequests
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
