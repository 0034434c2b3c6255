package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/generator"
	"quizgen-service/internal/metrics"
)

const sessionCookie = "quiz_session"

// Handler exposes the quiz lifecycle over JSON endpoints. Authentication is
// an upstream concern: the handler trusts the X-User-ID header set by the
// fronting auth layer.
type Handler struct {
	quiz      *app.QuizService
	analytics *app.Aggregator
	accounts  *app.AccountService
	validate  *validator.Validate
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

func NewHandler(quiz *app.QuizService, analytics *app.Aggregator, accounts *app.AccountService, m *metrics.Metrics, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Handler{
		quiz:      quiz,
		analytics: analytics,
		accounts:  accounts,
		validate:  validator.New(),
		metrics:   m,
		log:       log,
	}
}

// Routes registers all REST endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", h.handleRegister)
	mux.HandleFunc("GET /api/categories", h.handleCategories)
	mux.HandleFunc("POST /api/quiz/start", h.handleStartQuiz)
	mux.HandleFunc("GET /api/quiz/question/{index}", h.handleQuestion)
	mux.HandleFunc("POST /api/quiz/submit", h.handleSubmit)
	mux.HandleFunc("DELETE /api/quiz", h.handleAbandon)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/dashboard", h.handleDashboard)
	mux.HandleFunc("GET /api/profile", h.handleProfile)
	return mux
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"max=150"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "email": user.Email})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.quiz.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type startQuizRequest struct {
	CategoryID    string `json:"categoryId" validate:"required"`
	SubCategoryID string `json:"subcategoryId" validate:"required"`
	Difficulty    string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Count         int    `json:"count" validate:"required,min=1,max=20"`
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req startQuizRequest
	if !h.decode(w, r, &req) {
		return
	}
	difficulty, _ := domain.ParseDifficulty(req.Difficulty)
	sessionID := h.ensureSession(w, r)

	start := time.Now()
	attempt, err := h.quiz.Begin(r.Context(), sessionID, userID, req.CategoryID, req.SubCategoryID, difficulty, req.Count)
	h.metrics.ObserveGeneration(time.Since(start), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeError(w, domain.ErrQuestionIndex)
		return
	}
	view, err := h.quiz.Question(r.Context(), h.sessionID(r), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.quiz.Submit(r.Context(), h.sessionID(r), userID, app.ParseAnswers(req.Answers))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.metrics.IncGraded()
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := h.quiz.Abandon(r.Context(), h.sessionID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	filter := app.HistoryFilter{
		CategoryID:    r.URL.Query().Get("category"),
		SubCategoryID: r.URL.Query().Get("subcategory"),
	}
	result, err := h.quiz.History(r.Context(), userID, page, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	stats, err := h.analytics.Dashboard(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	stats, err := h.analytics.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing user identity"})
		return "", false
	}
	return userID, true
}

func (h *Handler) sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// ensureSession returns the request's session ID, issuing a cookie when the
// client has none yet.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := h.sessionID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var genErr *generator.GenerationError
	switch {
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "could not generate quiz, try again"})
	case errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrSubCategoryNotFound),
		errors.Is(err, domain.ErrHistoryNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrQuestionIndex):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question index"})
	case errors.Is(err, domain.ErrNoActiveQuiz),
		errors.Is(err, domain.ErrAttemptCompleted),
		errors.Is(err, domain.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// LoggingMiddleware logs each request with method, path, status, and latency.
func LoggingMiddleware(log *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
