package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/b2bflow/front-forms/internal/http/middleware"
	"github.com/b2bflow/front-forms/internal/session"
	"github.com/b2bflow/front-forms/internal/usecase"
)

const maxBodyBytes = 16 << 10

type IntakeUseCase interface {
	Start(ctx context.Context, in usecase.StartInput) (usecase.IntakeResult, error)
	Get(ctx context.Context, id string) (usecase.IntakeResult, error)
	Answer(ctx context.Context, id, answer string) (usecase.IntakeResult, error)
	SelectDate(ctx context.Context, id, date string) (usecase.IntakeResult, error)
	SelectSlot(ctx context.Context, id, slot string) (usecase.IntakeResult, error)
	Confirm(ctx context.Context, id string) (usecase.IntakeResult, error)
	ReloadAvailability(ctx context.Context, id string) (usecase.IntakeResult, error)
}

type ConfirmationUseCase interface {
	Check(ctx context.Context, token string) usecase.ConfirmationResult
}

// Handler serves the intake widget API over net/http and API Gateway.
type Handler struct {
	intake   IntakeUseCase
	confirm  ConfirmationUseCase
	sessions *session.Store
	router   chi.Router

	logger  *slog.Logger
	obs     middleware.StatusObserver
	origins []string
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithStatusObserver reports every response status, e.g. to Prometheus.
func WithStatusObserver(o middleware.StatusObserver) Option {
	return func(h *Handler) {
		h.obs = o
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.origins = origins
	}
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type slotRequest struct {
	Time string `json:"time"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(intake IntakeUseCase, confirm ConfirmationUseCase, sessions *session.Store, opts ...Option) (*Handler, error) {
	if intake == nil {
		return nil, errors.New("handler: intake use case must not be nil")
	}
	if confirm == nil {
		return nil, errors.New("handler: confirmation use case must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("handler: session store must not be nil")
	}
	h := &Handler{
		intake:   intake,
		confirm:  confirm,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h, nil
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(h.logger, h.obs))
	r.Use(chimw.Recoverer)
	if len(h.origins) > 0 {
		r.Use(middleware.CORS(h.origins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/conversations", h.start)
	r.Route("/conversations/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/answers", h.answer)
		r.Post("/schedule/reload", h.reload)
		r.Post("/schedule/date", h.selectDate)
		r.Post("/schedule/slot", h.selectSlot)
		r.Post("/schedule/confirm", h.confirmBooking)
	})

	r.Get("/confirmacao", h.confirmation)
	r.Post("/confirmacao/novo", h.newBooking)
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	_, hasSession := h.sessions.Read(r)
	res, err := h.intake.Start(r.Context(), usecase.StartInput{HasSession: hasSession})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Redirect != "" {
		writeJSON(w, http.StatusOK, redirectResponse{Redirect: res.Redirect})
		return
	}
	writeJSON(w, http.StatusCreated, res.View)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.intake.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, res, err)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.intake.Answer(r.Context(), chi.URLParam(r, "id"), req.Answer)
	h.respond(w, r, res, err)
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	res, err := h.intake.ReloadAvailability(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, res, err)
}

func (h *Handler) selectDate(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.intake.SelectDate(r.Context(), chi.URLParam(r, "id"), req.Date)
	h.respond(w, r, res, err)
}

func (h *Handler) selectSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.intake.SelectSlot(r.Context(), chi.URLParam(r, "id"), req.Time)
	h.respond(w, r, res, err)
}

func (h *Handler) confirmBooking(w http.ResponseWriter, r *http.Request) {
	res, err := h.intake.Confirm(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, res, err)
}

func (h *Handler) confirmation(w http.ResponseWriter, r *http.Request) {
	token, _ := h.sessions.Read(r)
	res := h.confirm.Check(r.Context(), token)
	if !res.Valid {
		if res.ClearSession {
			h.sessions.Clear(w)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, res.View)
}

func (h *Handler) newBooking(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// respond writes the conversation view and, after a booking, the session cookie.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res usecase.IntakeResult, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Session != nil {
		h.sessions.Write(w, res.Session.Token, res.Session.Expires)
	}
	writeJSON(w, http.StatusOK, res.View)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body"})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, reason := usecase.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"correlation_id", middleware.CorrelationID(r.Context()),
			"code", code,
			"err", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: string(code), Reason: reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorValidation:
		return http.StatusUnprocessableEntity
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorBusy, usecase.ErrorConflict, usecase.ErrorInvalidTransition:
		return http.StatusConflict
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
