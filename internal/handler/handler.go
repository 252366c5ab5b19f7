// Package handler is the HTTP surface: a chi router whose handlers decode
// JSON, call a service and map service errors to status codes.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"clinic-api/internal/apperr"
	"clinic-api/internal/auth"
	"clinic-api/internal/chatbot"
	"clinic-api/internal/logger"
	"clinic-api/internal/middleware"
	"clinic-api/internal/service/account"
	"clinic-api/internal/service/appointment"
	"clinic-api/internal/service/availability"
	"clinic-api/internal/service/patient"
	"clinic-api/internal/service/planner"
	"clinic-api/internal/service/site"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the router needs. Services are concrete; nil services
// are fine for routes a test does not hit.
type Deps struct {
	Log          *slog.Logger
	Secret       string
	Debug        bool // echo internal error text to clients
	CORSOrigins  []string
	Limiter      *middleware.RateLimiter
	DB           Pinger
	Accounts     *account.Service
	Appointments *appointment.Service
	Planner      *planner.Service
	Patients     *patient.Service
	Site         *site.Service
	Availability *availability.Service
	Chatbot      *chatbot.Bot
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return &Handler{Deps: d}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(h.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: h.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/healthz", h.health)
	r.Post("/chatbot/message", h.chatbotMessage)
	r.Mount("/planner", h.plannerRoutes())
	r.Mount("/site", h.siteRoutes())

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", h.authRoutes())
		r.Mount("/planner", h.plannerRoutes())
		r.Mount("/site", h.siteRoutes())
		r.Post("/chatbot/message", h.chatbotMessage)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.Secret))
			r.Mount("/patients", h.patientRoutes())
			r.Mount("/appointments", h.appointmentRoutes())
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.Secret), middleware.RequireAdmin)
			r.Mount("/availability", h.availabilityRoutes())
		})
	})

	return r
}

func (h *Handler) limit(next http.Handler) http.Handler {
	if h.Limiter == nil {
		return next
	}
	return h.Limiter.Limit(next)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			h.Log.Warn("health check failed", logger.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// ----- helpers -----

func (h *Handler) opLog(r *http.Request, op string) *slog.Logger {
	return h.Log.With(
		slog.String("op", op),
		slog.String("request_id", chimw.GetReqID(r.Context())),
	)
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func message(w http.ResponseWriter, r *http.Request, msg string) {
	respond(w, r, http.StatusOK, map[string]string{"message": msg})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	respond(w, r, http.StatusBadRequest, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes the error body. Anything that is not an apperr is logged and
// hidden from the client outside development.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if msg, ok := apperr.Message(err); ok {
		respond(w, r, statusFor(err), map[string]string{"error": msg})
		return
	}

	log.Error("request failed", logger.Err(err))
	msg := "internal server error"
	if h.Debug {
		msg = err.Error()
	}
	respond(w, r, http.StatusInternalServerError, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if _, ok := apperr.Message(err); ok {
			return err
		}
		return apperr.Validation("invalid JSON body")
	}
	return nil
}

func identity(r *http.Request) auth.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id")
	}
	return id, nil
}

func uuidQuery(r *http.Request, key string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid " + key)
	}
	return &id, nil
}

func stringQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}
