package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-api/internal/middleware"
)

const forgotPasswordReply = "If the email exists, a reset link has been sent"

func (h *Handler) authRoutes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.limit)
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/forgot-password", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.Secret))
		r.Get("/me", h.me)
		r.Put("/me", h.updateMe)
		r.Put("/me/password", h.changePassword)
	})
	return r
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.register")

	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	u, err := h.Accounts.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("user registered", "user_id", u.ID.String())
	respond(w, r, http.StatusCreated, map[string]any{"user": u})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.login")

	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	res, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.me")

	u, err := h.Accounts.Me(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{"user": u})
}

type updateMeRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.updateMe")

	var req updateMeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	u, err := h.Accounts.UpdateMe(r.Context(), identity(r), req.FullName, req.Email)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{"user": u})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.changePassword")

	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Accounts.ChangePassword(r.Context(), identity(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "password updated")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// the reply is the same whether or not the address exists
func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.forgotPassword")

	var req forgotPasswordRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, forgotPasswordReply)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.resetPassword")

	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Accounts.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "password has been reset")
}
