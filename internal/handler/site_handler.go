package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-api/internal/middleware"
)

// GET is public, PUT needs an admin.
func (h *Handler) siteRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/info", h.siteInfo)
	r.Get("/location", h.siteLocation)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.Secret), middleware.RequireAdmin)
		r.Put("/info", h.setSiteInfo)
		r.Put("/location", h.setSiteLocation)
	})
	return r
}

func (h *Handler) siteInfo(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.siteInfo")

	text, err := h.Site.Info(r.Context())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"info": text})
}

func (h *Handler) setSiteInfo(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.setSiteInfo")

	var req struct {
		Info *string `json:"info"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	if req.Info == nil {
		badRequest(w, r, "info es requerido")
		return
	}
	if _, err := h.Site.SetInfo(r.Context(), *req.Info); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "Info actualizada correctamente")
}

func (h *Handler) siteLocation(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.siteLocation")

	text, err := h.Site.Location(r.Context())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"location": text})
}

func (h *Handler) setSiteLocation(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.setSiteLocation")

	var req struct {
		Location *string `json:"location"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	if req.Location == nil {
		badRequest(w, r, "location es requerido")
		return
	}
	if _, err := h.Site.SetLocation(r.Context(), *req.Location); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "Ubicación actualizada correctamente")
}
