package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinic-api/internal/middleware"
	"clinic-api/internal/service/planner"
)

func (h *Handler) plannerRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Auth(h.Secret), middleware.RequireAdmin)
	r.Get("/", h.listPlanner)
	r.Post("/", h.createPlannerItem)
	r.Get("/{id}", h.getPlannerItem)
	r.Put("/{id}", h.updatePlannerItem)
	r.Delete("/{id}", h.deletePlannerItem)
	return r
}

func (h *Handler) listPlanner(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.listPlanner")

	from, err := timeQuery(r, "from")
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	to, err := timeQuery(r, "to")
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	items, err := h.Planner.List(r.Context(), from, to, stringQuery(r, "kind"))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, items)
}

type plannerRequest struct {
	Kind          *string    `json:"kind"`
	Title         *string    `json:"title"`
	Note          *string    `json:"note"`
	StartAt       *timestamp `json:"start_at"`
	EndAt         *timestamp `json:"end_at"`
	AllDay        *bool      `json:"all_day"`
	Location      *string    `json:"location"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
}

func (h *Handler) createPlannerItem(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.createPlannerItem")

	var req plannerRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	in := planner.Input{
		Kind:          req.Kind,
		Note:          req.Note,
		StartAt:       req.StartAt.ptr(),
		EndAt:         req.EndAt.ptr(),
		Location:      req.Location,
		AppointmentID: req.AppointmentID,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.AllDay != nil {
		in.AllDay = *req.AllDay
	}

	it, err := h.Planner.Create(r.Context(), identity(r), in)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusCreated, it)
}

func (h *Handler) getPlannerItem(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.getPlannerItem")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	it, err := h.Planner.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, it)
}

func (h *Handler) updatePlannerItem(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.updatePlannerItem")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	var req plannerRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	it, err := h.Planner.Update(r.Context(), id, planner.Patch{
		Kind:          req.Kind,
		Title:         req.Title,
		Note:          req.Note,
		StartAt:       req.StartAt.ptr(),
		EndAt:         req.EndAt.ptr(),
		AllDay:        req.AllDay,
		Location:      req.Location,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, it)
}

func (h *Handler) deletePlannerItem(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.deletePlannerItem")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Planner.Delete(r.Context(), id); err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"ok": true})
}
