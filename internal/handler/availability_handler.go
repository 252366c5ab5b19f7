package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-api/internal/service/availability"
)

// mounted behind Auth + RequireAdmin
func (h *Handler) availabilityRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/weekly", h.listWeekly)
	r.Post("/weekly", h.createWeekly)
	r.Delete("/weekly/{id}", h.deleteWeekly)
	r.Get("/time-off", h.listTimeOff)
	r.Post("/time-off", h.createTimeOff)
	r.Delete("/time-off/{id}", h.deleteTimeOff)
	return r
}

func (h *Handler) listWeekly(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.listWeekly")

	list, err := h.Availability.ListWeekly(r.Context())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

type weeklyRequest struct {
	DayOfWeek *int   `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  *bool  `json:"is_active"`
}

func (h *Handler) createWeekly(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.createWeekly")

	var req weeklyRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	if req.DayOfWeek == nil {
		badRequest(w, r, "day_of_week is required")
		return
	}
	slot, err := h.Availability.CreateWeekly(r.Context(), availability.WeeklyInput{
		DayOfWeek: *req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusCreated, slot)
}

func (h *Handler) deleteWeekly(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.deleteWeekly")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Availability.DeleteWeekly(r.Context(), id); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "availability deleted")
}

func (h *Handler) listTimeOff(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.listTimeOff")

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
	list, err := h.Availability.ListTimeOff(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

type timeOffRequest struct {
	StartAt *timestamp `json:"start_at"`
	EndAt   *timestamp `json:"end_at"`
	Reason  *string    `json:"reason"`
}

func (h *Handler) createTimeOff(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.createTimeOff")

	var req timeOffRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	off, err := h.Availability.CreateTimeOff(r.Context(), req.StartAt.ptr(), req.EndAt.ptr(), req.Reason)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusCreated, off)
}

func (h *Handler) deleteTimeOff(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.deleteTimeOff")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Availability.DeleteTimeOff(r.Context(), id); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "time off deleted")
}
