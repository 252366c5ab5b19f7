package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinic-api/internal/apperr"
	"clinic-api/internal/middleware"
	"clinic-api/internal/model"
	"clinic-api/internal/service/appointment"
)

// expects Auth to have run already
func (h *Handler) appointmentRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listAppointments)
	r.Post("/", h.requestAppointment)
	r.Get("/{id}", h.getAppointment)
	r.Get("/{id}/events", h.appointmentEvents)
	r.Delete("/{id}", h.deleteAppointment)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/{id}/confirm", h.confirmAppointment)
		r.Post("/{id}/mark-paid", h.markPaid)
		r.Patch("/{id}", h.updateAppointment)
	})
	return r
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.listAppointments")

	userID, err := uuidQuery(r, "user_id")
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	status := stringQuery(r, "status")
	if status != nil && *status != model.StatusRequested && *status != model.StatusConfirmed {
		h.fail(w, r, log, apperr.Validation("invalid status, must be requested or confirmed"))
		return
	}

	list, err := h.Appointments.List(r.Context(), identity(r), status, userID)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

type appointmentRequest struct {
	UserID         *uuid.UUID `json:"user_id"`
	PatientID      *uuid.UUID `json:"patient_id"`
	Description    string     `json:"description"`
	Comment        *string    `json:"comment"`
	Considerations *string    `json:"considerations"`
	RequestedStart *timestamp `json:"requested_start"`
	RequestedEnd   *timestamp `json:"requested_end"`
}

func (h *Handler) requestAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.requestAppointment")

	var req appointmentRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	a, err := h.Appointments.Request(r.Context(), identity(r), appointment.RequestInput{
		UserID:         req.UserID,
		PatientID:      req.PatientID,
		Description:    req.Description,
		Comment:        req.Comment,
		Considerations: req.Considerations,
		RequestedStart: req.RequestedStart.ptr(),
		RequestedEnd:   req.RequestedEnd.ptr(),
	})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("appointment requested", "appointment_id", a.ID.String())
	respond(w, r, http.StatusCreated, a)
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.getAppointment")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	a, err := h.Appointments.Get(r.Context(), identity(r), id)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, a)
}

func (h *Handler) appointmentEvents(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.appointmentEvents")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	evs, err := h.Appointments.Events(r.Context(), identity(r), id)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, evs)
}

type confirmRequest struct {
	ScheduledStart *timestamp `json:"scheduled_start"`
	ScheduledEnd   *timestamp `json:"scheduled_end"`
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.confirmAppointment")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	var req confirmRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	a, err := h.Appointments.Confirm(r.Context(), identity(r), id, req.ScheduledStart.ptr(), req.ScheduledEnd.ptr())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("appointment confirmed", "appointment_id", id.String())
	respond(w, r, http.StatusOK, a)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.markPaid")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	a, err := h.Appointments.MarkPaid(r.Context(), identity(r), id)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, a)
}

type appointmentPatch struct {
	Description    *string    `json:"description"`
	Comment        *string    `json:"comment"`
	Considerations *string    `json:"considerations"`
	RequestedStart *timestamp `json:"requested_start"`
	RequestedEnd   *timestamp `json:"requested_end"`
	ScheduledStart *timestamp `json:"scheduled_start"`
	ScheduledEnd   *timestamp `json:"scheduled_end"`
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.updateAppointment")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	var req appointmentPatch
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	a, err := h.Appointments.Update(r.Context(), identity(r), id, appointment.Patch{
		Description:    req.Description,
		Comment:        req.Comment,
		Considerations: req.Considerations,
		RequestedStart: req.RequestedStart.ptr(),
		RequestedEnd:   req.RequestedEnd.ptr(),
		ScheduledStart: req.ScheduledStart.ptr(),
		ScheduledEnd:   req.ScheduledEnd.ptr(),
	})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, a)
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.deleteAppointment")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	if err := h.Appointments.Delete(r.Context(), identity(r), id); err != nil {
		h.fail(w, r, log, err)
		return
	}
	message(w, r, "appointment deleted")
}
