package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinic-api/internal/model"
	"clinic-api/internal/service/patient"
)

func (h *Handler) patientRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listPatients)
	r.Post("/", h.createPatient)
	r.Get("/{id}", h.getPatient)
	return r
}

func (h *Handler) listPatients(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.listPatients")

	owner, err := uuidQuery(r, "owner_user_id")
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	list, err := h.Patients.List(r.Context(), identity(r), owner)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

type patientRequest struct {
	OwnerUserID      *uuid.UUID  `json:"owner_user_id"`
	FullName         string      `json:"full_name"`
	RelationToBooker *string     `json:"relation_to_booker"`
	BirthDate        *model.Date `json:"birth_date"`
	Notes            *string     `json:"notes"`
}

func (h *Handler) createPatient(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.createPatient")

	var req patientRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	p, err := h.Patients.Create(r.Context(), identity(r), patient.Input{
		OwnerUserID:      req.OwnerUserID,
		FullName:         req.FullName,
		RelationToBooker: req.RelationToBooker,
		BirthDate:        req.BirthDate,
		Notes:            req.Notes,
	})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusCreated, p)
}

func (h *Handler) getPatient(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.getPatient")

	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	p, err := h.Patients.Get(r.Context(), identity(r), id)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	respond(w, r, http.StatusOK, p)
}
