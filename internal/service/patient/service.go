package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clinic-api/internal/apperr"
	"clinic-api/internal/auth"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

var (
	ErrNameRequired = apperr.Validation("full_name is required")
	ErrUnknownOwner = apperr.Validation("owner user not found")
	ErrNotFound     = apperr.NotFound("patient not found")
	ErrNotOwner     = apperr.Forbidden("not allowed to access this patient")
)

type Store interface {
	CreatePatient(ctx context.Context, p *model.Patient) error
	PatientByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	ListPatients(ctx context.Context, owner *uuid.UUID) ([]model.Patient, error)
}

type Service struct {
	store Store
}

func New(st Store) *Service {
	return &Service{store: st}
}

type Input struct {
	OwnerUserID      *uuid.UUID // admins only
	FullName         string
	RelationToBooker *string
	BirthDate        *model.Date
	Notes            *string
}

func (s *Service) Create(ctx context.Context, id auth.Identity, in Input) (*model.Patient, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, ErrNameRequired
	}
	owner := id.UserID
	if id.IsAdmin() && in.OwnerUserID != nil {
		owner = *in.OwnerUserID
	}

	p := &model.Patient{
		ID:               uuid.New(),
		OwnerUserID:      &owner,
		FullName:         name,
		RelationToBooker: in.RelationToBooker,
		BirthDate:        in.BirthDate,
		Notes:            in.Notes,
	}
	if err := s.store.CreatePatient(ctx, p); err != nil {
		if errors.Is(err, store.ErrReference) {
			return nil, ErrUnknownOwner
		}
		return nil, fmt.Errorf("patient.Create: %w", err)
	}
	return p, nil
}

// List is scoped to the caller unless the caller is an admin.
func (s *Service) List(ctx context.Context, id auth.Identity, owner *uuid.UUID) ([]model.Patient, error) {
	if !id.IsAdmin() {
		own := id.UserID
		owner = &own
	}
	out, err := s.store.ListPatients(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("patient.List: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id auth.Identity, patientID uuid.UUID) (*model.Patient, error) {
	p, err := s.store.PatientByID(ctx, patientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patient.Get: %w", err)
	}
	if !id.IsAdmin() && (p.OwnerUserID == nil || *p.OwnerUserID != id.UserID) {
		return nil, ErrNotOwner
	}
	return p, nil
}
