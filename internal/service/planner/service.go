package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinic-api/internal/apperr"
	"clinic-api/internal/auth"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

var (
	ErrRangeRequired = apperr.Validation("from and to are required")
	ErrRangeOrder    = apperr.Validation("to must not be before from")
	ErrInvalidKind   = apperr.Validation("invalid kind, must be one of event, manual_appointment, block")
	ErrTitleRequired = apperr.Validation("title is required")
	ErrTimesRequired = apperr.Validation("start_at and end_at are required")
	ErrTimeOrder     = apperr.Validation("end_at must be after start_at")
	ErrUnknownAppt   = apperr.Validation("appointment not found")
	ErrNotFound      = apperr.NotFound("planner item not found")
)

type Store interface {
	CreatePlannerItem(ctx context.Context, it *model.PlannerItem) error
	PlannerItemByID(ctx context.Context, id uuid.UUID) (*model.PlannerItem, error)
	UpdatePlannerItem(ctx context.Context, it *model.PlannerItem) error
	DeletePlannerItem(ctx context.Context, id uuid.UUID) error
	ListPlannerItems(ctx context.Context, from, to time.Time, kind *string) ([]model.PlannerItem, error)
}

type Service struct {
	store Store
}

func New(st Store) *Service {
	return &Service{store: st}
}

type Input struct {
	Kind          *string
	Title         string
	Note          *string
	StartAt       *time.Time
	EndAt         *time.Time
	AllDay        bool
	Location      *string
	AppointmentID *uuid.UUID
}

type Patch struct {
	Kind          *string
	Title         *string
	Note          *string
	StartAt       *time.Time
	EndAt         *time.Time
	AllDay        *bool
	Location      *string
	AppointmentID *uuid.UUID
}

func validate(it *model.PlannerItem) error {
	if !model.ValidKind(it.Kind) {
		return ErrInvalidKind
	}
	if it.Title == "" {
		return ErrTitleRequired
	}
	if !it.EndAt.After(it.StartAt) {
		return ErrTimeOrder
	}
	return nil
}

// List returns the items overlapping [from, to]. Both bounds are inclusive.
func (s *Service) List(ctx context.Context, from, to *time.Time, kind *string) ([]model.PlannerItem, error) {
	if from == nil || to == nil {
		return nil, ErrRangeRequired
	}
	if to.Before(*from) {
		return nil, ErrRangeOrder
	}
	if kind != nil && !model.ValidKind(*kind) {
		return nil, ErrInvalidKind
	}
	items, err := s.store.ListPlannerItems(ctx, *from, *to, kind)
	if err != nil {
		return nil, fmt.Errorf("planner.List: %w", err)
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, id auth.Identity, in Input) (*model.PlannerItem, error) {
	const op = "planner.Create"

	if in.StartAt == nil || in.EndAt == nil {
		return nil, ErrTimesRequired
	}
	kind := model.KindEvent
	if in.Kind != nil {
		kind = *in.Kind
	}
	creator := id.UserID
	it := &model.PlannerItem{
		ID:            uuid.New(),
		Kind:          kind,
		Title:         strings.TrimSpace(in.Title),
		Note:          in.Note,
		StartAt:       in.StartAt.UTC(),
		EndAt:         in.EndAt.UTC(),
		AllDay:        in.AllDay,
		Location:      in.Location,
		CreatedBy:     &creator,
		AppointmentID: in.AppointmentID,
	}
	if err := validate(it); err != nil {
		return nil, err
	}

	if err := s.store.CreatePlannerItem(ctx, it); err != nil {
		if errors.Is(err, store.ErrReference) {
			return nil, ErrUnknownAppt
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return it, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PlannerItem, error) {
	it, err := s.store.PlannerItemByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("planner.Get: %w", err)
	}
	return it, nil
}

// Update overlays the patch and validates the merged item before writing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (*model.PlannerItem, error) {
	const op = "planner.Update"

	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Kind != nil {
		it.Kind = *p.Kind
	}
	if p.Title != nil {
		it.Title = strings.TrimSpace(*p.Title)
	}
	if p.Note != nil {
		it.Note = p.Note
	}
	if p.StartAt != nil {
		it.StartAt = p.StartAt.UTC()
	}
	if p.EndAt != nil {
		it.EndAt = p.EndAt.UTC()
	}
	if p.AllDay != nil {
		it.AllDay = *p.AllDay
	}
	if p.Location != nil {
		it.Location = p.Location
	}
	if p.AppointmentID != nil {
		it.AppointmentID = p.AppointmentID
	}
	if err := validate(it); err != nil {
		return nil, err
	}

	err = s.store.UpdatePlannerItem(ctx, it)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, store.ErrReference):
		return nil, ErrUnknownAppt
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return it, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeletePlannerItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("planner.Delete: %w", err)
	}
	return nil
}
