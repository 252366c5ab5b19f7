package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinic-api/internal/apperr"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

const clockLayout = "15:04"

var (
	ErrInvalidDay    = apperr.Validation("day_of_week must be between 0 and 6")
	ErrInvalidClock  = apperr.Validation("start_time and end_time must be HH:MM")
	ErrClockOrder    = apperr.Validation("end_time must be after start_time")
	ErrTimesRequired = apperr.Validation("start_at and end_at are required")
	ErrTimeOrder     = apperr.Validation("end_at must be after start_at")
	ErrDuplicate     = apperr.Conflict("availability window already exists")
	ErrSlotNotFound  = apperr.NotFound("availability not found")
	ErrOffNotFound   = apperr.NotFound("time off not found")
)

type Store interface {
	ListWeeklyAvailability(ctx context.Context) ([]model.WeeklyAvailability, error)
	CreateWeeklyAvailability(ctx context.Context, w *model.WeeklyAvailability) error
	DeleteWeeklyAvailability(ctx context.Context, id uuid.UUID) error
	ListTimeOff(ctx context.Context, from, to *time.Time) ([]model.TimeOff, error)
	CreateTimeOff(ctx context.Context, t *model.TimeOff) error
	DeleteTimeOff(ctx context.Context, id uuid.UUID) error
}

// Service keeps the therapist's recurring weekly windows and one-off time off.
// Nothing here checks bookings against them.
type Service struct {
	store Store
}

func New(st Store) *Service {
	return &Service{store: st}
}

type WeeklyInput struct {
	DayOfWeek int
	StartTime string
	EndTime   string
	IsActive  *bool
}

func (s *Service) ListWeekly(ctx context.Context) ([]model.WeeklyAvailability, error) {
	out, err := s.store.ListWeeklyAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability.ListWeekly: %w", err)
	}
	return out, nil
}

func (s *Service) CreateWeekly(ctx context.Context, in WeeklyInput) (*model.WeeklyAvailability, error) {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, ErrInvalidDay
	}
	start, err1 := time.Parse(clockLayout, in.StartTime)
	end, err2 := time.Parse(clockLayout, in.EndTime)
	if err1 != nil || err2 != nil {
		return nil, ErrInvalidClock
	}
	if !end.After(start) {
		return nil, ErrClockOrder
	}

	w := &model.WeeklyAvailability{
		ID:        uuid.New(),
		DayOfWeek: in.DayOfWeek,
		StartTime: start.Format(clockLayout),
		EndTime:   end.Format(clockLayout),
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	if err := s.store.CreateWeeklyAvailability(ctx, w); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("availability.CreateWeekly: %w", err)
	}
	return w, nil
}

func (s *Service) DeleteWeekly(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeleteWeeklyAvailability(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("availability.DeleteWeekly: %w", err)
	}
	return nil
}

// ListTimeOff returns the ranges touching [from, to]; either bound may be nil.
func (s *Service) ListTimeOff(ctx context.Context, from, to *time.Time) ([]model.TimeOff, error) {
	out, err := s.store.ListTimeOff(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability.ListTimeOff: %w", err)
	}
	return out, nil
}

func (s *Service) CreateTimeOff(ctx context.Context, start, end *time.Time, reason *string) (*model.TimeOff, error) {
	if start == nil || end == nil {
		return nil, ErrTimesRequired
	}
	if !end.After(*start) {
		return nil, ErrTimeOrder
	}
	t := &model.TimeOff{ID: uuid.New(), StartAt: start.UTC(), EndAt: end.UTC(), Reason: reason}
	if err := s.store.CreateTimeOff(ctx, t); err != nil {
		return nil, fmt.Errorf("availability.CreateTimeOff: %w", err)
	}
	return t, nil
}

func (s *Service) DeleteTimeOff(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeleteTimeOff(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOffNotFound
	}
	if err != nil {
		return fmt.Errorf("availability.DeleteTimeOff: %w", err)
	}
	return nil
}
