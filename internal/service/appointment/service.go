package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinic-api/internal/auth"
	"clinic-api/internal/lock"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

const (
	noteCreated   = "Appointment requested by patient"
	noteConfirmed = "Confirmed by therapist/admin"
	notePaid      = "Marked as paid manually by therapist/admin"
	noteUpdated   = "Updated by therapist/admin"
)

type Store interface {
	CreateAppointment(ctx context.Context, a *model.Appointment, ev *model.AppointmentEvent) error
	AppointmentByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, error)
	MutateAppointment(ctx context.Context, id uuid.UUID, fn store.Mutation) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	AppointmentEvents(ctx context.Context, id uuid.UUID) ([]model.AppointmentEvent, error)
	PatientByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}

type Service struct {
	store    Store
	locker   lock.Locker
	lockTTL  time.Duration
	lockWait time.Duration
	now      func() time.Time
}

func New(st Store, locker lock.Locker) *Service {
	return &Service{
		store:    st,
		locker:   locker,
		lockTTL:  10 * time.Second,
		lockWait: 3 * time.Second,
		now:      time.Now,
	}
}

type RequestInput struct {
	UserID         *uuid.UUID // honoured for admins only
	PatientID      *uuid.UUID
	Description    string
	Comment        *string
	Considerations *string
	RequestedStart *time.Time
	RequestedEnd   *time.Time
}

type Patch struct {
	Description    *string
	Comment        *string
	Considerations *string
	RequestedStart *time.Time
	RequestedEnd   *time.Time
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
}

func strp(s string) *string { return &s }

func ordered(start, end *time.Time) bool {
	return start == nil || end == nil || end.After(*start)
}

func (s *Service) Request(ctx context.Context, id auth.Identity, in RequestInput) (*model.Appointment, error) {
	const op = "appointment.Request"

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, ErrDescriptionRequired
	}
	if !ordered(in.RequestedStart, in.RequestedEnd) {
		return nil, ErrRequestedOrder
	}

	owner := id.UserID
	if id.IsAdmin() && in.UserID != nil {
		owner = *in.UserID
	}

	if in.PatientID != nil {
		p, err := s.store.PatientByID(ctx, *in.PatientID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownPatient
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !id.IsAdmin() && (p.OwnerUserID == nil || *p.OwnerUserID != id.UserID) {
			return nil, ErrNotOwner
		}
	}

	a := &model.Appointment{
		ID:        uuid.New(),
		UserID:    owner,
		PatientID: in.PatientID,
		Fields: model.StructuredFields{
			Description:    desc,
			Comment:        in.Comment,
			Considerations: in.Considerations,
		},
		RequestedStart: in.RequestedStart,
		RequestedEnd:   in.RequestedEnd,
		Status:         model.StatusRequested,
	}
	ev := &model.AppointmentEvent{
		EventType: model.EventCreated,
		NewValue:  strp(model.StatusRequested),
		Note:      strp(noteCreated),
	}

	if err := s.store.CreateAppointment(ctx, a, ev); err != nil {
		if errors.Is(err, store.ErrReference) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Confirm sets the schedule and moves the appointment to confirmed. Both
// bounds are checked before anything is touched.
func (s *Service) Confirm(ctx context.Context, id auth.Identity, apptID uuid.UUID, start, end *time.Time) (*model.Appointment, error) {
	if !id.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if start == nil || end == nil {
		return nil, ErrScheduleRequired
	}
	if !end.After(*start) {
		return nil, ErrScheduleOrder
	}

	return s.mutate(ctx, "appointment.Confirm", apptID, func(a *model.Appointment) (*model.AppointmentEvent, error) {
		old := a.Status
		st, en := *start, *end
		a.Status = model.StatusConfirmed
		a.ScheduledStart, a.ScheduledEnd = &st, &en
		return &model.AppointmentEvent{
			EventType: model.EventStatusChanged,
			OldValue:  strp(old),
			NewValue:  strp(model.StatusConfirmed),
			Note:      strp(noteConfirmed),
		}, nil
	})
}

// MarkPaid is idempotent: a second call on a paid appointment changes
// nothing and logs nothing.
func (s *Service) MarkPaid(ctx context.Context, id auth.Identity, apptID uuid.UUID) (*model.Appointment, error) {
	if !id.IsAdmin() {
		return nil, ErrAdminOnly
	}

	return s.mutate(ctx, "appointment.MarkPaid", apptID, func(a *model.Appointment) (*model.AppointmentEvent, error) {
		if a.IsPaid {
			return nil, nil
		}
		now := s.now().UTC()
		a.IsPaid = true
		a.PaidAt = &now
		return &model.AppointmentEvent{
			EventType: model.EventPaymentMarked,
			OldValue:  strp("unpaid"),
			NewValue:  strp("paid"),
			Note:      strp(notePaid),
		}, nil
	})
}

// Update applies an admin patch. The packed text fields are re-encoded in the
// structured form, so legacy rows are upgraded on first edit.
func (s *Service) Update(ctx context.Context, id auth.Identity, apptID uuid.UUID, p Patch) (*model.Appointment, error) {
	if !id.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return nil, ErrDescriptionRequired
	}

	return s.mutate(ctx, "appointment.Update", apptID, func(a *model.Appointment) (*model.AppointmentEvent, error) {
		var changed []string
		if p.Description != nil || p.Comment != nil || p.Considerations != nil {
			a.Fields = model.Patch(a.Fields, p.Description, p.Comment, p.Considerations)
			if p.Description != nil {
				changed = append(changed, "description")
			}
			if p.Comment != nil {
				changed = append(changed, "comment")
			}
			if p.Considerations != nil {
				changed = append(changed, "considerations")
			}
		}
		setTime := func(dst **time.Time, v *time.Time, name string) {
			if v == nil {
				return
			}
			t := *v
			*dst = &t
			changed = append(changed, name)
		}
		setTime(&a.RequestedStart, p.RequestedStart, "requested_start")
		setTime(&a.RequestedEnd, p.RequestedEnd, "requested_end")
		setTime(&a.ScheduledStart, p.ScheduledStart, "scheduled_start")
		setTime(&a.ScheduledEnd, p.ScheduledEnd, "scheduled_end")

		if len(changed) == 0 {
			return nil, nil
		}
		if !ordered(a.RequestedStart, a.RequestedEnd) {
			return nil, ErrRequestedOrder
		}
		if !ordered(a.ScheduledStart, a.ScheduledEnd) {
			return nil, ErrScheduleOrder
		}
		return &model.AppointmentEvent{
			EventType: model.EventUpdated,
			NewValue:  strp(strings.Join(changed, ",")),
			Note:      strp(noteUpdated),
		}, nil
	})
}

// mutate serializes changes to one appointment across instances and maps
// store errors.
func (s *Service) mutate(ctx context.Context, op string, apptID uuid.UUID, fn store.Mutation) (*model.Appointment, error) {
	key := "appointment:" + apptID.String()
	token := lock.NewToken()
	if err := lock.Acquire(ctx, s.locker, key, token, s.lockTTL, s.lockWait); err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), key, token)

	a, err := s.store.MutateAppointment(ctx, apptID, fn)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isDomain(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func isDomain(err error) bool {
	return errors.Is(err, ErrRequestedOrder) || errors.Is(err, ErrScheduleOrder)
}

// List forces non-admin callers onto their own appointments.
func (s *Service) List(ctx context.Context, id auth.Identity, status *string, userID *uuid.UUID) ([]model.Appointment, error) {
	f := store.AppointmentFilter{Status: status, UserID: userID}
	if !id.IsAdmin() {
		own := id.UserID
		f.UserID = &own
	}
	out, err := s.store.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("appointment.List: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id auth.Identity, apptID uuid.UUID) (*model.Appointment, error) {
	a, err := s.store.AppointmentByID(ctx, apptID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment.Get: %w", err)
	}
	if !id.IsAdmin() && a.UserID != id.UserID {
		return nil, ErrNotOwner
	}
	return a, nil
}

func (s *Service) Events(ctx context.Context, id auth.Identity, apptID uuid.UUID) ([]model.AppointmentEvent, error) {
	if _, err := s.Get(ctx, id, apptID); err != nil {
		return nil, err
	}
	evs, err := s.store.AppointmentEvents(ctx, apptID)
	if err != nil {
		return nil, fmt.Errorf("appointment.Events: %w", err)
	}
	return evs, nil
}

// Delete is a hard delete; the owner or an admin may do it.
func (s *Service) Delete(ctx context.Context, id auth.Identity, apptID uuid.UUID) error {
	if _, err := s.Get(ctx, id, apptID); err != nil {
		return err
	}
	err := s.store.DeleteAppointment(ctx, apptID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("appointment.Delete: %w", err)
	}
	return nil
}
