package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clinic-api/internal/model"
)

const appointmentSelect = `SELECT a.id, a.user_id, a.patient_id, a.comment,
	a.requested_start, a.requested_end, a.scheduled_start, a.scheduled_end,
	a.status, a.is_paid, a.paid_at, a.created_at, a.updated_at, u.full_name
	FROM appointments a LEFT JOIN users u ON u.id = a.user_id`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	var comment, fullName *string
	err := row.Scan(&a.ID, &a.UserID, &a.PatientID, &comment,
		&a.RequestedStart, &a.RequestedEnd, &a.ScheduledStart, &a.ScheduledEnd,
		&a.Status, &a.IsPaid, &a.PaidAt, &a.CreatedAt, &a.UpdatedAt, &fullName)
	if err != nil {
		return nil, mapErr(err)
	}
	a.Fields = model.Unpack(comment)
	if fullName != nil {
		a.User = &model.UserRef{FullName: *fullName}
	}
	return a, nil
}

func insertEvent(ctx context.Context, q querier, ev *model.AppointmentEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	return q.QueryRow(ctx,
		`INSERT INTO appointment_events (id, appointment_id, event_type, old_value, new_value, note)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at`,
		ev.ID, ev.AppointmentID, ev.EventType, ev.OldValue, ev.NewValue, ev.Note,
	).Scan(&ev.CreatedAt)
}

// CreateAppointment inserts the appointment and its first audit event in one
// transaction.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment, ev *model.AppointmentEvent) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (id, user_id, patient_id, comment, requested_start, requested_end,
		                           scheduled_start, scheduled_end, status, is_paid, paid_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.PatientID, model.Pack(a.Fields), a.RequestedStart, a.RequestedEnd,
		a.ScheduledStart, a.ScheduledEnd, a.Status, a.IsPaid, a.PaidAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}

	ev.AppointmentID = a.ID
	if err := insertEvent(ctx, tx, ev); err != nil {
		return mapErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// pick up the owner's name for the response
	var name string
	if err := s.pool.QueryRow(ctx, `SELECT full_name FROM users WHERE id = $1`, a.UserID).Scan(&name); err == nil {
		a.User = &model.UserRef{FullName: name}
	}
	return nil
}

func (s *Store) AppointmentByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

type AppointmentFilter struct {
	Status *string
	UserID *uuid.UUID
}

func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	q := appointmentSelect + ` WHERE 1=1`
	var args []any
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		q += fmt.Sprintf(` AND a.user_id = $%d`, len(args))
	}
	q += ` ORDER BY a.created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Mutation edits the locked row in place and returns the audit event that
// describes the change. Returning a nil event means nothing changed.
type Mutation func(a *model.Appointment) (*model.AppointmentEvent, error)

// MutateAppointment loads the row FOR UPDATE, applies fn and, when fn reports
// a change, writes the row and the event in the same transaction.
func (s *Store) MutateAppointment(ctx context.Context, id uuid.UUID, fn Mutation) (*model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	a, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if err != nil {
		return nil, err
	}

	ev, err := fn(a)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return a, tx.Commit(ctx)
	}

	err = tx.QueryRow(ctx,
		`UPDATE appointments
		 SET comment=$2, requested_start=$3, requested_end=$4, scheduled_start=$5, scheduled_end=$6,
		     status=$7, is_paid=$8, paid_at=$9, updated_at=NOW()
		 WHERE id=$1
		 RETURNING updated_at`,
		a.ID, model.Pack(a.Fields), a.RequestedStart, a.RequestedEnd, a.ScheduledStart, a.ScheduledEnd,
		a.Status, a.IsPaid, a.PaidAt,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}

	ev.AppointmentID = a.ID
	if err := insertEvent(ctx, tx, ev); err != nil {
		return nil, mapErr(err)
	}
	return a, tx.Commit(ctx)
}

// DeleteAppointment removes the row; its events go with it (ON DELETE CASCADE).
func (s *Store) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

func (s *Store) AppointmentEvents(ctx context.Context, appointmentID uuid.UUID) ([]model.AppointmentEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, appointment_id, event_type, old_value, new_value, note, created_at
		 FROM appointment_events
		 WHERE appointment_id = $1
		 ORDER BY created_at, id`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AppointmentEvent{}
	for rows.Next() {
		var ev model.AppointmentEvent
		if err := rows.Scan(&ev.ID, &ev.AppointmentID, &ev.EventType, &ev.OldValue, &ev.NewValue,
			&ev.Note, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
