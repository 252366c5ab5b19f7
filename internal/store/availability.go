package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinic-api/internal/model"
)

func (s *Store) ListWeeklyAvailability(ctx context.Context) ([]model.WeeklyAvailability, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		        is_active, created_at
		 FROM therapist_weekly_availability
		 ORDER BY day_of_week, start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WeeklyAvailability{}
	for rows.Next() {
		var w model.WeeklyAvailability
		var day int16
		if err := rows.Scan(&w.ID, &day, &w.StartTime, &w.EndTime, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.DayOfWeek = int(day)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) CreateWeeklyAvailability(ctx context.Context, w *model.WeeklyAvailability) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO therapist_weekly_availability (id, day_of_week, start_time, end_time, is_active)
		 VALUES ($1, $2, $3::time, $4::time, $5)
		 RETURNING created_at`,
		w.ID, int16(w.DayOfWeek), w.StartTime, w.EndTime, w.IsActive,
	).Scan(&w.CreatedAt)
	return mapErr(err)
}

func (s *Store) DeleteWeeklyAvailability(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM therapist_weekly_availability WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

// ListTimeOff returns ranges touching [from, to]; nil bounds are open.
func (s *Store) ListTimeOff(ctx context.Context, from, to *time.Time) ([]model.TimeOff, error) {
	q := `SELECT id, start_at, end_at, reason, created_at FROM therapist_time_off WHERE 1=1`
	var args []any
	if from != nil {
		args = append(args, *from)
		q += fmt.Sprintf(` AND end_at >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += fmt.Sprintf(` AND start_at <= $%d`, len(args))
	}
	q += ` ORDER BY start_at`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TimeOff{}
	for rows.Next() {
		var t model.TimeOff
		if err := rows.Scan(&t.ID, &t.StartAt, &t.EndAt, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTimeOff(ctx context.Context, t *model.TimeOff) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO therapist_time_off (id, start_at, end_at, reason)
		 VALUES ($1,$2,$3,$4)
		 RETURNING created_at`,
		t.ID, t.StartAt, t.EndAt, t.Reason,
	).Scan(&t.CreatedAt)
	return mapErr(err)
}

func (s *Store) DeleteTimeOff(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM therapist_time_off WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}
