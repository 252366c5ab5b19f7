package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clinic-api/internal/model"
)

const plannerCols = `id, kind, title, note, start_at, end_at, all_day, location,
	created_by, appointment_id, created_at, updated_at`

func scanPlannerItem(row pgx.Row) (*model.PlannerItem, error) {
	it := &model.PlannerItem{}
	err := row.Scan(&it.ID, &it.Kind, &it.Title, &it.Note, &it.StartAt, &it.EndAt, &it.AllDay,
		&it.Location, &it.CreatedBy, &it.AppointmentID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return it, nil
}

func (s *Store) CreatePlannerItem(ctx context.Context, it *model.PlannerItem) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO planner_items (id, kind, title, note, start_at, end_at, all_day, location,
		                            created_by, appointment_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING created_at, updated_at`,
		it.ID, it.Kind, it.Title, it.Note, it.StartAt, it.EndAt, it.AllDay, it.Location,
		it.CreatedBy, it.AppointmentID,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	return mapErr(err)
}

func (s *Store) PlannerItemByID(ctx context.Context, id uuid.UUID) (*model.PlannerItem, error) {
	return scanPlannerItem(s.pool.QueryRow(ctx, `SELECT `+plannerCols+` FROM planner_items WHERE id = $1`, id))
}

func (s *Store) UpdatePlannerItem(ctx context.Context, it *model.PlannerItem) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE planner_items
		 SET kind=$2, title=$3, note=$4, start_at=$5, end_at=$6, all_day=$7, location=$8,
		     appointment_id=$9, updated_at=NOW()
		 WHERE id=$1
		 RETURNING updated_at`,
		it.ID, it.Kind, it.Title, it.Note, it.StartAt, it.EndAt, it.AllDay, it.Location, it.AppointmentID,
	).Scan(&it.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeletePlannerItem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM planner_items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

// ListPlannerItems returns items touching [from, to], bounds inclusive.
func (s *Store) ListPlannerItems(ctx context.Context, from, to time.Time, kind *string) ([]model.PlannerItem, error) {
	q := `SELECT ` + plannerCols + ` FROM planner_items WHERE start_at <= $2 AND end_at >= $1`
	args := []any{from, to}
	if kind != nil {
		q += ` AND kind = $3`
		args = append(args, *kind)
	}
	q += ` ORDER BY start_at ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PlannerItem{}
	for rows.Next() {
		it, err := scanPlannerItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
