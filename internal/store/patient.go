package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clinic-api/internal/model"
)

const patientCols = `id, owner_user_id, full_name, relation_to_booker, birth_date, notes, created_at`

func scanPatient(row pgx.Row) (*model.Patient, error) {
	p := &model.Patient{}
	var birth *time.Time
	if err := row.Scan(&p.ID, &p.OwnerUserID, &p.FullName, &p.RelationToBooker, &birth, &p.Notes, &p.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	if birth != nil {
		p.BirthDate = &model.Date{Time: *birth}
	}
	return p, nil
}

func (s *Store) CreatePatient(ctx context.Context, p *model.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var birth *time.Time
	if p.BirthDate != nil {
		birth = &p.BirthDate.Time
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO patients (id, owner_user_id, full_name, relation_to_booker, birth_date, notes)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at`,
		p.ID, p.OwnerUserID, p.FullName, p.RelationToBooker, birth, p.Notes,
	).Scan(&p.CreatedAt)
	return mapErr(err)
}

func (s *Store) PatientByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return scanPatient(s.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

// ListPatients filters by owner when owner is non-nil.
func (s *Store) ListPatients(ctx context.Context, owner *uuid.UUID) ([]model.Patient, error) {
	q := `SELECT ` + patientCols + ` FROM patients`
	var args []any
	if owner != nil {
		q += ` WHERE owner_user_id = $1`
		args = append(args, *owner)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
