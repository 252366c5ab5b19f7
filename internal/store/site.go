package store

import (
	"context"
	"errors"
)

// site_info and site_location each hold at most one row, id = 1.

func (s *Store) SiteInfo(ctx context.Context) (string, error) {
	return s.siteText(ctx, `SELECT info FROM site_info WHERE id = 1`)
}

func (s *Store) SetSiteInfo(ctx context.Context, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO site_info (id, info) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET info = EXCLUDED.info, updated_at = NOW()`, text)
	return mapErr(err)
}

func (s *Store) SiteLocation(ctx context.Context) (string, error) {
	return s.siteText(ctx, `SELECT location FROM site_location WHERE id = 1`)
}

func (s *Store) SetSiteLocation(ctx context.Context, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO site_location (id, location) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET location = EXCLUDED.location, updated_at = NOW()`, text)
	return mapErr(err)
}

// a missing row reads as empty text
func (s *Store) siteText(ctx context.Context, q string) (string, error) {
	var text string
	err := mapErr(s.pool.QueryRow(ctx, q).Scan(&text))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return text, err
}
