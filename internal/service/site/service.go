package site

import (
	"context"
	"fmt"
)

type Store interface {
	SiteInfo(ctx context.Context) (string, error)
	SetSiteInfo(ctx context.Context, text string) error
	SiteLocation(ctx context.Context) (string, error)
	SetSiteLocation(ctx context.Context, text string) error
}

// Service reads and replaces the two public text blocks of the clinic site.
// Text is stored exactly as the admin sent it.
type Service struct {
	store Store
}

func New(st Store) *Service {
	return &Service{store: st}
}

func (s *Service) Info(ctx context.Context) (string, error) {
	text, err := s.store.SiteInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("site.Info: %w", err)
	}
	return text, nil
}

func (s *Service) SetInfo(ctx context.Context, text string) (string, error) {
	if err := s.store.SetSiteInfo(ctx, text); err != nil {
		return "", fmt.Errorf("site.SetInfo: %w", err)
	}
	return text, nil
}

func (s *Service) Location(ctx context.Context) (string, error) {
	text, err := s.store.SiteLocation(ctx)
	if err != nil {
		return "", fmt.Errorf("site.Location: %w", err)
	}
	return text, nil
}

func (s *Service) SetLocation(ctx context.Context, text string) (string, error) {
	if err := s.store.SetSiteLocation(ctx, text); err != nil {
		return "", fmt.Errorf("site.SetLocation: %w", err)
	}
	return text, nil
}
