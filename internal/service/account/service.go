package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinic-api/internal/auth"
	"clinic-api/internal/email"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

const minPasswordLen = 6

type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, fullName, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) error
}

type Mailer interface {
	Send(ctx context.Context, m email.Message) error
}

type Config struct {
	Secret      string
	TokenTTL    time.Duration
	ResetTTL    time.Duration
	FrontendURL string
	ClinicName  string
}

type Service struct {
	store Store
	mail  Mailer
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

func New(st Store, mail Mailer, cfg Config, log *slog.Logger) *Service {
	return &Service{store: st, mail: mail, cfg: cfg, log: log, now: time.Now}
}

type LoginResult struct {
	AccessToken      string      `json:"access_token"`
	TokenType        string      `json:"token_type"`
	ExpiresInMinutes int         `json:"expires_in_minutes"`
	User             *model.User `json:"user"`
}

// compared against when the email is unknown so both failure paths cost one
// bcrypt comparison
var dummyHash, _ = auth.HashPassword("not-a-real-password")

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *Service) Register(ctx context.Context, fullName, mail, password string) (*model.User, error) {
	const op = "account.Register"

	fullName = strings.TrimSpace(fullName)
	mail = normalizeEmail(mail)
	if fullName == "" || mail == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := &model.User{
		ID:           uuid.New(),
		FullName:     fullName,
		Email:        mail,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password give the
// same error; the inactive check only runs once the password matched.
func (s *Service) Authenticate(ctx context.Context, mail, password string) (*model.User, error) {
	const op = "account.Authenticate"

	mail = normalizeEmail(mail)
	if mail == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.store.UserByEmail(ctx, mail)
	if errors.Is(err, store.ErrNotFound) {
		auth.CheckPassword(dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, mail, password string) (*LoginResult, error) {
	u, err := s.Authenticate(ctx, mail, password)
	if err != nil {
		return nil, err
	}
	tok, err := s.IssueToken(u)
	if err != nil {
		return nil, fmt.Errorf("account.Login: %w", err)
	}
	return &LoginResult{
		AccessToken:      tok,
		TokenType:        "Bearer",
		ExpiresInMinutes: int(s.cfg.TokenTTL / time.Minute),
		User:             u,
	}, nil
}

func (s *Service) IssueToken(u *model.User) (string, error) {
	return auth.MakeToken(auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, s.cfg.Secret, s.cfg.TokenTTL)
}

func (s *Service) Me(ctx context.Context, id auth.Identity) (*model.User, error) {
	u, err := s.store.UserByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account.Me: %w", err)
	}
	return u, nil
}

// UpdateMe changes the caller's name and/or email; nil leaves a field as is.
func (s *Service) UpdateMe(ctx context.Context, id auth.Identity, fullName, mail *string) (*model.User, error) {
	const op = "account.UpdateMe"

	u, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}

	name, addr := u.FullName, u.Email
	if fullName != nil {
		name = strings.TrimSpace(*fullName)
		if name == "" {
			return nil, ErrEmptyName
		}
	}
	if mail != nil {
		addr = normalizeEmail(*mail)
		if addr == "" {
			return nil, ErrEmptyEmail
		}
	}

	updated, err := s.store.UpdateUserProfile(ctx, u.ID, name, addr)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, ErrEmailTaken
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *Service) ChangePassword(ctx context.Context, id auth.Identity, current, next string) error {
	const op = "account.ChangePassword"

	u, err := s.Me(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	if len(next) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if next == current {
		return ErrSamePassword
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ForgotPassword never reveals whether the address belongs to an account.
// Only delivery failures for a real, active account surface as errors.
func (s *Service) ForgotPassword(ctx context.Context, mail string) error {
	const op = "account.ForgotPassword"

	mail = normalizeEmail(mail)
	if mail == "" {
		return nil
	}

	u, err := s.store.UserByEmail(ctx, mail)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		s.log.Debug("password reset for inactive user ignored", slog.String("user_id", u.ID.String()))
		return nil
	}

	raw, hash, err := auth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.SetResetToken(ctx, u.ID, hash, s.now().Add(s.cfg.ResetTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := email.BuildPasswordResetEmail(email.PasswordResetData{
		FullName:   u.FullName,
		Email:      u.Email,
		ResetURL:   s.resetURL(raw, u.Email),
		ValidFor:   int(s.cfg.ResetTTL / time.Minute),
		ClinicName: s.cfg.ClinicName,
	})
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset email sent", slog.String("user_id", u.ID.String()))
	return nil
}

func (s *Service) resetURL(token, mail string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", mail)
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password?" + q.Encode()
}

func (s *Service) ResetPassword(ctx context.Context, mail, token, next string) error {
	const op = "account.ResetPassword"

	mail = normalizeEmail(mail)
	if mail == "" || token == "" {
		return ErrInvalidResetToken
	}
	if len(next) < minPasswordLen {
		return ErrPasswordTooShort
	}

	u, err := s.store.UserByEmail(ctx, mail)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
		return ErrInvalidResetToken
	}
	if !s.now().Before(*u.ResetTokenExpiresAt) {
		return ErrInvalidResetToken
	}
	if !auth.CheckResetToken(*u.ResetTokenHash, token) {
		return ErrInvalidResetToken
	}
	if auth.CheckPassword(u.PasswordHash, next) {
		return ErrSamePassword
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = s.store.ConsumeResetToken(ctx, u.ID, *u.ResetTokenHash, hash)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
