package account

import "clinic-api/internal/apperr"

var (
	ErrMissingFields      = apperr.Validation("full_name, email and password are required")
	ErrMissingCredentials = apperr.Validation("email and password are required")
	ErrPasswordTooShort   = apperr.Validation("password must be at least 6 characters")
	ErrEmailTaken         = apperr.Validation("email already registered")
	ErrInvalidCredentials = apperr.Unauthenticated("invalid credentials")
	ErrUserInactive       = apperr.Forbidden("user inactive")
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrInvalidResetToken  = apperr.Validation("invalid or expired token")
	ErrSamePassword       = apperr.Validation("new password must be different from the current one")
	ErrWrongPassword      = apperr.Validation("current password is incorrect")
	ErrEmptyName          = apperr.Validation("full_name cannot be empty")
	ErrEmptyEmail         = apperr.Validation("email cannot be empty")
)
