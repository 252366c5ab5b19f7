package email

import "fmt"

type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

type ErrNotConfigured struct{}

func (ErrNotConfigured) Error() string { return "smtp not configured (SMTP_HOST/SMTP_USER/SMTP_PASS)" }

type ErrInvalidMessage struct{ Reason string }

func (e ErrInvalidMessage) Error() string { return "invalid email message: " + e.Reason }

type ErrSend struct {
	Provider string
	Err      error
}

func (e ErrSend) Error() string { return fmt.Sprintf("email send failed (%s): %v", e.Provider, e.Err) }
func (e ErrSend) Unwrap() error { return e.Err }
