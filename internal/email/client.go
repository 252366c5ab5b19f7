package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
	Timeout  time.Duration
}

func (c Config) configured() bool {
	return c.Host != "" && c.User != "" && c.Pass != ""
}

func (c Config) from() string {
	if c.FromName == "" {
		return c.User
	}
	return fmt.Sprintf("%s <%s>", c.FromName, c.User)
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg}
}

// Send delivers m over SMTP. On a non-implicit-TLS port gomail upgrades the
// connection with STARTTLS when the server offers it.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.configured() {
		return ErrNotConfigured{}
	}

	msg, err := buildMessage(c.cfg.from(), m)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.User, c.cfg.Pass)
	d.SSL = c.cfg.Port == 465

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(msg)
	}()

	wait := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < wait {
			wait = left
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return ErrSend{Provider: "smtp", Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func buildMessage(from string, m Message) (*gomail.Message, error) {
	to := cleanAddrs(m.To)
	if len(to) == 0 {
		return nil, ErrInvalidMessage{Reason: "recipient is required"}
	}
	subj := strings.TrimSpace(m.Subject)
	if subj == "" {
		return nil, ErrInvalidMessage{Reason: "subject is required"}
	}
	if strings.TrimSpace(m.HTMLBody) == "" {
		return nil, ErrInvalidMessage{Reason: "html body is required"}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subj)

	text := m.TextBody
	if strings.TrimSpace(text) == "" {
		text = "Este correo requiere un cliente que soporte HTML."
	}
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", m.HTMLBody)
	return msg, nil
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
