package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"clinic-api/internal/model"
)

func TestMigrationsEmbedded(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) == 0 || ms[0].Version != 1 || ms[0].Name != "001_init.sql" {
		t.Fatalf("migrations = %+v", ms)
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].Version <= ms[i-1].Version {
			t.Errorf("migrations not sorted: %d after %d", ms[i].Version, ms[i-1].Version)
		}
	}
}

func setup(t *testing.T) *Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)
	s := New(pool)
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func newUser(t *testing.T, s *Store) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New(),
		FullName:     "Store Test",
		Email:        fmt.Sprintf("store-%s@clinic.test", uuid.NewString()[:8]),
		PasswordHash: "x",
		Role:         "user",
		IsActive:     true,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func newAppointment(t *testing.T, s *Store, owner uuid.UUID) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		UserID: owner,
		Fields: model.StructuredFields{Description: "control"},
		Status: model.StatusRequested,
	}
	ev := &model.AppointmentEvent{EventType: model.EventCreated}
	if err := s.CreateAppointment(context.Background(), a, ev); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestMigrateIdempotent(t *testing.T) {
	s := setup(t)
	applied, err := s.Migrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Errorf("second run applied %v", applied)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := newUser(t, s)

	dup := *u
	dup.ID = uuid.New()
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if _, err := s.UserByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}

func TestConsumeResetTokenOnce(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := newUser(t, s)

	if err := s.SetResetToken(ctx, u.ID, "hash-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.ConsumeResetToken(ctx, u.ID, "hash-1", "new-pw"); err != nil {
		t.Fatal(err)
	}
	if err := s.ConsumeResetToken(ctx, u.ID, "hash-1", "other-pw"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second consume err = %v", err)
	}
	got, err := s.UserByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PasswordHash != "new-pw" || got.ResetTokenHash != nil {
		t.Errorf("user after reset = %+v", got)
	}
}

func TestAppointmentUnknownUser(t *testing.T) {
	s := setup(t)
	a := &model.Appointment{UserID: uuid.New(), Fields: model.StructuredFields{Description: "x"}, Status: model.StatusRequested}
	err := s.CreateAppointment(context.Background(), a, &model.AppointmentEvent{EventType: model.EventCreated})
	if !errors.Is(err, ErrReference) {
		t.Fatalf("err = %v, want ErrReference", err)
	}
}

func TestLegacyCommentDecoded(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := newUser(t, s)
	a := newAppointment(t, s, u.ID)

	if _, err := s.pool.Exec(ctx, `UPDATE appointments SET comment = $2 WHERE id = $1`, a.ID, "texto libre antiguo"); err != nil {
		t.Fatal(err)
	}
	got, err := s.AppointmentByID(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	f := got.Fields.Flatten()
	if f.Comment == nil || *f.Comment != "texto libre antiguo" || f.Description != "" {
		t.Errorf("fields = %+v", f)
	}
	if got.User == nil || got.User.FullName != u.FullName {
		t.Errorf("user ref = %+v", got.User)
	}
}

func TestMutateAppointment(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := newUser(t, s)
	a := newAppointment(t, s, u.ID)

	t.Run("nil event writes nothing", func(t *testing.T) {
		got, err := s.MutateAppointment(ctx, a.ID, func(a *model.Appointment) (*model.AppointmentEvent, error) {
			a.Status = model.StatusConfirmed
			return nil, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.StatusConfirmed {
			t.Errorf("returned status = %q", got.Status)
		}
		stored, _ := s.AppointmentByID(ctx, a.ID)
		if stored.Status != model.StatusRequested {
			t.Errorf("stored status = %q, want requested", stored.Status)
		}
	})

	t.Run("error rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.MutateAppointment(ctx, a.ID, func(a *model.Appointment) (*model.AppointmentEvent, error) {
			a.IsPaid = true
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		stored, _ := s.AppointmentByID(ctx, a.ID)
		if stored.IsPaid {
			t.Error("failed mutation persisted")
		}
	})

	t.Run("event written with row", func(t *testing.T) {
		_, err := s.MutateAppointment(ctx, a.ID, func(a *model.Appointment) (*model.AppointmentEvent, error) {
			now := time.Now().UTC()
			a.IsPaid, a.PaidAt = true, &now
			return &model.AppointmentEvent{EventType: model.EventPaymentMarked}, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		evs, err := s.AppointmentEvents(ctx, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(evs) != 2 || evs[0].EventType != model.EventCreated || evs[1].EventType != model.EventPaymentMarked {
			t.Errorf("events = %+v", evs)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := s.MutateAppointment(ctx, uuid.New(), func(*model.Appointment) (*model.AppointmentEvent, error) {
			t.Error("mutation called for missing row")
			return nil, nil
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestDeleteAppointmentCascades(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	a := newAppointment(t, s, newUser(t, s).ID)

	if err := s.DeleteAppointment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	evs, err := s.AppointmentEvents(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 0 {
		t.Errorf("orphan events: %d", len(evs))
	}
	if err := s.DeleteAppointment(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestWeeklyAvailabilityDuplicate(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	start := fmt.Sprintf("%02d:%02d", 5+rand.Intn(3), rand.Intn(60))
	w := &model.WeeklyAvailability{DayOfWeek: 6, StartTime: start, EndTime: "23:59", IsActive: true}
	if err := s.CreateWeeklyAvailability(ctx, w); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.DeleteWeeklyAvailability(context.Background(), w.ID) })

	dup := &model.WeeklyAvailability{DayOfWeek: 6, StartTime: start, EndTime: "23:59", IsActive: true}
	if err := s.CreateWeeklyAvailability(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestSiteTextUpsert(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	text := "Dirección de prueba " + uuid.NewString()[:6]
	if err := s.SetSiteLocation(ctx, text); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSiteLocation(ctx, text+"!"); err != nil {
		t.Fatal(err)
	}
	got, err := s.SiteLocation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != text+"!" {
		t.Errorf("location = %q", got)
	}
}
