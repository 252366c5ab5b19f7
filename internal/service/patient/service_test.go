package patient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"clinic-api/internal/auth"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

type mockStore struct {
	mu       sync.Mutex
	patients []model.Patient
	users    map[uuid.UUID]bool
}

func (m *mockStore) CreatePatient(_ context.Context, p *model.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.OwnerUserID != nil && !m.users[*p.OwnerUserID] {
		return store.ErrReference
	}
	m.patients = append([]model.Patient{*p}, m.patients...)
	return nil
}

func (m *mockStore) PatientByID(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ListPatients(_ context.Context, owner *uuid.UUID) ([]model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Patient{}
	for _, p := range m.patients {
		if owner != nil && (p.OwnerUserID == nil || *p.OwnerUserID != *owner) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

var (
	admin = auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}
	alice = auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
	bob   = auth.Identity{UserID: uuid.New(), Role: auth.RoleUser}
)

func newService() (*Service, *mockStore) {
	st := &mockStore{users: map[uuid.UUID]bool{admin.UserID: true, alice.UserID: true, bob.UserID: true}}
	return New(st), st
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	birth, _ := model.ParseDate("2015-06-01")

	p, err := svc.Create(ctx, alice, Input{FullName: " Tomás ", BirthDate: &birth, OwnerUserID: &bob.UserID})
	if err != nil {
		t.Fatal(err)
	}
	if p.FullName != "Tomás" {
		t.Errorf("full_name = %q", p.FullName)
	}
	if *p.OwnerUserID != alice.UserID {
		t.Errorf("non-admin could pick owner %v", *p.OwnerUserID)
	}

	p, err = svc.Create(ctx, admin, Input{FullName: "Lucía", OwnerUserID: &bob.UserID})
	if err != nil {
		t.Fatal(err)
	}
	if *p.OwnerUserID != bob.UserID {
		t.Errorf("admin owner = %v, want bob", *p.OwnerUserID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, st := newService()
	ghost := uuid.New()

	if _, err := svc.Create(context.Background(), alice, Input{FullName: "  "}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("blank name err = %v", err)
	}
	if _, err := svc.Create(context.Background(), admin, Input{FullName: "x", OwnerUserID: &ghost}); !errors.Is(err, ErrUnknownOwner) {
		t.Errorf("ghost owner err = %v", err)
	}
	if len(st.patients) != 0 {
		t.Errorf("persisted %d patients", len(st.patients))
	}
}

func TestListAndGetScoping(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	mine, _ := svc.Create(ctx, alice, Input{FullName: "A"})
	theirs, _ := svc.Create(ctx, bob, Input{FullName: "B"})

	got, err := svc.List(ctx, alice, &bob.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Errorf("alice list = %v", got)
	}
	all, _ := svc.List(ctx, admin, nil)
	if len(all) != 2 {
		t.Errorf("admin list = %d, want 2", len(all))
	}

	if _, err := svc.Get(ctx, alice, theirs.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign get err = %v", err)
	}
	if _, err := svc.Get(ctx, admin, theirs.ID); err != nil {
		t.Errorf("admin get: %v", err)
	}
	if _, err := svc.Get(ctx, admin, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown get err = %v", err)
	}
}
