package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"clinic-api/internal/apperr"
	"clinic-api/internal/auth"
	"clinic-api/internal/lock"
	"clinic-api/internal/model"
	"clinic-api/internal/store"
)

// ----- in-memory store -----

type mockStore struct {
	mu       sync.Mutex
	appts    map[uuid.UUID]*model.Appointment
	events   map[uuid.UUID][]model.AppointmentEvent
	patients map[uuid.UUID]*model.Patient
	users    map[uuid.UUID]bool
	seq      time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		appts:    make(map[uuid.UUID]*model.Appointment),
		events:   make(map[uuid.UUID][]model.AppointmentEvent),
		patients: make(map[uuid.UUID]*model.Patient),
		users:    make(map[uuid.UUID]bool),
		seq:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockStore) tick() time.Time {
	m.seq = m.seq.Add(time.Second)
	return m.seq
}

func (m *mockStore) CreateAppointment(_ context.Context, a *model.Appointment, ev *model.AppointmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.users[a.UserID] {
		return store.ErrReference
	}
	a.CreatedAt = m.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	ev.ID, ev.AppointmentID, ev.CreatedAt = uuid.New(), a.ID, m.tick()
	m.events[a.ID] = append(m.events[a.ID], *ev)
	return nil
}

func (m *mockStore) AppointmentByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) ListAppointments(_ context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range m.appts {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) MutateAppointment(_ context.Context, id uuid.UUID, fn store.Mutation) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	work := *cur
	ev, err := fn(&work)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return &work, nil
	}
	work.UpdatedAt = m.tick()
	m.appts[id] = &work
	ev.ID, ev.AppointmentID, ev.CreatedAt = uuid.New(), id, m.tick()
	m.events[id] = append(m.events[id], *ev)
	out := work
	return &out, nil
}

func (m *mockStore) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.appts, id)
	delete(m.events, id)
	return nil
}

func (m *mockStore) AppointmentEvents(_ context.Context, id uuid.UUID) ([]model.AppointmentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AppointmentEvent{}, m.events[id]...), nil
}

func (m *mockStore) PatientByID(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ----- helpers -----

type fixture struct {
	svc   *Service
	st    *mockStore
	admin auth.Identity
	alice auth.Identity
	bob   auth.Identity
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := newMockStore()
	f := &fixture{
		st:    st,
		svc:   New(st, lock.NewLocal()),
		admin: auth.Identity{UserID: uuid.New(), Email: "admin@clinic.test", Role: auth.RoleAdmin},
		alice: auth.Identity{UserID: uuid.New(), Email: "alice@clinic.test", Role: auth.RoleUser},
		bob:   auth.Identity{UserID: uuid.New(), Email: "bob@clinic.test", Role: auth.RoleUser},
	}
	for _, id := range []auth.Identity{f.admin, f.alice, f.bob} {
		st.users[id.UserID] = true
	}
	return f
}

func at(h, m int) *time.Time {
	t := time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
	return &t
}

func (f *fixture) request(t *testing.T, who auth.Identity, desc string) *model.Appointment {
	t.Helper()
	a, err := f.svc.Request(context.Background(), who, RequestInput{Description: desc})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return a
}

func ptr(s string) *string { return &s }

// ----- tests -----

func TestRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Request(ctx, f.alice, RequestInput{
		Description:    "  dolor lumbar ",
		Comment:        ptr("prefiero mañana"),
		RequestedStart: at(9, 0),
		RequestedEnd:   at(10, 0),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if a.Status != model.StatusRequested {
		t.Errorf("status = %q", a.Status)
	}
	if a.UserID != f.alice.UserID {
		t.Errorf("owner = %v, want caller", a.UserID)
	}
	if got := a.Fields.Flatten().Description; got != "dolor lumbar" {
		t.Errorf("description = %q", got)
	}

	evs, _ := f.st.AppointmentEvents(ctx, a.ID)
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1", len(evs))
	}
	if evs[0].EventType != model.EventCreated || *evs[0].Note != noteCreated || *evs[0].NewValue != model.StatusRequested {
		t.Errorf("created event = %+v", evs[0])
	}
}

func TestRequestValidation(t *testing.T) {
	f := setup(t)
	ghost := uuid.New()
	bobsPatient := uuid.New()
	f.st.patients[bobsPatient] = &model.Patient{ID: bobsPatient, OwnerUserID: &f.bob.UserID, FullName: "Hijo de Bob"}

	tests := []struct {
		name string
		who  auth.Identity
		in   RequestInput
		want error
	}{
		{"empty description", f.alice, RequestInput{Description: "   "}, ErrDescriptionRequired},
		{"requested order", f.alice, RequestInput{Description: "x", RequestedStart: at(10, 0), RequestedEnd: at(9, 0)}, ErrRequestedOrder},
		{"unknown patient", f.alice, RequestInput{Description: "x", PatientID: &ghost}, ErrUnknownPatient},
		{"foreign patient", f.alice, RequestInput{Description: "x", PatientID: &bobsPatient}, ErrNotOwner},
		{"admin for unknown user", f.admin, RequestInput{Description: "x", UserID: &ghost}, ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Request(context.Background(), tt.who, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.st.appts) != 0 {
		t.Errorf("failed requests persisted %d appointments", len(f.st.appts))
	}
}

func TestRequestOnBehalf(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Request(ctx, f.admin, RequestInput{Description: "x", UserID: &f.bob.UserID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if a.UserID != f.bob.UserID {
		t.Errorf("admin booking owner = %v, want bob", a.UserID)
	}

	// non-admins cannot book for someone else
	a, err = f.svc.Request(ctx, f.alice, RequestInput{Description: "x", UserID: &f.bob.UserID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if a.UserID != f.alice.UserID {
		t.Errorf("user booking owner = %v, want alice", a.UserID)
	}
}

func TestConfirm(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")

	got, err := f.svc.Confirm(ctx, f.admin, a.ID, at(9, 0), at(10, 0))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != model.StatusConfirmed {
		t.Errorf("status = %q", got.Status)
	}
	if got.ScheduledStart == nil || !got.ScheduledStart.Equal(*at(9, 0)) || got.ScheduledEnd == nil || !got.ScheduledEnd.Equal(*at(10, 0)) {
		t.Errorf("schedule = %v..%v", got.ScheduledStart, got.ScheduledEnd)
	}

	evs, _ := f.st.AppointmentEvents(ctx, a.ID)
	if len(evs) != 2 {
		t.Fatalf("events = %d, want 2", len(evs))
	}
	last := evs[1]
	if last.EventType != model.EventStatusChanged || *last.OldValue != model.StatusRequested ||
		*last.NewValue != model.StatusConfirmed || *last.Note != noteConfirmed {
		t.Errorf("status event = %+v", last)
	}
}

func TestConfirmRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")

	tests := []struct {
		name       string
		who        auth.Identity
		id         uuid.UUID
		start, end *time.Time
		want       error
		kind       error
	}{
		{"not admin", f.alice, a.ID, at(9, 0), at(10, 0), ErrAdminOnly, apperr.ErrForbidden},
		{"missing start", f.admin, a.ID, nil, at(10, 0), ErrScheduleRequired, apperr.ErrValidation},
		{"missing end", f.admin, a.ID, at(9, 0), nil, ErrScheduleRequired, apperr.ErrValidation},
		{"end equals start", f.admin, a.ID, at(9, 0), at(9, 0), ErrScheduleOrder, apperr.ErrValidation},
		{"end before start", f.admin, a.ID, at(10, 0), at(9, 0), ErrScheduleOrder, apperr.ErrValidation},
		{"unknown id", f.admin, uuid.New(), at(9, 0), at(10, 0), ErrNotFound, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Confirm(ctx, tt.who, tt.id, tt.start, tt.end)
			if !errors.Is(err, tt.want) || !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	cur, _ := f.st.AppointmentByID(ctx, a.ID)
	if cur.Status != model.StatusRequested || cur.ScheduledStart != nil {
		t.Errorf("rejected confirms changed the row: %+v", cur)
	}
	if evs, _ := f.st.AppointmentEvents(ctx, a.ID); len(evs) != 1 {
		t.Errorf("events = %d, want only the created event", len(evs))
	}
}

func TestMarkPaidIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")
	paidAt := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return paidAt }

	first, err := f.svc.MarkPaid(ctx, f.admin, a.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !first.IsPaid || first.PaidAt == nil || !first.PaidAt.Equal(paidAt) {
		t.Errorf("paid = %v at %v", first.IsPaid, first.PaidAt)
	}

	f.svc.now = func() time.Time { return paidAt.Add(time.Hour) }
	second, err := f.svc.MarkPaid(ctx, f.admin, a.ID)
	if err != nil {
		t.Fatalf("second mark paid: %v", err)
	}
	if !second.PaidAt.Equal(paidAt) {
		t.Errorf("paid_at moved to %v", second.PaidAt)
	}

	evs, _ := f.st.AppointmentEvents(ctx, a.ID)
	var paid int
	for _, ev := range evs {
		if ev.EventType == model.EventPaymentMarked {
			paid++
			if *ev.OldValue != "unpaid" || *ev.NewValue != "paid" || *ev.Note != notePaid {
				t.Errorf("payment event = %+v", ev)
			}
		}
	}
	if paid != 1 {
		t.Errorf("payment events = %d, want 1", paid)
	}

	if _, err := f.svc.MarkPaid(ctx, f.alice, a.ID); !errors.Is(err, ErrAdminOnly) {
		t.Errorf("non-admin err = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "original")

	got, err := f.svc.Update(ctx, f.admin, a.ID, Patch{
		Description:    ptr(" nuevo motivo "),
		Considerations: ptr("alergia al látex"),
		ScheduledStart: at(11, 0),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	flat := got.Fields.Flatten()
	if flat.Description != "nuevo motivo" || flat.Considerations == nil || *flat.Considerations != "alergia al látex" {
		t.Errorf("fields = %+v", flat)
	}
	if got.ScheduledStart == nil || !got.ScheduledStart.Equal(*at(11, 0)) {
		t.Errorf("scheduled_start = %v", got.ScheduledStart)
	}

	evs, _ := f.st.AppointmentEvents(ctx, a.ID)
	last := evs[len(evs)-1]
	if last.EventType != model.EventUpdated || *last.Note != noteUpdated {
		t.Fatalf("last event = %+v", last)
	}
	if *last.NewValue != "description,considerations,scheduled_start" {
		t.Errorf("changed fields = %q", *last.NewValue)
	}
}

func TestUpdateLegacyRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")
	f.st.appts[a.ID].Fields = model.LegacyText{Text: "texto viejo"}

	got, err := f.svc.Update(ctx, f.admin, a.ID, Patch{Description: ptr("motivo")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	sf, ok := got.Fields.(model.StructuredFields)
	if !ok {
		t.Fatalf("fields still %T", got.Fields)
	}
	if sf.Description != "motivo" || sf.Comment == nil || *sf.Comment != "texto viejo" {
		t.Errorf("fields = %+v", sf)
	}
}

func TestUpdateRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")
	if _, err := f.svc.Confirm(ctx, f.admin, a.ID, at(9, 0), at(10, 0)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		who   auth.Identity
		patch Patch
		want  error
	}{
		{"not admin", f.alice, Patch{Description: ptr("y")}, ErrAdminOnly},
		{"blank description", f.admin, Patch{Description: ptr("  ")}, ErrDescriptionRequired},
		{"end before existing start", f.admin, Patch{ScheduledEnd: at(8, 0)}, ErrScheduleOrder},
		{"requested order", f.admin, Patch{RequestedStart: at(12, 0), RequestedEnd: at(11, 0)}, ErrRequestedOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, tt.who, a.ID, tt.patch)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	cur, _ := f.st.AppointmentByID(ctx, a.ID)
	if !cur.ScheduledEnd.Equal(*at(10, 0)) {
		t.Errorf("rejected update changed scheduled_end to %v", cur.ScheduledEnd)
	}
}

func TestUpdateEmptyPatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")

	if _, err := f.svc.Update(ctx, f.admin, a.ID, Patch{}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if evs, _ := f.st.AppointmentEvents(ctx, a.ID); len(evs) != 1 {
		t.Errorf("empty patch wrote an event; events = %d", len(evs))
	}
}

func TestListScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.request(t, f.alice, "a1")
	f.request(t, f.alice, "a2")
	b := f.request(t, f.bob, "b1")

	got, err := f.svc.List(ctx, f.alice, nil, &f.bob.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("alice sees %d, want 2", len(got))
	}
	for _, a := range got {
		if a.UserID != f.alice.UserID {
			t.Errorf("alice sees foreign appointment %v", a.ID)
		}
	}
	if got[0].Fields.Flatten().Description != "a2" {
		t.Errorf("list not newest first: %q", got[0].Fields.Flatten().Description)
	}

	all, _ := f.svc.List(ctx, f.admin, nil, nil)
	if len(all) != 3 {
		t.Errorf("admin sees %d, want 3", len(all))
	}

	if _, err := f.svc.Confirm(ctx, f.admin, b.ID, at(9, 0), at(10, 0)); err != nil {
		t.Fatal(err)
	}
	confirmed := model.StatusConfirmed
	only, _ := f.svc.List(ctx, f.admin, &confirmed, nil)
	if len(only) != 1 || only[0].ID != b.ID {
		t.Errorf("status filter = %v", only)
	}
}

func TestGetEventsDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")

	if _, err := f.svc.Get(ctx, f.bob, a.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("bob get err = %v", err)
	}
	if _, err := f.svc.Events(ctx, f.bob, a.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("bob events err = %v", err)
	}
	if err := f.svc.Delete(ctx, f.bob, a.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("bob delete err = %v", err)
	}
	if _, err := f.svc.Get(ctx, f.admin, a.ID); err != nil {
		t.Errorf("admin get: %v", err)
	}
	evs, err := f.svc.Events(ctx, f.alice, a.ID)
	if err != nil || len(evs) != 1 {
		t.Errorf("owner events = %v, %v", evs, err)
	}

	if err := f.svc.Delete(ctx, f.alice, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.admin, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	if err := f.svc.Delete(ctx, f.admin, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

// a held lock makes the mutation give up with a conflict
func TestMutationBusy(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")
	f.svc.lockWait = 50 * time.Millisecond

	key := "appointment:" + a.ID.String()
	if ok, _ := f.svc.locker.Lock(ctx, key, "other-holder", time.Minute); !ok {
		t.Fatal("could not take lock")
	}
	defer f.svc.locker.Unlock(ctx, key, "other-holder")

	_, err := f.svc.MarkPaid(ctx, f.admin, a.ID)
	if !errors.Is(err, ErrBusy) || !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want busy", err)
	}
}

func TestConcurrentMarkPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.request(t, f.alice, "x")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.MarkPaid(ctx, f.admin, a.ID); err != nil {
				t.Errorf("mark paid: %v", err)
			}
		}()
	}
	wg.Wait()

	evs, _ := f.st.AppointmentEvents(ctx, a.ID)
	if len(evs) != 2 {
		t.Errorf("events = %d, want created + one payment", len(evs))
	}
}
