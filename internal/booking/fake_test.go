package booking

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/hospital-admin/pkg/logging"
)

// fakeBackend answers from in-memory tables. Queries whose key has been held
// block until released, which lets tests finish them in any order.
type fakeBackend struct {
	mu sync.Mutex

	patients    []Patient
	departments []Department
	refErr      error

	doctors    map[string][]Doctor
	doctorsErr map[string]error
	slots      map[string][]string
	slotsErr   map[string]error

	holds map[string]chan struct{}
	calls map[string]int

	createHold chan struct{}
	createErr  error
	created    []Draft
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		patients:    []Patient{{ID: "p1", FirstName: "Ada", LastName: "Lovelace"}},
		departments: []Department{{ID: "cardiology", Name: "Cardiology"}, {ID: "neurology", Name: "Neurology"}},
		doctors: map[string][]Doctor{
			"cardiology": {{ID: "d1", FirstName: "Meredith", LastName: "Grey"}},
			"neurology":  {{ID: "d2", FirstName: "Derek", LastName: "Shepherd"}},
		},
		doctorsErr: map[string]error{},
		slots: map[string][]string{
			slotsKey("d1", testDay): {"09:00", "09:30"},
		},
		slotsErr: map[string]error{},
		holds:    map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

func slotsKey(doctorID string, d Date) string { return "slots:" + doctorID + "|" + d.String() }

func doctorsKey(department string) string { return "doctors:" + department }

// hold makes the next queries for key block until release(key).
func (b *fakeBackend) hold(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holds[key] = make(chan struct{})
}

func (b *fakeBackend) release(key string) {
	b.mu.Lock()
	ch := b.holds[key]
	delete(b.holds, key)
	b.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (b *fakeBackend) callCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *fakeBackend) createdDrafts() []Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Draft(nil), b.created...)
}

func (b *fakeBackend) wait(ctx context.Context, key string) error {
	b.mu.Lock()
	b.calls[key]++
	ch := b.holds[key]
	b.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBackend) ListPatients(context.Context) ([]Patient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.patients, b.refErr
}

func (b *fakeBackend) ListDepartments(context.Context) ([]Department, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.departments, b.refErr
}

func (b *fakeBackend) DoctorsByDepartment(ctx context.Context, departmentID string) ([]Doctor, error) {
	key := doctorsKey(departmentID)
	if err := b.wait(ctx, key); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.doctorsErr[departmentID]; err != nil {
		return nil, err
	}
	return b.doctors[departmentID], nil
}

func (b *fakeBackend) AvailableSlots(ctx context.Context, doctorID string, date Date) ([]string, error) {
	key := slotsKey(doctorID, date)
	if err := b.wait(ctx, key); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.slotsErr[key]; err != nil {
		return nil, err
	}
	return b.slots[key], nil
}

func (b *fakeBackend) CreateAppointment(ctx context.Context, draft Draft) (*Appointment, error) {
	b.mu.Lock()
	b.created = append(b.created, draft)
	hold := b.createHold
	err := b.createErr
	b.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &Appointment{
		ID:              "appt-1",
		PatientID:       draft.PatientID,
		DoctorID:        draft.DoctorID,
		Department:      draft.Department,
		AppointmentType: draft.AppointmentType,
		AppointmentDate: draft.AppointmentDate,
		AppointmentTime: draft.AppointmentTime,
		Notes:           draft.Notes,
		Status:          "scheduled",
	}, nil
}

type fakeNavigator struct {
	mu        sync.Mutex
	completed []Appointment
	abandoned []string
}

func (n *fakeNavigator) BookingComplete(_ string, appt Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, appt)
}

func (n *fakeNavigator) Abandoned(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.abandoned = append(n.abandoned, sessionID)
}

func (n *fakeNavigator) counts() (completed, abandoned int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed), len(n.abandoned)
}

// fixedNow is noon on testToday.
func fixedNow() time.Time {
	return time.Date(2030, time.January, 10, 12, 0, 0, 0, time.UTC)
}

func testDeps(b *fakeBackend, nav *fakeNavigator) Deps {
	return Deps{
		Backend:   b,
		Navigator: nav,
		Now:       fixedNow,
		Logger:    logging.Discard(),
	}
}
