package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/hospital-admin/internal/observability/metrics"
	"github.com/wolfman30/hospital-admin/pkg/logging"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Backend   Backend
	Navigator Navigator
	Guard     SubmitGuard
	// Location decides what "today" means for appointment dates. Defaults to UTC.
	Location *time.Location
	// Now defaults to time.Now.
	Now     func() time.Time
	Logger  *logging.Logger
	Metrics *metrics.BookingMetrics
}

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	SessionID      string       `json:"sessionId"`
	Draft          Draft        `json:"draft"`
	Patients       []Patient    `json:"patients"`
	Departments    []Department `json:"departments"`
	Doctors        []Doctor     `json:"doctors"`
	Slots          []string     `json:"slots"`
	LoadingDoctors bool         `json:"loadingDoctors"`
	LoadingSlots   bool         `json:"loadingSlots"`
	Gate           GateState    `json:"gate"`
	Error          string       `json:"error,omitempty"`
	Closed         bool         `json:"closed"`
}

// Session is one booking workflow instance. Field setters are synchronous and
// never block on I/O; dependent fetches run on their own goroutines and come
// back through the Coordinator.
type Session struct {
	id     string
	deps   Deps
	logger *logging.Logger
	tracer trace.Tracer

	// ctx lives as long as the session; closing cancels late fetches.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	sel         Selection
	coord       Coordinator
	gate        Gate
	patients    []Patient
	departments []Department
	errMsg      string
	closed      bool
	lastActive  time.Time
	subs        map[int]chan Snapshot
	nextSub     int
}

// NewSession creates a session with an empty draft.
func NewSession(id string, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Guard == nil {
		deps.Guard = NewMemoryGuard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		deps:   deps,
		logger: deps.Logger.With("session_id", id),
		tracer: otel.Tracer("hospital.internal.booking"),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]chan Snapshot),
	}
	s.lastActive = deps.Now()
	deps.Metrics.SessionOpened()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start loads the reference data (patients and departments) in parallel. A
// failure leaves the selectors empty and shows MsgLoadInitialData; the
// session stays usable.
func (s *Session) Start(ctx context.Context) error {
	var patients []Patient
	var departments []Department

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patients, err = s.deps.Backend.ListPatients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		departments, err = s.deps.Backend.ListDepartments(gctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Error("booking: failed to load reference data", "error", err)
		s.errMsg = MsgLoadInitialData
		s.notifyLocked()
		return fmt.Errorf("booking: load reference data: %w", err)
	}
	s.patients = patients
	s.departments = departments
	s.notifyLocked()
	return nil
}

// SetPatient sets the independent patient field.
func (s *Session) SetPatient(id string) error {
	return s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		return sel.SetPatient(id), nil, nil
	})
}

// SetAppointmentType sets the independent type field.
func (s *Session) SetAppointmentType(raw string) error {
	t, err := ParseAppointmentType(raw)
	if err != nil {
		s.surface(err)
		return err
	}
	return s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		return sel.SetAppointmentType(t), nil, nil
	})
}

// SetNotes sets the free-text notes.
func (s *Session) SetNotes(text string) error {
	return s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		return sel.SetNotes(text), nil, nil
	})
}

// SetDepartment changes the department and fetches its doctors.
func (s *Session) SetDepartment(id string) error {
	return s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		next, fetches := sel.SetDepartment(id)
		return next, fetches, nil
	})
}

// SetDoctor selects a doctor from the current list. Rejections leave the
// session untouched.
func (s *Session) SetDoctor(id string) error {
	return s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		return sel.SetDoctor(id)
	})
}

// SetDate parses YYYY-MM-DD and selects it. Past or malformed dates are
// surfaced as validation errors and not applied.
func (s *Session) SetDate(raw string) error {
	d, err := ParseDate(raw)
	if err != nil {
		verr := &ValidationError{Field: "appointmentDate", Message: MsgInvalidDate}
		s.surface(verr)
		return verr
	}
	err = s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		return sel.SetDate(d, s.today())
	})
	if IsValidation(err) {
		s.surface(err)
	}
	return err
}

// SetTime picks a slot from the current slot list. Anything else is a no-op
// returning ErrSlotUnavailable.
func (s *Session) SetTime(slot string) error {
	return s.update(func(sel Selection) (Selection, []FetchRequest, error) {
		next, ok := sel.SetTime(slot)
		if !ok {
			return sel, nil, ErrSlotUnavailable
		}
		return next, nil, nil
	})
}

// Submit validates the draft and sends the booking request. It returns
// ErrSubmissionInProgress without any remote call while another submit is
// running. On success the session closes and the navigator is told exactly
// once; on failure the draft is kept for correction.
func (s *Session) Submit(ctx context.Context) (*Appointment, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.gate.State() == GateSubmitting {
		s.mu.Unlock()
		s.deps.Metrics.ObserveSubmission("rejected")
		return nil, ErrSubmissionInProgress
	}
	s.touchLocked()
	s.errMsg = ""
	if err := validateForSubmit(s.sel.Draft, s.today()); err != nil {
		s.errMsg = err.Error()
		s.notifyLocked()
		s.mu.Unlock()
		s.deps.Metrics.ObserveSubmission("invalid")
		return nil, err
	}
	if err := s.gate.Begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	draft := s.sel.Draft
	s.notifyLocked()
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "booking.submit", trace.WithAttributes(
		attribute.String("booking.session_id", s.id),
		attribute.String("booking.doctor_id", draft.DoctorID),
		attribute.String("booking.date", draft.AppointmentDate.String()),
	))
	defer span.End()

	appt, err := s.send(ctx, draft)

	s.mu.Lock()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking failed")
		s.gate.Fail()
		s.errMsg = submissionMessage(err)
		s.notifyLocked()
		s.mu.Unlock()
		outcome := "failed"
		if errors.Is(err, ErrDuplicateSubmission) {
			outcome = "duplicate"
		}
		s.deps.Metrics.ObserveSubmission(outcome)
		s.logger.Warn("booking: submission failed", "error", err)
		return nil, err
	}
	s.gate.Succeed()
	s.sel = Selection{}
	s.closeLocked()
	s.mu.Unlock()

	s.deps.Metrics.ObserveSubmission("success")
	s.logger.Info("booking: appointment created", "appointment_id", appt.ID)
	if s.deps.Navigator != nil {
		s.deps.Navigator.BookingComplete(s.id, *appt)
	}
	return appt, nil
}

func (s *Session) send(ctx context.Context, draft Draft) (*Appointment, error) {
	release, err := s.deps.Guard.Acquire(ctx, draft.Fingerprint())
	if err != nil {
		return nil, err
	}
	defer release()

	appt, err := s.deps.Backend.CreateAppointment(ctx, draft)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, errors.New("booking: backend returned no appointment")
	}
	return appt, nil
}

// Cancel abandons the session. It is refused while a submission is running.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.gate.State() == GateSubmitting {
		s.mu.Unlock()
		return ErrSubmissionInProgress
	}
	s.closeLocked()
	s.mu.Unlock()

	s.logger.Info("booking: session abandoned")
	if s.deps.Navigator != nil {
		s.deps.Navigator.Abandoned(s.id)
	}
	return nil
}

// ClearError dismisses the visible message.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errMsg != "" {
		s.errMsg = ""
		s.notifyLocked()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Closed reports whether the session completed or was abandoned.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IdleSince returns the time of the last user action.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Submitting reports whether the gate is currently submitting.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.State() == GateSubmitting
}

// Subscribe returns a channel that receives the latest snapshot after every
// state change. Slow readers only ever miss intermediate snapshots. The
// channel is closed when the session closes or cancel is called.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if s.closed {
		ch <- s.snapshotLocked()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Wait blocks until every fetch goroutine started so far has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// update runs one selection transition under the lock, reconciles the
// coordinator with the new keys and launches the requested fetches.
func (s *Session) update(transition func(Selection) (Selection, []FetchRequest, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.gate.State() == GateSubmitting {
		return ErrSubmissionInProgress
	}
	s.touchLocked()

	prev := s.sel
	next, fetches, err := transition(prev)
	if err != nil {
		return err
	}
	s.sel = next

	for kind := FetchKind(0); kind < fetchKinds; kind++ {
		if prev.Key(kind) != next.Key(kind) {
			s.coord.Supersede(kind)
		}
	}
	for _, req := range fetches {
		s.launch(s.coord.Issue(req))
	}
	s.notifyLocked()
	return nil
}

// launch runs the query for tok on its own goroutine. Called with s.mu held.
func (s *Session) launch(tok FetchToken) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()
		switch tok.Kind {
		case FetchDoctors:
			doctors, err := s.deps.Backend.DoctorsByDepartment(s.ctx, tok.Key.Department)
			s.settle(tok, time.Since(start), err, func(sel Selection) Selection { return sel.ApplyDoctors(doctors) })
		case FetchSlots:
			slots, err := s.deps.Backend.AvailableSlots(s.ctx, tok.Key.DoctorID, tok.Key.Date)
			s.settle(tok, time.Since(start), err, func(sel Selection) Selection { return sel.ApplySlots(slots) })
		}
	}()
}

// settle applies a fetch result if its token is still current. Stale results
// and stale failures are dropped without a trace in the session state.
func (s *Session) settle(tok FetchToken, elapsed time.Duration, err error, apply func(Selection) Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := tok.Kind.String()
	if s.closed || !s.coord.Accept(tok, s.sel.Key(tok.Kind)) {
		s.deps.Metrics.ObserveFetch(kind, "stale", elapsed.Seconds())
		s.logger.Debug("booking: discarded stale fetch", "kind", kind, "generation", tok.Generation)
		if !s.closed {
			s.notifyLocked()
		}
		return
	}
	if err != nil {
		s.deps.Metrics.ObserveFetch(kind, "failed", elapsed.Seconds())
		s.logger.Warn("booking: dependent fetch failed", "kind", kind, "error", err)
		if tok.Kind == FetchDoctors {
			s.errMsg = MsgLoadDoctors
		} else {
			s.errMsg = MsgLoadSlots
		}
		s.notifyLocked()
		return
	}
	s.sel = apply(s.sel)
	s.deps.Metrics.ObserveFetch(kind, "applied", elapsed.Seconds())
	s.notifyLocked()
}

// surface shows err as the single visible message.
func (s *Session) surface(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.errMsg = err.Error()
	s.notifyLocked()
}

func (s *Session) today() Date {
	return DateOf(s.deps.Now().In(s.deps.Location))
}

func (s *Session) touchLocked() {
	s.lastActive = s.deps.Now()
}

func (s *Session) closeLocked() {
	s.closed = true
	s.cancel()
	s.deps.Metrics.SessionClosed()
	final := s.snapshotLocked()
	for id, ch := range s.subs {
		push(ch, final)
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		push(ch, snap)
	}
}

// push replaces any unread snapshot with snap.
func push(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:      s.id,
		Draft:          s.sel.Draft,
		Patients:       nonNil(s.patients),
		Departments:    nonNil(s.departments),
		Doctors:        nonNil(s.sel.Doctors),
		Slots:          nonNil(s.sel.Slots),
		LoadingDoctors: s.coord.Pending(FetchDoctors),
		LoadingSlots:   s.coord.Pending(FetchSlots),
		Gate:           s.gate.State(),
		Error:          s.errMsg,
		Closed:         s.closed,
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
