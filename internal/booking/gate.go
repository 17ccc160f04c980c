package booking

// GateState is the submission gate's position in Idle → Submitting →
// (Succeeded | back to Idle on failure).
type GateState string

const (
	GateIdle       GateState = "idle"
	GateSubmitting GateState = "submitting"
	GateSucceeded  GateState = "succeeded"
)

// Gate serializes submission: one booking request at a time, none after
// success. Not safe for concurrent use; Session guards it.
type Gate struct {
	state GateState
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	if g.state == "" {
		return GateIdle
	}
	return g.state
}

// Begin moves Idle → Submitting.
func (g *Gate) Begin() error {
	switch g.State() {
	case GateSubmitting:
		return ErrSubmissionInProgress
	case GateSucceeded:
		return ErrSessionClosed
	}
	g.state = GateSubmitting
	return nil
}

// Succeed closes the gate for good.
func (g *Gate) Succeed() {
	g.state = GateSucceeded
}

// Fail reopens the gate so the preserved draft can be resubmitted.
func (g *Gate) Fail() {
	if g.state == GateSubmitting {
		g.state = GateIdle
	}
}
