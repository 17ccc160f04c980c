package booking

import (
	"errors"
	"strings"
)

// User-facing messages. Only one is visible at a time; the most recent wins.
const (
	MsgLoadInitialData  = "Error loading initial data"
	MsgLoadDoctors      = "Error loading doctors"
	MsgLoadSlots        = "Error loading available slots"
	MsgRequiredFields   = "Please fill all required fields"
	MsgPastDate         = "Appointment date cannot be in the past"
	MsgInvalidDate      = "Invalid appointment date"
	MsgInvalidType      = "Invalid appointment type"
	MsgBookingFailed    = "Error booking appointment"
	MsgDuplicateBooking = "This appointment is already being booked"
)

var (
	// ErrDepartmentRequired rejects a doctor selection before a department is chosen.
	ErrDepartmentRequired = errors.New("booking: department must be selected first")
	// ErrDoctorNotSelectable rejects a doctor that is not in the current doctor list.
	ErrDoctorNotSelectable = errors.New("booking: doctor is not in the current doctor list")
	// ErrSlotUnavailable reports a time that is not in the current slot list.
	ErrSlotUnavailable = errors.New("booking: time slot is not in the current slot list")
	// ErrSubmissionInProgress rejects actions while the gate is submitting.
	ErrSubmissionInProgress = errors.New("booking: submission in progress")
	// ErrSessionClosed rejects actions on a completed or abandoned session.
	ErrSessionClosed = errors.New("booking: session closed")
	// ErrDuplicateSubmission means an identical booking is already in flight.
	ErrDuplicateSubmission = errors.New("booking: identical booking already in flight")
)

// ValidationError is surfaced immediately and never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// submissionMessage picks the server-provided reason when the backend gave
// one, falling back to the generic message.
func submissionMessage(err error) string {
	if errors.Is(err, ErrDuplicateSubmission) {
		return MsgDuplicateBooking
	}
	var re ReasonError
	if errors.As(err, &re) {
		if reason := strings.TrimSpace(re.Reason()); reason != "" {
			return reason
		}
	}
	return MsgBookingFailed
}
