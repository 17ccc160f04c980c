// Package booking implements the appointment-booking workflow: the cascading
// department → doctor → date → slot selection, the staleness guard for the
// dependent remote queries, and the single-shot submission gate.
package booking

import (
	"context"
)

// Patient is read-only reference data used by the patient selector.
type Patient struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Department is read-only reference data used by the department selector.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Doctor is one entry of the doctor list fetched for a department.
type Doctor struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Appointment is the record returned by the remote API once a booking is
// created.
type Appointment struct {
	ID              string          `json:"id"`
	PatientID       string          `json:"patientId"`
	DoctorID        string          `json:"doctorId"`
	Department      string          `json:"department"`
	AppointmentType AppointmentType `json:"appointmentType"`
	AppointmentDate Date            `json:"appointmentDate"`
	AppointmentTime string          `json:"appointmentTime"`
	Notes           string          `json:"notes,omitempty"`
	Status          string          `json:"status,omitempty"`
}

// Backend is the remote hospital API as seen by the workflow. The
// hospitalapi package provides the HTTP implementation.
type Backend interface {
	// ListPatients and ListDepartments load reference data once per session.
	ListPatients(ctx context.Context) ([]Patient, error)
	ListDepartments(ctx context.Context) ([]Department, error)

	// DoctorsByDepartment and AvailableSlots are the two dependent queries.
	DoctorsByDepartment(ctx context.Context, departmentID string) ([]Doctor, error)
	AvailableSlots(ctx context.Context, doctorID string, date Date) ([]string, error)

	// CreateAppointment is the single non-idempotent write.
	CreateAppointment(ctx context.Context, draft Draft) (*Appointment, error)
}

// Navigator receives the terminal signals of a booking session.
type Navigator interface {
	// BookingComplete fires exactly once after a successful submission.
	BookingComplete(sessionID string, appt Appointment)
	// Abandoned fires when the user cancels or the session expires.
	Abandoned(sessionID string)
}

// ReasonError is implemented by backend errors that carry a user-facing,
// server-provided reason.
type ReasonError interface {
	error
	Reason() string
}
