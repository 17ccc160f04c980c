package hospitalapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Wire records. The hospital API historically keys patients and doctors by
// patientId/doctorId; newer endpoints use id. Both are accepted.

type PatientRecord struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (p PatientRecord) Key() string { return firstNonEmpty(p.PatientID, p.ID) }

type DepartmentRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DoctorRecord struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctorId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (d DoctorRecord) Key() string { return firstNonEmpty(d.DoctorID, d.ID) }

// AppointmentRequest is the body of POST /appointments.
type AppointmentRequest struct {
	PatientID       string `json:"patientId"`
	DoctorID        string `json:"doctorId"`
	Department      string `json:"department"`
	AppointmentType string `json:"appointmentType"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Notes           string `json:"notes"`
}

type AppointmentRecord struct {
	ID              flexID `json:"id"`
	AppointmentID   flexID `json:"appointmentId"`
	PatientID       string `json:"patientId"`
	DoctorID        string `json:"doctorId"`
	Department      string `json:"department"`
	AppointmentType string `json:"appointmentType"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Notes           string `json:"notes"`
	Status          string `json:"status"`
}

func (a AppointmentRecord) Key() string {
	return firstNonEmpty(string(a.AppointmentID), string(a.ID))
}

// flexID accepts both string and numeric identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("hospitalapi: id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// errorEnvelope covers the error bodies the API returns.
type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// APIError is a non-2xx response from the hospital API.
type APIError struct {
	Op         string
	StatusCode int
	// Message is the server-provided reason, if the body had one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hospitalapi: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("hospitalapi: %s: status %d", e.Op, e.StatusCode)
}

// Reason exposes the server's message to the booking workflow.
func (e *APIError) Reason() string { return e.Message }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
