package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AppointmentType is the kind of visit being booked.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "followup"
	TypeCheckup      AppointmentType = "checkup"
	TypeEmergency    AppointmentType = "emergency"
)

// AppointmentTypes lists the accepted types in display order.
var AppointmentTypes = []AppointmentType{TypeConsultation, TypeFollowUp, TypeCheckup, TypeEmergency}

// ParseAppointmentType accepts one of AppointmentTypes. The empty string
// clears the selection.
func ParseAppointmentType(raw string) (AppointmentType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	for _, t := range AppointmentTypes {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "appointmentType", Message: MsgInvalidType}
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or location. The zero value
// means "not selected". Dates are comparable with ==.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate builds a Date, normalising out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate parses YYYY-MM-DD. The empty string yields the zero Date.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("booking: parse date %q: %w", raw, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether no date is selected.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.year != o.year {
		return d.year < o.year
	}
	if d.month != o.month {
		return d.month < o.month
	}
	return d.day < o.day
}

// String renders YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Draft is the booking record under construction. It is only mutated through
// Selection transitions.
type Draft struct {
	PatientID       string          `json:"patientId"`
	Department      string          `json:"department"`
	DoctorID        string          `json:"doctorId"`
	AppointmentType AppointmentType `json:"appointmentType"`
	AppointmentDate Date            `json:"appointmentDate"`
	AppointmentTime string          `json:"appointmentTime"`
	Notes           string          `json:"notes,omitempty"`
}

// Fingerprint identifies the slot a draft would book for a given patient.
func (d Draft) Fingerprint() string {
	return strings.Join([]string{d.PatientID, d.DoctorID, d.AppointmentDate.String(), d.AppointmentTime}, "|")
}

// validateForSubmit checks the aggregate draft at submit time.
func validateForSubmit(d Draft, today Date) error {
	if d.PatientID == "" || d.DoctorID == "" || d.AppointmentDate.IsZero() || d.AppointmentTime == "" || d.AppointmentType == "" {
		return &ValidationError{Message: MsgRequiredFields}
	}
	if d.AppointmentDate.Before(today) {
		return &ValidationError{Field: "appointmentDate", Message: MsgPastDate}
	}
	return nil
}
