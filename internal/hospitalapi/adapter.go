package hospitalapi

import (
	"context"
	"strings"

	"github.com/wolfman30/hospital-admin/internal/booking"
)

// Adapter bridges the hospital API client into booking.Backend.
type Adapter struct {
	client *Client
}

var _ booking.Backend = (*Adapter)(nil)

func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) ListPatients(ctx context.Context) ([]booking.Patient, error) {
	records, err := a.client.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]booking.Patient, 0, len(records))
	for _, p := range records {
		out = append(out, booking.Patient{ID: p.Key(), FirstName: p.FirstName, LastName: p.LastName})
	}
	return out, nil
}

func (a *Adapter) ListDepartments(ctx context.Context) ([]booking.Department, error) {
	records, err := a.client.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]booking.Department, 0, len(records))
	for _, d := range records {
		out = append(out, booking.Department{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

func (a *Adapter) DoctorsByDepartment(ctx context.Context, departmentID string) ([]booking.Doctor, error) {
	records, err := a.client.DoctorsByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	out := make([]booking.Doctor, 0, len(records))
	for _, d := range records {
		out = append(out, booking.Doctor{ID: d.Key(), FirstName: d.FirstName, LastName: d.LastName})
	}
	return out, nil
}

func (a *Adapter) AvailableSlots(ctx context.Context, doctorID string, date booking.Date) ([]string, error) {
	return a.client.AvailableSlots(ctx, doctorID, date.String())
}

// CreateAppointment sends the draft as-is. Fields the server leaves out of
// its response are filled from the draft.
func (a *Adapter) CreateAppointment(ctx context.Context, draft booking.Draft) (*booking.Appointment, error) {
	rec, err := a.client.CreateAppointment(ctx, AppointmentRequest{
		PatientID:       draft.PatientID,
		DoctorID:        draft.DoctorID,
		Department:      draft.Department,
		AppointmentType: string(draft.AppointmentType),
		AppointmentDate: draft.AppointmentDate.String(),
		AppointmentTime: draft.AppointmentTime,
		Notes:           draft.Notes,
	})
	if err != nil {
		return nil, err
	}

	appt := &booking.Appointment{
		ID:              rec.Key(),
		PatientID:       firstNonEmpty(rec.PatientID, draft.PatientID),
		DoctorID:        firstNonEmpty(rec.DoctorID, draft.DoctorID),
		Department:      firstNonEmpty(rec.Department, draft.Department),
		AppointmentType: booking.AppointmentType(firstNonEmpty(rec.AppointmentType, string(draft.AppointmentType))),
		AppointmentDate: draft.AppointmentDate,
		AppointmentTime: firstNonEmpty(rec.AppointmentTime, draft.AppointmentTime),
		Notes:           firstNonEmpty(rec.Notes, draft.Notes),
		Status:          rec.Status,
	}
	if d, ok := parseResponseDate(rec.AppointmentDate); ok {
		appt.AppointmentDate = d
	} else if rec.AppointmentDate != "" {
		a.client.logger.Warn("hospitalapi: create appointment: unrecognised date, keeping draft date",
			"appointment_id", appt.ID, "date", rec.AppointmentDate)
	}
	return appt, nil
}

// parseResponseDate accepts YYYY-MM-DD or a timestamp that starts with one,
// such as 2030-06-01T00:00:00.000Z.
func parseResponseDate(raw string) (booking.Date, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 && raw[10] == 'T' {
		raw = raw[:10]
	}
	if raw == "" {
		return booking.Date{}, false
	}
	d, err := booking.ParseDate(raw)
	if err != nil {
		return booking.Date{}, false
	}
	return d, true
}
