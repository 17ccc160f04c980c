package hospitalapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/hospital-admin/internal/booking"
	"github.com/wolfman30/hospital-admin/pkg/logging"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/api/", logging.Discard(), WithToken("secret"))
}

func TestListPatients(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/patients" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"patientId": "p1", "firstName": "Ada", "lastName": "Lovelace"},
			{"id": "p2", "firstName": "Alan", "lastName": "Turing"},
		})
	})

	patients, err := c.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("ListPatients error: %v", err)
	}
	if len(patients) != 2 || patients[0].Key() != "p1" || patients[1].Key() != "p2" {
		t.Fatalf("unexpected patients: %+v", patients)
	}
}

func TestDoctorsByDepartment_EscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/departments/ear%2Fnose/doctors" {
			t.Fatalf("unexpected path: %s", r.URL.EscapedPath())
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"doctorId": "d1", "firstName": "Gregory", "lastName": "House"}})
	})

	doctors, err := c.DoctorsByDepartment(context.Background(), "ear/nose")
	if err != nil {
		t.Fatalf("DoctorsByDepartment error: %v", err)
	}
	if len(doctors) != 1 || doctors[0].Key() != "d1" {
		t.Fatalf("unexpected doctors: %+v", doctors)
	}
}

func TestDoctorsByDepartment_RequiresID(t *testing.T) {
	c := NewClient("http://unused", logging.Discard())
	if _, err := c.DoctorsByDepartment(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty department id")
	}
}

func TestAvailableSlots_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/appointments/available-slots" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("doctorId") != "d1" || q.Get("date") != "2030-05-01" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]string{"09:00", "09:30"})
	})

	slots, err := c.AvailableSlots(context.Background(), "d1", "2030-05-01")
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 2 || slots[0] != "09:00" {
		t.Fatalf("unexpected slots: %v", slots)
	}
}

func TestCreateAppointment_ServerReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Slot already booked"}`))
	})

	_, err := c.CreateAppointment(context.Background(), AppointmentRequest{PatientID: "p1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Reason() != "Slot already booked" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestCreateAppointment_NonJSONErrorHasNoReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	})

	_, err := c.CreateAppointment(context.Background(), AppointmentRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Reason() != "" {
		t.Fatalf("expected empty reason, got %q", apiErr.Reason())
	}
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, logging.Discard(), WithTimeout(20*time.Millisecond))
	if _, err := c.ListDepartments(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestAdapter_CreateAppointment(t *testing.T) {
	var got AppointmentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/appointments" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"appointmentId": "a1", "status": "scheduled"})
	})

	draft := booking.Draft{
		PatientID:       "p1",
		Department:      "cardiology",
		DoctorID:        "d1",
		AppointmentType: booking.TypeCheckup,
		AppointmentDate: booking.NewDate(2030, time.May, 1),
		AppointmentTime: "09:30",
		Notes:           "fasting",
	}
	appt, err := NewAdapter(c).CreateAppointment(context.Background(), draft)
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}

	want := AppointmentRequest{
		PatientID:       "p1",
		DoctorID:        "d1",
		Department:      "cardiology",
		AppointmentType: "checkup",
		AppointmentDate: "2030-05-01",
		AppointmentTime: "09:30",
		Notes:           "fasting",
	}
	if got != want {
		t.Fatalf("unexpected request body: got=%+v want=%+v", got, want)
	}
	if appt.ID != "a1" || appt.Status != "scheduled" || appt.DoctorID != "d1" || appt.AppointmentDate != draft.AppointmentDate {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
}

func TestAdapter_CreateAppointmentAcceptsAnySuccessBody(t *testing.T) {
	draft := booking.Draft{
		PatientID:       "p1",
		Department:      "cardiology",
		DoctorID:        "d1",
		AppointmentType: booking.TypeCheckup,
		AppointmentDate: booking.NewDate(2030, time.June, 1),
		AppointmentTime: "09:30",
	}

	tests := []struct {
		name     string
		body     string
		wantID   string
		wantDate booking.Date
	}{
		{"iso timestamp date", `{"id":"a1","appointmentDate":"2030-06-02T00:00:00.000Z"}`, "a1", booking.NewDate(2030, time.June, 2)},
		{"numeric id", `{"id":42,"appointmentDate":"2030-06-01"}`, "42", draft.AppointmentDate},
		{"unparseable date", `{"appointmentId":"a2","appointmentDate":"June 1st"}`, "a2", draft.AppointmentDate},
		{"non-json body", `Created`, "", draft.AppointmentDate},
		{"wrong shape", `[1,2,3]`, "", draft.AppointmentDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tt.body))
			})

			appt, err := NewAdapter(c).CreateAppointment(context.Background(), draft)
			if err != nil {
				t.Fatalf("a 2xx create must not fail: %v", err)
			}
			if n := calls.Load(); n != 1 {
				t.Fatalf("expected one create call, got %d", n)
			}
			if appt.ID != tt.wantID || appt.AppointmentDate != tt.wantDate {
				t.Fatalf("unexpected appointment: %+v", appt)
			}
			if appt.PatientID != "p1" || appt.AppointmentTime != "09:30" {
				t.Fatalf("expected draft fields as fallback: %+v", appt)
			}
		})
	}
}

func TestErrorMessage_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 400)
	body, _ := json.Marshal(map[string]string{"message": long})

	msg := errorMessage(body)
	if !utf8.ValidString(msg) {
		t.Fatalf("truncated reason is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(msg); n != maxReasonRunes {
		t.Fatalf("expected %d runes, got %d", maxReasonRunes, n)
	}
}

func TestAdapter_AvailableSlotsFormatsDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2031-01-09" {
			t.Fatalf("unexpected date: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]string{"10:00"})
	})

	slots, err := NewAdapter(c).AvailableSlots(context.Background(), "d1", booking.NewDate(2031, time.January, 9))
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 1 || slots[0] != "10:00" {
		t.Fatalf("unexpected slots: %v", slots)
	}
}
