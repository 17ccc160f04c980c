// Package hospitalapi is the HTTP client for the hospital administration API
// that backs the booking workflow.
package hospitalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/hospital-admin/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// Client is a small JSON client for the hospital API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *logging.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// NewClient creates a client for baseURL (e.g. https://hms.example.org/api).
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otel.Tracer("hospital.internal.hospitalapi"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListPatients calls GET /patients.
func (c *Client) ListPatients(ctx context.Context) ([]PatientRecord, error) {
	var out []PatientRecord
	if err := c.do(ctx, "list_patients", http.MethodGet, "/patients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDepartments calls GET /departments.
func (c *Client) ListDepartments(ctx context.Context) ([]DepartmentRecord, error) {
	var out []DepartmentRecord
	if err := c.do(ctx, "list_departments", http.MethodGet, "/departments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DoctorsByDepartment calls GET /departments/{id}/doctors.
func (c *Client) DoctorsByDepartment(ctx context.Context, departmentID string) ([]DoctorRecord, error) {
	if strings.TrimSpace(departmentID) == "" {
		return nil, fmt.Errorf("hospitalapi: doctors by department: missing department id")
	}
	var out []DoctorRecord
	path := "/departments/" + url.PathEscape(departmentID) + "/doctors"
	if err := c.do(ctx, "doctors_by_department", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableSlots calls GET /appointments/available-slots?doctorId=&date=.
// date is YYYY-MM-DD.
func (c *Client) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if strings.TrimSpace(doctorID) == "" || strings.TrimSpace(date) == "" {
		return nil, fmt.Errorf("hospitalapi: available slots: doctor id and date required")
	}
	q := url.Values{}
	q.Set("doctorId", doctorID)
	q.Set("date", date)
	var out []string
	if err := c.do(ctx, "available_slots", http.MethodGet, "/appointments/available-slots?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAppointment calls POST /appointments. It is never retried.
//
// Once the server answers 2xx the appointment exists, so a body that does not
// decode is logged and an empty record returned instead of an error.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create_appointment", http.MethodPost, "/appointments", req, &raw); err != nil {
		return nil, err
	}
	var out AppointmentRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			c.logger.Warn("hospitalapi: create appointment: undecodable response", "error", err)
			return &AppointmentRecord{}, nil
		}
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	if strings.TrimSpace(c.baseURL) == "" {
		return fmt.Errorf("hospitalapi: missing base url")
	}
	ctx, span := c.tracer.Start(ctx, "hospitalapi."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("hospitalapi.path", path),
	))
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hospitalapi: %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("hospitalapi: %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("hospitalapi: %s: http request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hospitalapi: %s: read response: %w", op, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("hospitalapi call",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, "non-2xx response")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], respBody...)
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("hospitalapi: %s: unmarshal response: %w", op, err)
	}
	return nil
}

// errorMessage extracts a reason from a JSON error body. Non-JSON bodies are
// not shown to users.
func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return truncateRunes(firstNonEmpty(env.Message, env.Error), maxReasonRunes)
}

const maxReasonRunes = 300

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
