package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/hospital-admin/internal/observability/metrics"
	"github.com/wolfman30/hospital-admin/pkg/logging"
)

// Handler exposes booking sessions over HTTP.
type Handler struct {
	registry *Registry
	gatherer prometheus.Gatherer
	logger   *logging.Logger

	allowAnyOrigin bool
	allowedOrigins map[string]bool
}

// NewHandler creates a booking handler. A nil gatherer falls back to the
// default Prometheus registry.
func NewHandler(registry *Registry, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{registry: registry, gatherer: gatherer, logger: logger}
}

// AllowOrigins lets pages on the given origins open the events stream in
// addition to same-host pages. "*" allows any origin.
func (h *Handler) AllowOrigins(origins ...string) *Handler {
	h.allowedOrigins = make(map[string]bool, len(origins))
	for _, origin := range origins {
		switch origin = normalizeOrigin(origin); origin {
		case "":
		case "*":
			h.allowAnyOrigin = true
		default:
			h.allowedOrigins[origin] = true
		}
	}
	return h
}

// Routes mounts under /api/bookings.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/{field}", h.SetField)
		r.Post("/submit", h.Submit)
		r.Post("/cancel", h.Cancel)
		r.Get("/events", h.Events)
	})
	return r
}

type fieldRequest struct {
	Value string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession handles POST /api/bookings/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Create(r.Context())
	if err != nil {
		// The snapshot already carries the load error for the client.
		h.logger.Warn("booking session created without reference data", "session_id", s.ID(), "error", err)
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession handles GET /api/bookings/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// SetField handles PUT /api/bookings/sessions/{sessionID}/{field}
func (h *Handler) SetField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var err error
	switch chi.URLParam(r, "field") {
	case "patient":
		err = s.SetPatient(req.Value)
	case "department":
		err = s.SetDepartment(req.Value)
	case "doctor":
		err = s.SetDoctor(req.Value)
	case "date":
		err = s.SetDate(req.Value)
	case "time":
		err = s.SetTime(req.Value)
	case "type":
		err = s.SetAppointmentType(req.Value)
	case "notes":
		err = s.SetNotes(req.Value)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown field"})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Submit handles POST /api/bookings/sessions/{sessionID}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	appt, err := s.Submit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Cancel handles POST /api/bookings/sessions/{sessionID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Cancel(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/bookings/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Summarize(h.gatherer))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "booking session not found"})
		return nil, false
	}
	return s, true
}

// writeError maps workflow errors to status codes. Backend failures on
// submit carry the user-facing message chosen by the session.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Message})
	case errors.Is(err, ErrDepartmentRequired),
		errors.Is(err, ErrDoctorNotSelectable),
		errors.Is(err, ErrSlotUnavailable):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrSubmissionInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrDuplicateSubmission):
		writeJSON(w, http.StatusConflict, errorResponse{Error: MsgDuplicateBooking})
	case errors.Is(err, ErrSessionClosed):
		writeJSON(w, http.StatusGone, errorResponse{Error: "booking session closed"})
	default:
		h.logger.Error("booking request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: submissionMessage(err)})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
