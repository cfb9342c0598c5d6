package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/timeclock/internal/application"
	"github.com/example/timeclock/internal/persistence"
)

type absenceService interface {
	RegisterAbsence(ctx context.Context, employeeID string, day time.Time, absenceType persistence.AbsenceType, approved bool) (persistence.Absence, error)
	DeleteAbsence(ctx context.Context, employeeID, absenceID string) error
	ListAbsences(ctx context.Context, employeeID string, from, to time.Time) ([]persistence.Absence, error)
}

type AbsenceHandler struct {
	service   absenceService
	responder responder
	logger    *slog.Logger
}

func NewAbsenceHandler(service absenceService, logger *slog.Logger) *AbsenceHandler {
	base := defaultLogger(logger)
	return &AbsenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AbsenceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AbsenceHandler", operation, attrs...)
}

func (h *AbsenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	var req absenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	day, err := parseDate(req.Day)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "employee_id", employee.ID, "day", req.Day)
	absence, err := h.service.RegisterAbsence(r.Context(), employee.ID, day, persistence.AbsenceType(req.Type), req.Approved)
	if err != nil {
		logger.ErrorContext(r.Context(), "absence registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("absence_id", absence.ID).InfoContext(r.Context(), "absence registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, absenceResponse{Absence: toAbsenceDTO(absence)})
}

func (h *AbsenceHandler) List(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())
	query := r.URL.Query()

	from, err := parseDate(query.Get("from"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDate(query.Get("to"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	absences, err := h.service.ListAbsences(r.Context(), employee.ID, from, to)
	if err != nil {
		h.log(r.Context(), "List", "employee_id", employee.ID).ErrorContext(r.Context(), "absence list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]absenceDTO, len(absences))
	for i, absence := range absences {
		out[i] = toAbsenceDTO(absence)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAbsencesResponse{Absences: out})
}

func (h *AbsenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())
	absenceID := chi.URLParam(r, "id")

	logger := h.log(r.Context(), "Delete", "employee_id", employee.ID, "absence_id", absenceID)
	if err := h.service.DeleteAbsence(r.Context(), employee.ID, absenceID); err != nil {
		logger.ErrorContext(r.Context(), "absence delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "absence deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type absenceRequest struct {
	Day      string `json:"day"`
	Type     string `json:"type"`
	Approved bool   `json:"approved"`
}

type absenceResponse struct {
	Absence absenceDTO `json:"absence"`
}

type listAbsencesResponse struct {
	Absences []absenceDTO `json:"absences"`
}

type absenceDTO struct {
	ID       string `json:"id"`
	Day      string `json:"day"`
	Type     string `json:"type"`
	Approved bool   `json:"approved"`
}

func toAbsenceDTO(absence persistence.Absence) absenceDTO {
	return absenceDTO{
		ID:       absence.ID,
		Day:      absence.Day.Format(dateLayout),
		Type:     string(absence.Type),
		Approved: absence.Approved,
	}
}
