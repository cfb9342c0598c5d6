package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/application"
	"github.com/example/timeclock/internal/persistence"
)

type employeeService interface {
	Profile(ctx context.Context, employeeID string) (application.Profile, error)
	UpdateWeeklyHours(ctx context.Context, employeeID string, weeklyHours int, effectiveFrom time.Time) error
	UpdateThresholds(ctx context.Context, employeeID string, green, red decimal.Decimal) error
	Subordinates(ctx context.Context, supervisorID string) ([]application.SubordinateOverview, error)
	ListWeeklyHours(ctx context.Context, employeeID string) ([]persistence.WeeklyHoursEntry, error)
}

type EmployeeHandler struct {
	service   employeeService
	responder responder
	logger    *slog.Logger
}

func NewEmployeeHandler(service employeeService, logger *slog.Logger) *EmployeeHandler {
	base := defaultLogger(logger)
	return &EmployeeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EmployeeHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EmployeeHandler", operation, attrs...)
}

func (h *EmployeeHandler) Account(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	profile, err := h.service.Profile(r.Context(), employee.ID)
	if err != nil {
		h.log(r.Context(), "Account", "employee_id", employee.ID).ErrorContext(r.Context(), "profile failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{
		Employee:     toEmployeeDTO(profile.Employee),
		TrafficLight: string(profile.TrafficLight),
	})
}

func (h *EmployeeHandler) UpdateWeeklyHours(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	var req weeklyHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	effectiveFrom, err := parseDate(req.EffectiveFrom)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "UpdateWeeklyHours", "employee_id", employee.ID)
	if err := h.service.UpdateWeeklyHours(r.Context(), employee.ID, req.WeeklyHours, effectiveFrom); err != nil {
		logger.ErrorContext(r.Context(), "weekly hours update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "weekly hours updated", "weekly_hours", req.WeeklyHours)
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EmployeeHandler) ListWeeklyHours(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	entries, err := h.service.ListWeeklyHours(r.Context(), employee.ID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]weeklyHoursDTO, len(entries))
	for i, entry := range entries {
		out[i] = weeklyHoursDTO{
			WeeklyHours:   entry.WeeklyHours,
			EffectiveFrom: entry.EffectiveFrom.Format(dateLayout),
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, weeklyHoursResponse{Entries: out})
}

func (h *EmployeeHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	var req thresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	green, err := decimal.NewFromString(req.Green)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	red, err := decimal.NewFromString(req.Red)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateThresholds", "employee_id", employee.ID)
	if err := h.service.UpdateThresholds(r.Context(), employee.ID, green, red); err != nil {
		logger.ErrorContext(r.Context(), "threshold update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "thresholds updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EmployeeHandler) Subordinates(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	overviews, err := h.service.Subordinates(r.Context(), employee.ID)
	if err != nil {
		h.log(r.Context(), "Subordinates", "employee_id", employee.ID).ErrorContext(r.Context(), "subordinate list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]subordinateDTO, len(overviews))
	for i, overview := range overviews {
		out[i] = subordinateDTO{
			ID:           overview.ID,
			Name:         overview.Name,
			FlexBalance:  overview.FlexBalance.String(),
			TrafficLight: string(overview.TrafficLight),
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, subordinatesResponse{Subordinates: out})
}

type profileResponse struct {
	Employee     employeeDTO `json:"employee"`
	TrafficLight string      `json:"traffic_light"`
}

type weeklyHoursRequest struct {
	WeeklyHours   int    `json:"weekly_hours"`
	EffectiveFrom string `json:"effective_from"`
}

type weeklyHoursDTO struct {
	WeeklyHours   int    `json:"weekly_hours"`
	EffectiveFrom string `json:"effective_from"`
}

type weeklyHoursResponse struct {
	Entries []weeklyHoursDTO `json:"entries"`
}

type thresholdsRequest struct {
	Green string `json:"green"`
	Red   string `json:"red"`
}

type subordinateDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FlexBalance  string `json:"flex_balance"`
	TrafficLight string `json:"traffic_light"`
}

type subordinatesResponse struct {
	Subordinates []subordinateDTO `json:"subordinates"`
}
