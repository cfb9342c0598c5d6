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

type trackingService interface {
	ClockStamp(ctx context.Context, employeeID string) (persistence.TimeStamp, error)
	AddManualStamp(ctx context.Context, employeeID string, day time.Time, clock time.Duration) (persistence.TimeStamp, error)
	EditStamp(ctx context.Context, employeeID, stampID string, day time.Time, clock time.Duration) (persistence.TimeStamp, error)
	DeleteStamp(ctx context.Context, employeeID, stampID string) error
	DayOverview(ctx context.Context, employeeID string, day time.Time) (application.DayOverview, error)
	AverageFlexTime(ctx context.Context, employeeID string, from, to time.Time, includeMissing bool) (application.FlexAverage, error)
	FlexRollups(ctx context.Context, employeeID string) (application.Rollups, error)
	Notifications(ctx context.Context, employeeID string) ([]persistence.Notification, error)
	PendingPopups(ctx context.Context, employeeID string) ([]persistence.Notification, error)
	DismissPopup(ctx context.Context, employeeID, notificationID string) error
}

type TrackingHandler struct {
	service   trackingService
	responder responder
	logger    *slog.Logger
}

func NewTrackingHandler(service trackingService, logger *slog.Logger) *TrackingHandler {
	base := defaultLogger(logger)
	return &TrackingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TrackingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TrackingHandler", operation, attrs...)
}

func (h *TrackingHandler) Clock(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())
	logger := h.log(r.Context(), "Clock", "employee_id", employee.ID)

	stamp, err := h.service.ClockStamp(r.Context(), employee.ID)
	if err != nil {
		logger.ErrorContext(r.Context(), "clock stamp failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("stamp_id", stamp.ID).InfoContext(r.Context(), "stamp recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, stampResponse{Stamp: toStampDTO(stamp)})
}

func (h *TrackingHandler) AddStamp(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	day, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	var req stampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	clock, err := parseClock(req.Time)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "AddStamp", "employee_id", employee.ID, "day", day.Format(dateLayout))
	stamp, err := h.service.AddManualStamp(r.Context(), employee.ID, day, clock)
	if err != nil {
		logger.ErrorContext(r.Context(), "manual stamp failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("stamp_id", stamp.ID).InfoContext(r.Context(), "manual stamp recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, stampResponse{Stamp: toStampDTO(stamp)})
}

func (h *TrackingHandler) EditStamp(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())
	stampID := chi.URLParam(r, "id")

	var req editStampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	day, err := parseDate(req.Day)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	clock, err := parseClock(req.Time)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "EditStamp", "employee_id", employee.ID, "stamp_id", stampID)
	stamp, err := h.service.EditStamp(r.Context(), employee.ID, stampID, day, clock)
	if err != nil {
		logger.ErrorContext(r.Context(), "stamp edit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "stamp edited")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stampResponse{Stamp: toStampDTO(stamp)})
}

func (h *TrackingHandler) DeleteStamp(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())
	stampID := chi.URLParam(r, "id")

	logger := h.log(r.Context(), "DeleteStamp", "employee_id", employee.ID, "stamp_id", stampID)
	if err := h.service.DeleteStamp(r.Context(), employee.ID, stampID); err != nil {
		logger.ErrorContext(r.Context(), "stamp delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "stamp deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TrackingHandler) Day(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	day, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	overview, err := h.service.DayOverview(r.Context(), employee.ID, day)
	if err != nil {
		h.log(r.Context(), "Day", "employee_id", employee.ID).ErrorContext(r.Context(), "day overview failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDayOverviewDTO(overview))
}

func (h *TrackingHandler) Average(w http.ResponseWriter, r *http.Request) {
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
	includeMissing := query.Get("include_missing") == "true"

	result, err := h.service.AverageFlexTime(r.Context(), employee.ID, from, to, includeMissing)
	if err != nil {
		h.log(r.Context(), "Average", "employee_id", employee.ID).ErrorContext(r.Context(), "average failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, averageResponse{
		From:    result.From.Format(dateLayout),
		To:      result.To.Format(dateLayout),
		Days:    result.Days,
		Total:   result.Total.String(),
		Average: result.Average.String(),
	})
}

func (h *TrackingHandler) Rollups(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	rollups, err := h.service.FlexRollups(r.Context(), employee.ID)
	if err != nil {
		h.log(r.Context(), "Rollups", "employee_id", employee.ID).ErrorContext(r.Context(), "rollups failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, rollupsResponse{
		Month:   rollups.Month.String(),
		Quarter: rollups.Quarter.String(),
		Year:    rollups.Year.String(),
	})
}

func (h *TrackingHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	notifications, err := h.service.Notifications(r.Context(), employee.ID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, notificationsResponse{Notifications: toNotificationDTOs(notifications)})
}

func (h *TrackingHandler) Popups(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	popups, err := h.service.PendingPopups(r.Context(), employee.ID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, notificationsResponse{Notifications: toNotificationDTOs(popups)})
}

func (h *TrackingHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())
	notificationID := chi.URLParam(r, "id")

	logger := h.log(r.Context(), "DismissNotification", "employee_id", employee.ID, "notification_id", notificationID)
	if err := h.service.DismissPopup(r.Context(), employee.ID, notificationID); err != nil {
		logger.ErrorContext(r.Context(), "dismiss failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "notification dismissed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type stampRequest struct {
	Time string `json:"time"`
}

type editStampRequest struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type stampResponse struct {
	Stamp stampDTO `json:"stamp"`
}

type stampDTO struct {
	ID      string `json:"id"`
	Day     string `json:"day"`
	At      string `json:"at"`
	Settled bool   `json:"settled"`
}

func toStampDTO(stamp persistence.TimeStamp) stampDTO {
	return stampDTO{
		ID:      stamp.ID,
		Day:     stamp.Day.Format(dateLayout),
		At:      stamp.At.UTC().Format(time.RFC3339),
		Settled: stamp.Settled,
	}
}

type dayOverviewDTO struct {
	Day    string        `json:"day"`
	Stamps []dayStampDTO `json:"stamps"`
	Worked string        `json:"worked"`
	Target string        `json:"target"`
	Delta  string        `json:"delta"`
}

type dayStampDTO struct {
	stampDTO
	OutsideWindow bool `json:"outside_window"`
}

func toDayOverviewDTO(overview application.DayOverview) dayOverviewDTO {
	stamps := make([]dayStampDTO, len(overview.Stamps))
	for i, view := range overview.Stamps {
		stamps[i] = dayStampDTO{stampDTO: toStampDTO(view.Stamp), OutsideWindow: view.OutsideWindow}
	}
	return dayOverviewDTO{
		Day:    overview.Day.Format(dateLayout),
		Stamps: stamps,
		Worked: overview.Worked.String(),
		Target: overview.Target.String(),
		Delta:  overview.Delta.String(),
	}
}

type averageResponse struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Days    int    `json:"days"`
	Total   string `json:"total"`
	Average string `json:"average"`
}

type rollupsResponse struct {
	Month   string `json:"month"`
	Quarter string `json:"quarter"`
	Year    string `json:"year"`
}

type notificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}

type notificationDTO struct {
	ID      string `json:"id"`
	Code    int    `json:"code"`
	Day     string `json:"day"`
	Message string `json:"message"`
	Popup   bool   `json:"popup"`
	ShowAt  string `json:"show_at,omitempty"`
}

func toNotificationDTOs(notifications []persistence.Notification) []notificationDTO {
	if len(notifications) == 0 {
		return nil
	}
	out := make([]notificationDTO, 0, len(notifications))
	for _, notification := range notifications {
		dto := notificationDTO{
			ID:      notification.ID,
			Code:    notification.Code,
			Day:     notification.Day.Format(dateLayout),
			Message: notification.Message,
			Popup:   notification.Popup,
		}
		if notification.ShowAt != nil {
			dto.ShowAt = notification.ShowAt.UTC().Format(time.RFC3339)
		}
		out = append(out, dto)
	}
	return out
}
