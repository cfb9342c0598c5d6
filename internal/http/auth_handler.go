package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/application"
	"github.com/example/timeclock/internal/persistence"
)

type authService interface {
	Register(ctx context.Context, params application.RegisterParams) (persistence.Employee, error)
	Login(ctx context.Context, name, password string) (application.AuthenticateResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, employeeID, current, password, repeat string) error
}

type loginProcessor interface {
	ProcessLogin(ctx context.Context, employeeID string) error
}

type AuthHandler struct {
	service   authService
	processor loginProcessor
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, processor loginProcessor, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, processor: processor, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params, err := req.toParams()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Register", "name", params.Name)
	employee, err := h.service.Register(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("employee_id", employee.ID).InfoContext(r.Context(), "employee registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, employeeResponse{Employee: toEmployeeDTO(employee)})
}

// CreateSession verifies the credentials, runs the daily bookkeeping
// for the employee and issues a session token.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateSession", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	name := strings.TrimSpace(req.Name)
	logger := h.log(r.Context(), "CreateSession", "name", name)

	result, err := h.service.Login(r.Context(), name, req.Password)
	if err != nil {
		logger.ErrorContext(r.Context(), "authentication failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.processor != nil {
		if err := h.processor.ProcessLogin(r.Context(), result.Employee.ID); err != nil {
			logger.ErrorContext(r.Context(), "login bookkeeping failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
	}

	w.Header().Set("X-Session-Token", result.Session.Token)
	logger.With("employee_id", result.Employee.ID).InfoContext(r.Context(), "employee authenticated")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		Employee:  toEmployeeDTO(result.Employee),
	})
}

func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	token := extractTokenFromRequest(r)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	logger := h.log(r.Context(), "DeleteCurrentSession")
	if err := h.service.Logout(r.Context(), token); err != nil {
		logger.ErrorContext(r.Context(), "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session revoked")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	employee, _ := EmployeeFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ChangePassword", "employee_id", employee.ID)
	if err := h.service.ChangePassword(r.Context(), employee.ID, req.CurrentPassword, req.Password, req.PasswordRepeat); err != nil {
		logger.ErrorContext(r.Context(), "password change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password changed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type registerRequest struct {
	Name           string `json:"name"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
	BirthDate      string `json:"birth_date"`
	WeeklyHours    int    `json:"weekly_hours"`
	GreenThreshold string `json:"green_threshold,omitempty"`
	RedThreshold   string `json:"red_threshold,omitempty"`
	SupervisorName string `json:"supervisor_name,omitempty"`
}

func (r registerRequest) toParams() (application.RegisterParams, error) {
	params := application.RegisterParams{
		Name:           strings.TrimSpace(r.Name),
		Password:       r.Password,
		PasswordRepeat: r.PasswordRepeat,
		WeeklyHours:    r.WeeklyHours,
		SupervisorName: strings.TrimSpace(r.SupervisorName),
	}
	if r.BirthDate != "" {
		birthDate, err := parseDate(r.BirthDate)
		if err != nil {
			return application.RegisterParams{}, err
		}
		params.BirthDate = birthDate
	}
	if r.GreenThreshold != "" {
		green, err := decimal.NewFromString(r.GreenThreshold)
		if err != nil {
			return application.RegisterParams{}, errBadRequestBody
		}
		params.GreenThreshold = green
	}
	if r.RedThreshold != "" {
		red, err := decimal.NewFromString(r.RedThreshold)
		if err != nil {
			return application.RegisterParams{}, errBadRequestBody
		}
		params.RedThreshold = red
	}
	return params, nil
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	Employee  employeeDTO `json:"employee"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordRepeat  string `json:"password_repeat"`
}

type employeeResponse struct {
	Employee employeeDTO `json:"employee"`
}

type employeeDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	BirthDate      string  `json:"birth_date"`
	WeeklyHours    int     `json:"weekly_hours"`
	FlexBalance    string  `json:"flex_balance"`
	GreenThreshold string  `json:"green_threshold"`
	RedThreshold   string  `json:"red_threshold"`
	SupervisorID   *string `json:"supervisor_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toEmployeeDTO(employee persistence.Employee) employeeDTO {
	return employeeDTO{
		ID:             employee.ID,
		Name:           employee.Name,
		BirthDate:      employee.BirthDate.Format(dateLayout),
		WeeklyHours:    employee.WeeklyHours,
		FlexBalance:    employee.FlexBalance.String(),
		GreenThreshold: employee.GreenThreshold.String(),
		RedThreshold:   employee.RedThreshold.String(),
		SupervisorID:   employee.SupervisorID,
		CreatedAt:      employee.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      employee.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
