package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/timeclock/internal/application"
	"github.com/example/timeclock/internal/holiday"
	apihttp "github.com/example/timeclock/internal/http"
	"github.com/example/timeclock/internal/testfixtures"
)

type apiFixture struct {
	handler http.Handler
	store   *testfixtures.MemoryStore
	clock   *testfixtures.Clock
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("id")
	tokens := testfixtures.NewIDGenerator("token")

	compliance := application.NewComplianceMonitor(store, holiday.NewGermany(), ids.NextFunc(), clock.NowFunc(), nil)
	tracking := application.NewTimeTrackingService(store, compliance, ids.NextFunc(), clock.NowFunc(), nil)
	auth := application.NewAuthService(store, ids.NextFunc(), tokens.NextFunc(), 24*time.Hour, clock.NowFunc(), nil)
	employees := application.NewEmployeeService(store, ids.NextFunc(), clock.NowFunc(), nil)
	absences := application.NewAbsenceService(store, ids.NextFunc(), clock.NowFunc(), nil)

	handler := apihttp.NewRouter(apihttp.RouterConfig{
		Auth:      apihttp.NewAuthHandler(auth, tracking, nil),
		Tracking:  apihttp.NewTrackingHandler(tracking, nil),
		Employees: apihttp.NewEmployeeHandler(employees, nil),
		Absences:  apihttp.NewAbsenceHandler(absences, nil),
		Sessions:  auth,
	})
	return &apiFixture{handler: handler, store: store, clock: clock}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reader).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, name string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/register", "", map[string]any{
		"name":            name,
		"password":        "long enough",
		"password_repeat": "long enough",
		"birth_date":      "1990-05-10",
		"weekly_hours":    40,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}
}

func (f *apiFixture) login(t *testing.T, name string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/sessions", "", map[string]any{
		"name":     name,
		"password": "long enough",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login response without token")
	}
	return resp.Token
}

func TestRegisterAndLoginFlow(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)
	api.register(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/sessions", "", map[string]any{
		"name":     "alice",
		"password": "wrong password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}

	token := api.login(t, "alice")

	rec = api.do(t, http.MethodGet, "/api/account", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("account status = %d, body %s", rec.Code, rec.Body)
	}
	var account struct {
		Employee struct {
			Name        string `json:"name"`
			FlexBalance string `json:"flex_balance"`
		} `json:"employee"`
		TrafficLight string `json:"traffic_light"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if account.Employee.Name != "alice" || account.TrafficLight != "yellow" {
		t.Fatalf("account = %+v, want alice/yellow", account)
	}

	rec = api.do(t, http.MethodDelete, "/api/sessions/current", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = api.do(t, http.MethodGet, "/api/account", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("account after logout status = %d", rec.Code)
	}
}

func TestRegisterValidationResponse(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)

	rec := api.do(t, http.MethodPost, "/api/register", "", map[string]any{
		"name":            "bob",
		"password":        "short",
		"password_repeat": "short",
		"birth_date":      "1990-05-10",
		"weekly_hours":    40,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp.Errors["password"]; !ok {
		t.Fatalf("errors = %v, want password entry", resp.Errors)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)

	if rec := api.do(t, http.MethodPost, "/api/stamps", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/stamps", "bogus", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token status = %d", rec.Code)
	}
}

func TestClockAndDayOverview(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)
	api.register(t, "alice")
	token := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/stamps", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("clock status = %d, body %s", rec.Code, rec.Body)
	}
	api.clock.Advance(8 * time.Hour)
	rec = api.do(t, http.MethodPost, "/api/stamps", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("clock out status = %d, body %s", rec.Code, rec.Body)
	}

	rec = api.do(t, http.MethodGet, "/api/days/2025-03-03", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("day status = %d, body %s", rec.Code, rec.Body)
	}
	var overview struct {
		Stamps []struct {
			OutsideWindow bool `json:"outside_window"`
		} `json:"stamps"`
		Worked string `json:"worked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	// 08:00 to 16:00 with the 30m break deducted.
	if len(overview.Stamps) != 2 || overview.Worked != "7h30m0s" {
		t.Fatalf("overview = %+v, want 2 stamps and 7h30m0s", overview)
	}

	if rec := api.do(t, http.MethodGet, "/api/days/not-a-date", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid date status = %d", rec.Code)
	}
}

func TestManualStampEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)
	api.register(t, "alice")
	token := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/days/2025-02-28/stamps", token, map[string]any{"time": "09:00"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("manual stamp status = %d, body %s", rec.Code, rec.Body)
	}
	var created struct {
		Stamp struct {
			ID string `json:"id"`
		} `json:"stamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode stamp: %v", err)
	}

	rec = api.do(t, http.MethodPut, fmt.Sprintf("/api/stamps/%s", created.Stamp.ID), token, map[string]any{
		"day":  "2025-02-28",
		"time": "08:30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body)
	}

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/stamps/%s", created.Stamp.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body)
	}
	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/stamps/%s", created.Stamp.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeated delete status = %d", rec.Code)
	}

	if rec := api.do(t, http.MethodPost, "/api/days/2025-02-28/stamps", token, map[string]any{"time": "late"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid clock status = %d", rec.Code)
	}
}

func TestAbsenceEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)
	api.register(t, "alice")
	token := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/absences", token, map[string]any{
		"day":      "2025-02-28",
		"type":     "sick",
		"approved": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("absence status = %d, body %s", rec.Code, rec.Body)
	}
	rec = api.do(t, http.MethodPost, "/api/absences", token, map[string]any{
		"day":  "2025-02-28",
		"type": "vacation",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate absence status = %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/absences?from=2025-02-24&to=2025-02-28", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body)
	}
	var listed struct {
		Absences []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"absences"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Absences) != 1 || listed.Absences[0].Type != "sick" {
		t.Fatalf("absences = %+v, want one sick day", listed.Absences)
	}

	rec = api.do(t, http.MethodDelete, "/api/absences/"+listed.Absences[0].ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPIFixture(t)
	api.register(t, "alice")
	token := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/days/2025-02-28/stamps", token, map[string]any{"time": "09:00"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("stamp in status = %d", rec.Code)
	}
	rec = api.do(t, http.MethodPost, "/api/days/2025-02-28/stamps", token, map[string]any{"time": "18:00"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("stamp out status = %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/reports/average?from=2025-02-24&to=2025-02-28", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("average status = %d, body %s", rec.Code, rec.Body)
	}
	var average struct {
		Days  int    `json:"days"`
		Total string `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &average); err != nil {
		t.Fatalf("decode average: %v", err)
	}
	if average.Days != 1 || average.Total != "0.25" {
		t.Fatalf("average = %+v, want one day totalling 0.25", average)
	}

	if rec := api.do(t, http.MethodGet, "/api/reports/rollups", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("rollups status = %d, body %s", rec.Code, rec.Body)
	}
}
