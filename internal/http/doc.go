// Package http provides the HTTP handlers, middleware and router for
// the time-tracking API.
//
// All endpoints live under /api and exchange JSON. Authentication uses
// a session token in the Authorization header ("Bearer <token>"):
//   - POST /api/register: creates an employee account.
//   - POST /api/sessions: verifies credentials, runs the daily
//     bookkeeping and issues a session token.
//   - DELETE /api/sessions/current: revokes the current session.
//   - GET /api/account, PUT /api/account/password,
//     PUT /api/account/weekly-hours, GET /api/account/weekly-hours,
//     PUT /api/account/thresholds: account management.
//   - POST /api/stamps: records a clock event at the current instant.
//     PUT /api/stamps/{id} and DELETE /api/stamps/{id} correct records.
//   - GET /api/days/{date}: one day's stamps and totals.
//     POST /api/days/{date}/stamps: adds a stamp at an explicit time.
//   - GET /api/absences, POST /api/absences, DELETE /api/absences/{id}.
//   - GET /api/notifications, DELETE /api/notifications/{id},
//     GET /api/popups: compliance findings and due popup warnings.
//   - GET /api/reports/average, GET /api/reports/rollups: flex-time
//     reporting.
//   - GET /api/subordinates: the supervisor's team overview.
//
// Request/response DTOs live alongside their respective handlers.
package http
