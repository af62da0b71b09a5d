package web

// errors.go provides unified error responses for the web layer.
//
// Every error is logged with its technical detail and request id, mapped
// through core.MapError, and returned as JSON for API routes or as plain
// text for pages.

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvdxf/internal/core"
	"github.com/JonMunkholm/csvdxf/internal/logging"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

var codeStatus = map[string]int{
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE004": http.StatusBadRequest,
	"FILE007": http.StatusInternalServerError,
	"FILE008": http.StatusConflict,
	"GEO002":  http.StatusConflict,
	"RUN001":  http.StatusNotFound,
	"RUN002":  http.StatusBadRequest,
	"RUN003":  http.StatusGatewayTimeout,
	"RUN004":  http.StatusBadRequest,
	"RATE001": http.StatusTooManyRequests,
}

var categoryStatus = map[string]int{
	"FILE": http.StatusUnprocessableEntity,
	"INF":  http.StatusServiceUnavailable,
	"MAP":  http.StatusUnprocessableEntity,
	"GEO":  http.StatusUnprocessableEntity,
}

// statusFor picks the HTTP status for a mapped error.
func statusFor(msg core.UserMessage) int {
	if st, ok := codeStatus[msg.Code]; ok {
		return st
	}
	if st, ok := categoryStatus[msg.Category()]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(msg)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, msg, err, status)
		return
	}
	http.Error(w, msg.Message+" ("+msg.Code+"). "+msg.Action, status)
}

// respondErrorJSON writes a JSON error. Detail carries the technical error
// for mapped errors only; unknown errors stay opaque.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, err error, status int) {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if core.IsUserFacing(err) {
		resp.Detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// Browser form posts to the API still get a readable page.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
