package server

import (
	"encoding/json"
	"net/http"

	"github.com/aidanlsb/linkq/internal/engine"
)

// Response is the JSON envelope for every API response.
type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

var statusByCode = map[string]int{
	engine.CodeQueryInvalid:            http.StatusBadRequest,
	engine.CodeModelNotFound:           http.StatusNotFound,
	engine.CodeRelationshipNotFound:    http.StatusBadRequest,
	engine.CodeUnsupportedRelationship: http.StatusUnprocessableEntity,
	engine.CodeAliasCollision:          http.StatusUnprocessableEntity,
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	code, suggestion := engine.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeErrorStatus(w, status, code, err.Error(), suggestion)
}

func writeErrorStatus(w http.ResponseWriter, status int, code, message, suggestion string) {
	writeJSON(w, status, Response{
		OK:    false,
		Error: &ErrorInfo{Code: code, Message: message, Suggestion: suggestion},
	})
}
