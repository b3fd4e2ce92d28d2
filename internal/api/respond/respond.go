// Package respond writes the uniform JSON envelope used by every endpoint:
// a success flag, the payload on success, and a machine-stable error
// category plus human-readable message on failure.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

// Error categories carried in the envelope. Callers branch on these, not on
// the human-readable message.
const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeAuth       = "auth_error"
	CodeNotify     = "notify_failed"
	CodeServer     = "server_error"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func write(w http.ResponseWriter, status int, e envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(e); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

// OK writes a 200 success envelope with the given payload.
func OK(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusOK, envelope{Success: true, Data: data})
}

// OKWithMessage writes a 200 success envelope with a payload and a message,
// used to report outcomes like "no changes" distinctly from plain success.
func OKWithMessage(w http.ResponseWriter, data interface{}, message string) {
	write(w, http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

// Created writes a 201 success envelope with the given payload.
func Created(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusCreated, envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with an error category and message.
func Fail(w http.ResponseWriter, status int, code string, err error) {
	write(w, status, envelope{Success: false, Error: code, Message: err.Error()})
}
