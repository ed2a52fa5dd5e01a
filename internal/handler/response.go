package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/monetra/backend/internal/contextkeys"
	"github.com/monetra/backend/internal/domain"
)

const maxBodyBytes = 1 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "err", err)
		}
	}
}

// Success wraps data in the success envelope.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"status": "success", "data": data})
}

// Fail writes a client error envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	kind := "fail"
	if status >= http.StatusInternalServerError {
		kind = "error"
	}
	JSON(w, status, map[string]string{"status": kind, "message": message})
}

// Error writes an error envelope, using AppError status codes when available.
// Internal causes are logged, never returned.
func Error(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			slog.Error(appErr.Message, "err", appErr.Err)
		}
		Fail(w, appErr.Code, appErr.Message)
		return
	}
	slog.Error("unhandled error", "err", err)
	Fail(w, http.StatusInternalServerError, "internal server error")
}

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.AppError{Code: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		}
		if errors.Is(err, io.EOF) {
			return domain.ErrBadRequest("request body is empty")
		}
		return domain.ErrBadRequest("invalid JSON body")
	}
	return nil
}

// userID returns the authenticated user's ID set by the auth middleware.
func userID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(contextkeys.UserID).(string)
	return id, ok && id != ""
}
