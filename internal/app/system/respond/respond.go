// Package respond writes the JSON envelope used by every /api endpoint.
//
// Successes are
//
//	{ "success": true, "message": "...", "data": ... }
//
// and failures are
//
//	{ "success": false, "message": "...", "error": "...", "errors": [{field, message}] }
//
// where "error" carries the underlying cause and "errors" the per-field
// validation messages; both are omitted when empty.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"go.uber.org/zap"
)

// Success is the success envelope. Message and Data are omitted when empty.
type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Failure is the error envelope.
type Failure struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Error   string                `json:"error,omitempty"`
	Errors  []inputval.FieldError `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success{Success: true, Data: data})
}

// Done writes msg and data with the given status.
func Done(w http.ResponseWriter, status int, msg string, data any) {
	JSON(w, status, Success{Success: true, Message: msg, Data: data})
}

// Fail writes a failure envelope without a cause.
func Fail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Failure{Message: msg})
}

// BadRequest writes 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) { Fail(w, http.StatusBadRequest, msg) }

// NotFound writes 404 with msg.
func NotFound(w http.ResponseWriter, msg string) { Fail(w, http.StatusNotFound, msg) }

// Invalid writes 400 with every field error from res.
func Invalid(w http.ResponseWriter, res *inputval.Result) {
	JSON(w, http.StatusBadRequest, Failure{
		Message: "Validation failed",
		Errors:  res.Errors,
	})
}

// ServerError logs err and writes 500 with msg and the error text.
func ServerError(w http.ResponseWriter, log *zap.Logger, msg string, err error, fields ...zap.Field) {
	if log != nil {
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	f := Failure{Message: msg}
	if err != nil {
		f.Error = err.Error()
	}
	JSON(w, http.StatusInternalServerError, f)
}

// Decode reads a JSON body into dst. Unknown fields are ignored.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst)
}
