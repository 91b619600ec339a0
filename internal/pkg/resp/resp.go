/*
Package resp writes JSON HTTP responses.

Two shapes are used: the enveloped {code, message, data} form for service endpoints,
and the flat form ({token}, {error, code}) consumed by call clients.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/logx"
)

// JSONResponse is the enveloped response body.
type JSONResponse struct {
	// Code is 0 for success, otherwise an errs code.
	Code int `json:"code"`

	Message string `json:"message"`

	Data any `json:"data,omitempty"`
}

// ErrorBody is the flat error response body.
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// RespondJSON sets JSON headers and writes payload with httpStatus.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}

// RespondSuccess writes an enveloped 200 response.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError writes an enveloped error response with the error's HTTP status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}

// RespondFlat writes payload as-is with a 200 status.
func RespondFlat(w http.ResponseWriter, r *http.Request, payload any) {
	RespondJSON(w, r, http.StatusOK, payload)
}

// RespondFlatError writes {"error": ..., "code": ...} with the error's HTTP status.
func RespondFlatError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, ErrorBody{
		Error: customErr.Message,
		Code:  customErr.Code,
	})
}
