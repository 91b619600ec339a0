/*
Package req binds HTTP request bodies.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"callrelay/internal/pkg/errs"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes int64 = 64 << 10

// BindJSON decodes a single JSON object from the request body into dst.
// Unknown fields and trailing content are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
