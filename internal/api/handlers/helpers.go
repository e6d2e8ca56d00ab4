package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
	"github.com/pratik-mahalle/paygate/internal/pkg/validator"
)

const maxRequestBody = 1 << 20

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validator, dst interface{}) bool {
	if err := decodeOptional(w, r, dst); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	if validationErrs := v.Validate(dst); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return false
	}
	return true
}

// decodeOptional reads a JSON body into dst. An empty body is not an error.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if stderrors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("User not authenticated"))
	}
	return userID, ok
}
