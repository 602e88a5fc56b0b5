package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/bankledger/backend/internal/middleware"
	"github.com/bankledger/backend/internal/services"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 1_048_576 // 1 MB

// requestReader decodes and validates JSON request bodies.
type requestReader struct {
	validator *services.ValidationHelper
	maxBytes  int64
}

func newRequestReader(maxBytes int64) *requestReader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return &requestReader{
		validator: services.NewValidationHelper(),
		maxBytes:  maxBytes,
	}
}

// decode reads exactly one JSON object into dst and validates it. On failure
// the error response has been written and false is returned.
func (rr *requestReader) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, rr.maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		zap.L().Debug("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		services.SendErrorResponse(w, "request.body.invalid", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "request.body.multiple", http.StatusBadRequest, nil)
		return false
	}

	if err := rr.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "request.validation.failed", http.StatusBadRequest, services.ValidationDetail(err))
		return false
	}
	return true
}

// currentUser returns the authenticated user id, writing a 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "auth.unauthorized", http.StatusUnauthorized, nil)
		return "", false
	}
	return userID, true
}

// listResponse is the paginated envelope.
type listResponse[T any] struct {
	Data []T               `json:"data"`
	Meta services.PageMeta `json:"meta"`
}
