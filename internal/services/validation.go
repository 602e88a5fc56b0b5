package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Message string            `json:"message"`          // Dotted error code
	Detail  map[string]string `json:"detail,omitempty"` // Structured detail
}

var (
	branchRegex  = regexp.MustCompile(`^[0-9]{3}$`)
	accountRegex = regexp.MustCompile(`^[0-9]{7}-[0-9]$`)
	digitsRegex  = regexp.MustCompile(`^[0-9]+$`)
)

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterValidation("branch", func(fl validator.FieldLevel) bool {
		return branchRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("account_number", func(fl validator.FieldLevel) bool {
		return accountRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsRegex.MatchString(fl.Field().String())
	})
	return &ValidationHelper{
		validator: v,
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// ValidationDetail flattens validator errors into field -> failed tag.
func ValidationDetail(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}
	detail := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		detail[fe.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", fe.Tag())
	}
	return detail
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, detail map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Message: message, Detail: detail})
}

// SendServiceError renders err using its code when it is a service error, and
// as "<fallback>" with status 500 otherwise. Store error text is never exposed.
func SendServiceError(w http.ResponseWriter, err error, fallback string) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		status := StatusCode(svcErr)
		if status == http.StatusInternalServerError {
			zap.L().Error("Request failed", zap.String("code", svcErr.Code), zap.Error(err))
		}
		SendErrorResponse(w, svcErr.Code, status, svcErr.Detail)
		return
	}
	zap.L().Error("Request failed", zap.String("code", fallback), zap.Error(err))
	SendErrorResponse(w, fallback, http.StatusInternalServerError, nil)
}

// SendJSON writes v as JSON with the given status.
func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
