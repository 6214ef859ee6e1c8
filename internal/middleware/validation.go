package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "licensegate/internal/errors"
)

// DefaultMaxBodySize bounds request bodies. License documents are small.
const DefaultMaxBodySize = 64 * 1024

// RequestValidator decodes JSON request bodies and validates them using
// struct tags, answering with a 400 problem on failure.
type RequestValidator struct {
	validator   *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator:   v,
		logger:      logger.With(slog.String("component", "request_validator")),
		maxBodySize: DefaultMaxBodySize,
	}
}

// Decode reads the body of r into dst and validates it. It reports false
// after writing the error response.
func (v *RequestValidator) Decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, v.maxBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			v.reject(w, r, http.StatusRequestEntityTooLarge, "Payload Too Large",
				fmt.Sprintf("Request body exceeds %d bytes", v.maxBodySize), nil)
			return false
		}
		v.reject(w, r, http.StatusBadRequest, "Invalid Request Body", "Request body contains invalid JSON", nil)
		return false
	}
	if _, err := dec.Token(); err != io.EOF {
		v.reject(w, r, http.StatusBadRequest, "Invalid Request Body", "Request body must contain a single JSON object", nil)
		return false
	}

	if err := v.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			v.reject(w, r, http.StatusBadRequest, "Validation Failed", err.Error(), nil)
			return false
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = formatValidationError(fe)
		}
		v.reject(w, r, http.StatusBadRequest, "Validation Failed", "Request body failed validation", fields)
		return false
	}
	return true
}

func (v *RequestValidator) reject(w http.ResponseWriter, r *http.Request, status int, title, detail string, fields map[string]string) {
	v.logger.WarnContext(r.Context(), "request rejected",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("detail", detail))

	problem := apperrors.NewProblemDetails(status, apperrors.TypeValidation, title, detail, r.URL.Path).
		WithExtension("trace_id", GetReqID(r.Context()))
	if len(fields) > 0 {
		problem.WithExtension("fields", fields)
	}
	render.Render(w, r, problem)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "json":
		return fmt.Sprintf("%s must contain a JSON document", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
