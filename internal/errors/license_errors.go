package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// License and trusted clock failures. Callers match with errors.Is.
var (
	ErrNetworkUnavailable  = errors.New("network time unavailable")
	ErrClockDivergence     = errors.New("system clock diverges from network time")
	ErrMalformedLicense    = errors.New("malformed license")
	ErrProductMismatch     = errors.New("license product mismatch")
	ErrSignatureInvalid    = errors.New("license signature invalid")
	ErrDeviceMismatch      = errors.New("license bound to a different device")
	ErrExpiryFormatInvalid = errors.New("license expiry date invalid")
	ErrLicenseExpired      = errors.New("license expired")
	ErrClockTampered       = errors.New("clock tampering detected")
	ErrStorageUnavailable  = errors.New("time evidence storage unavailable")
	ErrLicenseNotFound     = errors.New("license not found")
	ErrLicenseUnreadable   = errors.New("license file unreadable")
)

// Kind is the stable machine-readable name of a license failure.
type Kind string

const (
	KindNetworkUnavailable  Kind = "NETWORK_UNAVAILABLE"
	KindClockDivergence     Kind = "CLOCK_DIVERGENCE"
	KindMalformedLicense    Kind = "MALFORMED_LICENSE"
	KindProductMismatch     Kind = "PRODUCT_MISMATCH"
	KindSignatureInvalid    Kind = "SIGNATURE_INVALID"
	KindDeviceMismatch      Kind = "DEVICE_MISMATCH"
	KindExpiryFormatInvalid Kind = "EXPIRY_FORMAT_INVALID"
	KindLicenseExpired      Kind = "LICENSE_EXPIRED"
	KindClockTampered       Kind = "CLOCK_TAMPERED"
	KindStorageUnavailable  Kind = "STORAGE_UNAVAILABLE"
	KindLicenseNotFound     Kind = "LICENSE_NOT_FOUND"
	KindLicenseUnreadable   Kind = "LICENSE_UNREADABLE"
	KindInternal            Kind = "INTERNAL_ERROR"
)

type catalogEntry struct {
	err    error
	kind   Kind
	status int
	slug   string
	title  string
	detail string
	soft   bool
}

// catalog is ordered: the first entry matching an error wins.
var catalog = []catalogEntry{
	{ErrClockTampered, KindClockTampered, http.StatusForbidden, "clock-tampered",
		"Clock Tampering Detected",
		"Manipulation of the system clock or of stored time evidence was detected. Restart is required.", false},
	{ErrLicenseNotFound, KindLicenseNotFound, http.StatusNotFound, "license-not-found",
		"License Not Found",
		"No license file found in the system. Please install a license.", false},
	{ErrLicenseUnreadable, KindLicenseUnreadable, http.StatusInternalServerError, "license-unreadable",
		"License Unreadable",
		"The license file exists but could not be read. Check its permissions.", false},
	{ErrMalformedLicense, KindMalformedLicense, http.StatusUnprocessableEntity, "malformed-license",
		"Malformed License",
		"The license file is not a well-formed license document.", false},
	{ErrProductMismatch, KindProductMismatch, http.StatusForbidden, "product-mismatch",
		"License Product Mismatch",
		"The license was issued for a different product.", false},
	{ErrSignatureInvalid, KindSignatureInvalid, http.StatusForbidden, "signature-invalid",
		"License Signature Invalid",
		"The license signature does not verify against the issuer key.", false},
	{ErrDeviceMismatch, KindDeviceMismatch, http.StatusForbidden, "device-mismatch",
		"License Device Mismatch",
		"This license is registered to a different machine.", false},
	{ErrExpiryFormatInvalid, KindExpiryFormatInvalid, http.StatusUnprocessableEntity, "expiry-format-invalid",
		"License Expiry Invalid",
		"The license expiry is not a YYYY-MM-DD calendar date.", false},
	{ErrLicenseExpired, KindLicenseExpired, http.StatusForbidden, "license-expired",
		"License Expired",
		"Your license has expired. Please renew to continue.", false},
	{ErrClockDivergence, KindClockDivergence, http.StatusConflict, "clock-divergence",
		"Clock Divergence",
		"The system clock differs from network time beyond tolerance. Correct the system clock and restart.", false},
	{ErrNetworkUnavailable, KindNetworkUnavailable, http.StatusServiceUnavailable, "network-unavailable",
		"Network Time Unavailable",
		"No time server could be reached.", true},
	{ErrStorageUnavailable, KindStorageUnavailable, http.StatusServiceUnavailable, "storage-unavailable",
		"Storage Unavailable",
		"Persistent time evidence could not be read or written.", true},
}

func lookup(err error) (catalogEntry, bool) {
	for _, entry := range catalog {
		if errors.Is(err, entry.err) {
			return entry, true
		}
	}
	return catalogEntry{}, false
}

// LicenseError is the single typed error surfaced to the host.
type LicenseError struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

// Error implements the error interface
func (e *LicenseError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap exposes the sentinel (and any cause) to errors.Is.
func (e *LicenseError) Unwrap() error { return e.Err }

// NewLicenseError builds a LicenseError for sentinel with a human detail.
func NewLicenseError(op string, sentinel error, detail string) *LicenseError {
	return &LicenseError{Kind: KindOf(sentinel), Op: op, Detail: detail, Err: sentinel}
}

// Wrap attaches cause to sentinel so both match errors.Is.
func Wrap(op string, sentinel, cause error) *LicenseError {
	if cause == nil {
		return NewLicenseError(op, sentinel, "")
	}
	return &LicenseError{
		Kind: KindOf(sentinel),
		Op:   op,
		Err:  fmt.Errorf("%w: %w", sentinel, cause),
	}
}

// KindOf classifies err; unknown errors are KindInternal.
func KindOf(err error) Kind {
	var le *LicenseError
	if errors.As(err, &le) && le.Kind != "" {
		return le.Kind
	}
	if entry, ok := lookup(err); ok {
		return entry.kind
	}
	return KindInternal
}

// IsSoft reports whether err only degrades accuracy or redundancy.
func IsSoft(err error) bool {
	entry, ok := lookup(err)
	return ok && entry.soft
}

// IsFatal reports whether the host must stop operating on err.
func IsFatal(err error) bool {
	return err != nil && !IsSoft(err)
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the top-level object
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5+len(pd.Extensions))
	for k, v := range pd.Extensions {
		data[k] = v
	}

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// MapLicenseError maps license and clock errors to HTTP problem details
func MapLicenseError(err error, traceID string) *ProblemDetails {
	instance := fmt.Sprintf("/api/v1/license#trace-%s", traceID)

	entry, ok := lookup(err)
	if !ok {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", string(KindInternal))
	}

	problem := NewProblemDetails(
		entry.status,
		"/errors/license/"+entry.slug,
		entry.title,
		entry.detail,
		instance,
	).WithExtension("trace_id", traceID).
		WithExtension("error_code", string(entry.kind))

	var le *LicenseError
	if errors.As(err, &le) && le.Detail != "" {
		problem.WithExtension("reason", le.Detail)
	}
	if entry.soft {
		problem.WithExtension("retryable", true)
	}
	return problem
}
