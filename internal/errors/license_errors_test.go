package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapLicenseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   Kind
		wantType   string
	}{
		{"expired", ErrLicenseExpired, http.StatusForbidden, KindLicenseExpired, "/errors/license/license-expired"},
		{"not found", ErrLicenseNotFound, http.StatusNotFound, KindLicenseNotFound, "/errors/license/license-not-found"},
		{"unreadable file", Wrap("load", ErrLicenseUnreadable, errors.New("permission denied")), http.StatusInternalServerError, KindLicenseUnreadable, "/errors/license/license-unreadable"},
		{"tampered", ErrClockTampered, http.StatusForbidden, KindClockTampered, "/errors/license/clock-tampered"},
		{"device", NewLicenseError("validate", ErrDeviceMismatch, "fingerprint differs"), http.StatusForbidden, KindDeviceMismatch, "/errors/license/device-mismatch"},
		{"wrapped network", fmt.Errorf("bootstrap: %w", ErrNetworkUnavailable), http.StatusServiceUnavailable, KindNetworkUnavailable, "/errors/license/network-unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, KindInternal, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := MapLicenseError(tt.err, "trace-1")
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, string(tt.wantCode), problem.Extensions["error_code"])
			assert.Equal(t, "trace-1", problem.Extensions["trace_id"])
		})
	}
}

func TestLicenseErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap("load", ErrStorageUnavailable, cause)

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStorageUnavailable, err.Kind)
	assert.Contains(t, err.Error(), "load: ")

	var le *LicenseError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &le)
	assert.Equal(t, "load", le.Op)
}

func TestSoftAndFatal(t *testing.T) {
	assert.True(t, IsSoft(ErrNetworkUnavailable))
	assert.True(t, IsSoft(NewLicenseError("fetch", ErrStorageUnavailable, "")))
	assert.False(t, IsSoft(ErrClockTampered))
	assert.True(t, IsFatal(ErrClockTampered))
	assert.True(t, IsFatal(ErrSignatureInvalid))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(ErrNetworkUnavailable))
}

func TestProblemDetailsMarshalJSON(t *testing.T) {
	problem := MapLicenseError(NewLicenseError("check", ErrClockTampered, "system clock moved backward"), "abc")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "Clock Tampering Detected", body["title"])
	assert.Equal(t, float64(http.StatusForbidden), body["status"])
	assert.Equal(t, "system clock moved backward", body["reason"])
	assert.Equal(t, "CLOCK_TAMPERED", body["error_code"])
}
