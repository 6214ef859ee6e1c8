package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/license"
	"licensegate/internal/middleware"
	"licensegate/internal/shared/testutil"
	"licensegate/pkg/contracts/domain"
	"licensegate/pkg/contracts/events"
)

var testNow = time.Date(2026, 6, 15, 13, 45, 0, 0, time.UTC)

// MockLicenseService implements the LicenseService interface for testing
type MockLicenseService struct {
	mock.Mock
}

func (m *MockLicenseService) EnsureValid(ctx context.Context) (*license.Info, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*license.Info)
	return info, args.Error(1)
}

func (m *MockLicenseService) Status(ctx context.Context) domain.LicenseStatus {
	args := m.Called(ctx)
	return args.Get(0).(domain.LicenseStatus)
}

func (m *MockLicenseService) Check(ctx context.Context, data []byte) (*license.Info, error) {
	args := m.Called(ctx, data)
	info, _ := args.Get(0).(*license.Info)
	return info, args.Error(1)
}

func (m *MockLicenseService) Install(ctx context.Context, data []byte) (*license.Info, error) {
	args := m.Called(ctx, data)
	info, _ := args.Get(0).(*license.Info)
	return info, args.Error(1)
}

func (m *MockLicenseService) GetValidationState() (*license.ValidationResult, error) {
	args := m.Called()
	res, _ := args.Get(0).(*license.ValidationResult)
	return res, args.Error(1)
}

type fakeClock struct {
	status   domain.ClockStatus
	checkErr error
	checks   int
}

func (c *fakeClock) Now() time.Time             { return testNow }
func (c *fakeClock) Status() domain.ClockStatus { return c.status }
func (c *fakeClock) TamperError() error         { return nil }

func (c *fakeClock) CheckAndUpdate(context.Context) error {
	c.checks++
	return c.checkErr
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	types []string
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, msgType string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types = append(b.types, msgType)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// validInfo returns a real *license.Info for the fixture product and device
func validInfo(t *testing.T, features ...string) *license.Info {
	t.Helper()
	f := testutil.NewLicenseFixtures(t)
	return f.Info(t, f.Claims("2099-12-31", features...))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func documentRequest(path, document string) *http.Request {
	body, _ := json.Marshal(map[string]string{"document": document})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLicenseHandlerGetStatus(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Status", mock.Anything).Return(domain.LicenseStatus{
		State:     domain.LicenseStateExpired,
		ErrorCode: string(apperrors.KindLicenseExpired),
	})

	h := NewLicenseHandler(svc, &fakeClock{}, middleware.NewRequestValidator(discardLogger()), nil, discardLogger())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "expired", body["state"])
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "LICENSE_EXPIRED", body["error_code"])
	svc.AssertExpectations(t)
}

func TestLicenseHandlerVerify(t *testing.T) {
	info := validInfo(t, "export")

	tests := []struct {
		name       string
		document   string
		checkInfo  *license.Info
		checkErr   error
		wantStatus int
		wantField  string
		wantValue  interface{}
	}{
		{
			name:       "valid document",
			document:   `{"product":"acme-desktop"}`,
			checkInfo:  info,
			wantStatus: http.StatusOK,
			wantField:  "license_id",
			wantValue:  "L-2026-0042",
		},
		{
			name:       "signature invalid",
			document:   `{"product":"acme-desktop"}`,
			checkErr:   apperrors.NewLicenseError("license.validate", apperrors.ErrSignatureInvalid, ""),
			wantStatus: http.StatusForbidden,
			wantField:  "error_code",
			wantValue:  "SIGNATURE_INVALID",
		},
		{
			name:       "expiry format",
			document:   `{"product":"acme-desktop"}`,
			checkErr:   apperrors.NewLicenseError("license.validate", apperrors.ErrExpiryFormatInvalid, "bad"),
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "reason",
			wantValue:  "bad",
		},
		{
			name:       "document is not JSON",
			document:   "not json",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			if tt.checkInfo != nil || tt.checkErr != nil {
				svc.On("Check", mock.Anything, []byte(tt.document)).Return(tt.checkInfo, tt.checkErr)
			}

			h := NewLicenseHandler(svc, &fakeClock{}, middleware.NewRequestValidator(discardLogger()), nil, discardLogger())
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, documentRequest("/verify", tt.document))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantValue, decodeBody(t, rec)[tt.wantField])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLicenseHandlerInstall(t *testing.T) {
	info := validInfo(t)
	document := `{"product":"acme-desktop"}`

	svc := new(MockLicenseService)
	svc.On("Install", mock.Anything, []byte(document)).Return(info, nil)
	bc := &recordingBroadcaster{}

	h := NewLicenseHandler(svc, &fakeClock{}, middleware.NewRequestValidator(discardLogger()), bc, discardLogger())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, documentRequest("/install", document))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "valid", body["state"])
	assert.Equal(t, "2099-12-31", body["expiry"])
	assert.Equal(t, []string{events.TypeLicenseStatus}, bc.types)
}

func TestLicenseHandlerInstallFailure(t *testing.T) {
	document := `{"product":"other"}`

	svc := new(MockLicenseService)
	svc.On("Install", mock.Anything, []byte(document)).
		Return(nil, apperrors.NewLicenseError("license.validate", apperrors.ErrProductMismatch, `license is for "other"`))
	bc := &recordingBroadcaster{}

	h := NewLicenseHandler(svc, &fakeClock{}, middleware.NewRequestValidator(discardLogger()), bc, discardLogger())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, documentRequest("/install", document))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PRODUCT_MISMATCH", body["error_code"])
	assert.Equal(t, "/install", body["instance"])
	assert.Empty(t, bc.types)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		clock       domain.ClockState
		result      *license.ValidationResult
		wantStatus  int
		wantBody    string
		wantLicense interface{}
	}{
		{
			name:        "bootstrapped with valid license",
			clock:       domain.ClockStateBootstrapped,
			result:      &license.ValidationResult{CheckedAt: testNow},
			wantStatus:  http.StatusOK,
			wantBody:    "ok",
			wantLicense: "valid",
		},
		{
			name:       "not yet bootstrapped",
			clock:      domain.ClockStateUninitialized,
			wantStatus: http.StatusOK,
			wantBody:   "starting",
		},
		{
			name:        "tampered",
			clock:       domain.ClockStateTampered,
			result:      &license.ValidationResult{Err: apperrors.ErrClockTampered, CheckedAt: testNow},
			wantStatus:  http.StatusServiceUnavailable,
			wantBody:    "tampered",
			wantLicense: "tampered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			if tt.result != nil {
				if tt.result.Err == nil {
					tt.result.Info = validInfo(t)
				}
				svc.On("GetValidationState").Return(tt.result, nil)
			} else {
				svc.On("GetValidationState").Return(nil, apperrors.ErrLicenseNotFound)
			}

			h := NewHealthHandler(&fakeClock{status: domain.ClockStatus{State: tt.clock}}, svc, discardLogger())
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantBody, body["status"])
			assert.Equal(t, string(tt.clock), body["clock"])
			assert.Equal(t, tt.wantLicense, body["license"])
			assert.NotEmpty(t, body["version"])
		})
	}
}

func TestClockHandler(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantStatus int
		wantError  bool
		wantCode   string
	}{
		{
			name:       "check passes",
			wantStatus: http.StatusOK,
		},
		{
			name:       "network unavailable is reported but not fatal",
			checkErr:   apperrors.Wrap("netclock.query", apperrors.ErrNetworkUnavailable, nil),
			wantStatus: http.StatusOK,
			wantError:  true,
		},
		{
			name:       "tampering",
			checkErr:   apperrors.NewLicenseError("clock.check", apperrors.ErrClockTampered, "backward jump"),
			wantStatus: http.StatusForbidden,
			wantCode:   "CLOCK_TAMPERED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{
				status:   domain.ClockStatus{State: domain.ClockStateBootstrapped, SlotsWritten: 3},
				checkErr: tt.checkErr,
			}
			bc := &recordingBroadcaster{}
			h := NewClockHandler(clock, bc, discardLogger())

			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, 1, clock.checks)
			assert.Equal(t, []string{events.TypeClockStatus}, bc.types)

			body := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
				assert.NotNil(t, body["clock"])
				return
			}
			status := body["status"].(map[string]interface{})
			assert.Equal(t, "bootstrapped", status["state"])
			if tt.wantError {
				assert.NotEmpty(t, body["error"])
			} else {
				assert.Nil(t, body["error"])
			}
		})
	}
}

func TestClockHandlerGetStatus(t *testing.T) {
	clock := &fakeClock{status: domain.ClockStatus{State: domain.ClockStateBootstrapped, StorageBackend: "memory"}}
	h := NewClockHandler(clock, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "memory", decodeBody(t, rec)["storage_backend"])
	assert.Zero(t, clock.checks)
}

func TestFeaturesHandler(t *testing.T) {
	info := validInfo(t, "export", "reports")

	tests := []struct {
		name       string
		feature    string
		err        error
		wantStatus int
		wantOn     bool
	}{
		{name: "licensed feature", feature: "export", wantStatus: http.StatusOK, wantOn: true},
		{name: "unlicensed feature", feature: "sso", wantStatus: http.StatusOK},
		{name: "expired license", feature: "export", err: apperrors.ErrLicenseExpired, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			if tt.err != nil {
				svc.On("EnsureValid", mock.Anything).Return(nil, tt.err)
			} else {
				svc.On("EnsureValid", mock.Anything).Return(info, nil)
			}

			r := chi.NewRouter()
			r.Get("/api/v1/features/{name}", NewFeaturesHandler(svc, discardLogger()).GetFeature)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/features/"+tt.feature, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				var resp FeatureResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, FeatureResponse{Feature: tt.feature, Enabled: tt.wantOn}, resp)
			}
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	custom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("custom_metric 1\n"))
	})

	rec := httptest.NewRecorder()
	MetricsHandler(custom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "custom_metric 1\n", rec.Body.String())

	rec = httptest.NewRecorder()
	MetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
