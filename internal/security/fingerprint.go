package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
)

// Sentinels substituted for identifiers that cannot be read. A degraded
// fingerprint is still a fingerprint; it simply will not match a license
// issued for the healthy one.
const (
	UnknownMachine = "unknown-machine"
	UnknownVolume  = "unknown-volume"
)

// appID keys the protected machine id so the raw OS value never leaves the
// process.
const appID = "licensegate"

// DeviceFingerprint represents device identification information
type DeviceFingerprint struct {
	Fingerprint string    `json:"fingerprint"`
	MachineID   string    `json:"machine_id"`
	VolumeID    string    `json:"volume_id"`
	OS          string    `json:"os"`
	Degraded    bool      `json:"degraded"`
	GeneratedAt time.Time `json:"generated_at"`
}

// IDSource reads one platform identifier.
type IDSource func() (string, error)

// FingerprintManager computes the device fingerprint once per process.
type FingerprintManager struct {
	machineID IDSource
	volumeID  IDSource
	logger    *slog.Logger

	once   sync.Once
	cached DeviceFingerprint
}

// FingerprintOption configures a FingerprintManager
type FingerprintOption func(*FingerprintManager)

// WithMachineIDSource replaces the OS machine id reader
func WithMachineIDSource(src IDSource) FingerprintOption {
	return func(fm *FingerprintManager) { fm.machineID = src }
}

// WithVolumeIDSource replaces the storage volume id reader
func WithVolumeIDSource(src IDSource) FingerprintOption {
	return func(fm *FingerprintManager) { fm.volumeID = src }
}

// WithFingerprintLogger sets the logger
func WithFingerprintLogger(logger *slog.Logger) FingerprintOption {
	return func(fm *FingerprintManager) { fm.logger = logger }
}

// NewFingerprintManager creates a fingerprint manager reading the OS
// machine id and the id of the system volume.
func NewFingerprintManager(opts ...FingerprintOption) *FingerprintManager {
	fm := &FingerprintManager{
		machineID: readMachineID,
		volumeID:  readVolumeID,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(fm)
	}
	return fm
}

// Fingerprint returns the SHA-256 hex device fingerprint.
func (fm *FingerprintManager) Fingerprint() string {
	return fm.Details().Fingerprint
}

// Details returns the fingerprint together with the components it was
// derived from.
func (fm *FingerprintManager) Details() DeviceFingerprint {
	fm.once.Do(fm.generate)
	return fm.cached
}

func (fm *FingerprintManager) generate() {
	start := time.Now()
	degraded := false

	machine, err := fm.machineID()
	if err != nil || strings.TrimSpace(machine) == "" {
		machine = UnknownMachine
		degraded = true
		fm.logger.Warn("Failed to read machine id, using fallback",
			slog.Any("error", err))
	}

	volume, err := fm.volumeID()
	if err != nil || strings.TrimSpace(volume) == "" {
		volume = UnknownVolume
		degraded = true
		fm.logger.Warn("Failed to read volume id, using fallback",
			slog.Any("error", err))
	}

	fm.cached = DeviceFingerprint{
		Fingerprint: ComputeFingerprint(machine, volume),
		MachineID:   machine,
		VolumeID:    volume,
		OS:          runtime.GOOS,
		Degraded:    degraded,
		GeneratedAt: time.Now(),
	}

	fm.logger.Info("Device fingerprint generated",
		slog.String("fingerprint_prefix", fm.cached.Fingerprint[:12]),
		slog.Bool("degraded", degraded),
		slog.Duration("generation_time", time.Since(start)))
}

// ComputeFingerprint hashes the identifier pair into the fingerprint form.
func ComputeFingerprint(machine, volume string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(machine) + "|" + strings.TrimSpace(volume)))
	return hex.EncodeToString(sum[:])
}

// MatchFingerprint compares two fingerprints in constant time.
func MatchFingerprint(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func readMachineID() (string, error) {
	return machineid.ProtectedID(appID)
}
