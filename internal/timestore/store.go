package timestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	apperrors "licensegate/internal/errors"
)

// SlotCount is the number of redundant evidence slots.
const SlotCount = 3

// subSeedSuffixes key each slot's token differently.
var subSeedSuffixes = [SlotCount]string{"|a", "|b", "|c"}

// SlotError records a failed per-slot operation.
type SlotError struct {
	Slot int
	Err  error
}

// StorageResult reports the outcome of a best-effort Write.
type StorageResult struct {
	Written int
	Failed  []SlotError
}

// OK reports whether at least one slot was written.
func (r StorageResult) OK() bool { return r.Written > 0 }

// Degraded reports whether some but not all slots were written.
func (r StorageResult) Degraded() bool { return r.Written > 0 && len(r.Failed) > 0 }

// Err returns ErrStorageUnavailable when no slot could be written.
func (r StorageResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("slot %d: %w", f.Slot, f.Err))
	}
	return apperrors.Wrap("timestore.write", apperrors.ErrStorageUnavailable, errors.Join(errs...))
}

// Digest fingerprints the raw persisted state.
type Digest struct {
	Sum        [sha256.Size]byte
	Missing    int
	Unreadable int
}

// Hex returns the digest sum in hex
func (d Digest) Hex() string { return hex.EncodeToString(d.Sum[:]) }

// Available reports whether at least one slot could be consulted.
func (d Digest) Available() bool { return d.Unreadable < SlotCount }

// SlotReading is the decoded state of one slot, for diagnostics.
type SlotReading struct {
	Slot      int    `json:"slot"`
	Namespace string `json:"namespace"`
	Present   bool   `json:"present"`
	Valid     bool   `json:"valid"`
	Epoch     int64  `json:"epoch,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Store persists trusted epochs redundantly across three namespaces of a
// KeyValueStore.
type Store struct {
	kv         KeyValueStore
	namespaces [SlotCount]string
	logger     *slog.Logger
}

// NewStore creates a Store over kv using exactly three namespaces
func NewStore(kv KeyValueStore, namespaces []string, logger *slog.Logger) (*Store, error) {
	if kv == nil {
		return nil, errors.New("timestore: nil key-value store")
	}
	if len(namespaces) != SlotCount {
		return nil, fmt.Errorf("timestore: need %d namespaces, got %d", SlotCount, len(namespaces))
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{kv: kv, logger: logger.With(slog.String("component", "timestore"))}
	copy(s.namespaces[:], namespaces)
	return s, nil
}

// Backend returns the name of the underlying KeyValueStore
func (s *Store) Backend() string { return s.kv.Name() }

// SlotKey names slot idx for seed. Keys look like ordinary opaque settings ids.
func SlotKey(seed string, idx int) string {
	sum := sha256.Sum256([]byte(seed + "|slot|" + strconv.Itoa(idx)))
	return hex.EncodeToString(sum[:12])
}

// Write stores epoch in every slot, each token keyed by its own sub-seed.
func (s *Store) Write(epoch int64, seed string) StorageResult {
	var result StorageResult
	for i := 0; i < SlotCount; i++ {
		token := Pack(epoch, seed+subSeedSuffixes[i])
		if err := s.kv.Write(s.namespaces[i], SlotKey(seed, i), token); err != nil {
			result.Failed = append(result.Failed, SlotError{Slot: i, Err: err})
			s.logger.Warn("Slot write failed",
				slog.Int("slot", i),
				slog.String("error", err.Error()))
			continue
		}
		result.Written++
	}
	return result
}

// ReadBest returns the largest valid epoch at or above floor found in any
// slot. Tokens are tried against every sub-seed, so a token moved between
// slots still decodes.
func (s *Store) ReadBest(floor int64, seed string) (int64, bool) {
	var best int64
	found := false
	for i := 0; i < SlotCount; i++ {
		raw, err := s.kv.Read(s.namespaces[i], SlotKey(seed, i))
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.logger.Debug("Slot read failed", slog.Int("slot", i), slog.String("error", err.Error()))
			}
			continue
		}
		if epoch, ok := decodeAny(raw, seed); ok && epoch >= floor {
			if !found || epoch > best {
				best = epoch
				found = true
			}
		}
	}
	return best, found
}

// StateDigest hashes the concatenated raw slot values, with unreadable or
// missing slots contributing an empty string.
func (s *Store) StateDigest(seed string) Digest {
	var d Digest
	h := sha256.New()
	for i := 0; i < SlotCount; i++ {
		raw, err := s.kv.Read(s.namespaces[i], SlotKey(seed, i))
		switch {
		case errors.Is(err, ErrNotFound):
			d.Missing++
			raw = ""
		case err != nil:
			d.Unreadable++
			raw = ""
		}
		h.Write([]byte(raw))
	}
	copy(d.Sum[:], h.Sum(nil))
	return d
}

// Inspect decodes every slot for diagnostics.
func (s *Store) Inspect(seed string) []SlotReading {
	out := make([]SlotReading, 0, SlotCount)
	for i := 0; i < SlotCount; i++ {
		r := SlotReading{Slot: i, Namespace: s.namespaces[i]}
		raw, err := s.kv.Read(s.namespaces[i], SlotKey(seed, i))
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			r.Error = err.Error()
		default:
			r.Present = true
			r.Epoch, r.Valid = decodeAny(raw, seed)
		}
		out = append(out, r)
	}
	return out
}

func decodeAny(raw, seed string) (int64, bool) {
	for _, suffix := range subSeedSuffixes {
		if epoch, ok := Unpack(raw, seed+suffix); ok {
			return epoch, true
		}
	}
	return 0, false
}
