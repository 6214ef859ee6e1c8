package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/pkg/contracts/domain"
)

func TestLogNotifier(t *testing.T) {
	tests := []struct {
		name      string
		fatal     bool
		wantLevel string
	}{
		{name: "fatal event logs error", fatal: true, wantLevel: "ERROR"},
		{name: "degraded event logs warning", fatal: false, wantLevel: "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
			n.Notify(context.Background(), domain.GuardEvent{
				Type:      domain.GuardEventTamper,
				Code:      "CLOCK_TAMPERED",
				Reason:    "system clock moved backward",
				Fatal:     tt.fatal,
				Timestamp: time.Now(),
			})

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "notifier", entry["component"])
			assert.Equal(t, "CLOCK_TAMPERED", entry["code"])
			assert.Equal(t, "tamper", entry["event_type"])
		})
	}
}

func TestMultiNotifier(t *testing.T) {
	var got []string
	record := func(name string) Notifier {
		return Func(func(_ context.Context, e domain.GuardEvent) {
			got = append(got, name+":"+e.Code)
		})
	}

	m := NewMultiNotifier(record("a"), nil)
	m.Add(record("b"))
	m.Add(nil)
	m.Notify(context.Background(), domain.GuardEvent{Code: "X"})

	assert.Equal(t, []string{"a:X", "b:X"}, got)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop{}.Notify(context.Background(), domain.GuardEvent{})
	})
}
