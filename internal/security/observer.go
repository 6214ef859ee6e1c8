package security

import (
	"bufio"
	"bytes"
	"os"
	"strconv"
	"strings"
)

// Observer reports whether the process is being debugged or traced.
type Observer interface {
	IsBeingObserved() bool
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func() bool

// IsBeingObserved implements Observer
func (f ObserverFunc) IsBeingObserved() bool { return f() }

// NoopObserver never reports observation.
type NoopObserver struct{}

// IsBeingObserved implements Observer
func (NoopObserver) IsBeingObserved() bool { return false }

// debuggerEnvVars are listen addresses exported by Delve launchers.
var debuggerEnvVars = []string{
	"DELVE_PORT",
	"DLV_LISTEN",
}

// ProcessObserver inspects the tracer of the current process and the
// environment for debugger markers.
type ProcessObserver struct {
	statusPath string
	getenv     func(string) string
}

// NewProcessObserver returns an observer for the running process.
func NewProcessObserver() *ProcessObserver {
	return &ProcessObserver{
		statusPath: "/proc/self/status",
		getenv:     os.Getenv,
	}
}

// IsBeingObserved implements Observer
func (o *ProcessObserver) IsBeingObserved() bool {
	for _, name := range debuggerEnvVars {
		if strings.TrimSpace(o.getenv(name)) != "" {
			return true
		}
	}
	return o.tracerAttached()
}

// tracerAttached reads TracerPid from procfs. Platforms without procfs
// report false.
func (o *ProcessObserver) tracerAttached() bool {
	data, err := os.ReadFile(o.statusPath)
	if err != nil {
		return false
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "TracerPid:")))
		return err == nil && pid != 0
	}
	return false
}
