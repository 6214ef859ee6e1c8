package config

import "time"

// Application constants
const (
	AppName    = "licensegate"
	AppVersion = "1.0.0"
	EnvPrefix  = "LICENSEGATE"

	// License System Constants
	LicenseFileName  = "license.json"
	SlotsDirName     = "state"
	DefaultProductID = "licensegate"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	DefaultServerPort   = 8787
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)

// Trusted clock policy defaults. These bound what a patient attacker can
// gain by moving the clock in small steps; they are not a stronger guarantee.
const (
	BackwardTolerance   = 60 * time.Second
	BootstrapDivergence = 10 * time.Minute
	PersistInterval     = 10 * time.Minute
	ResyncInterval      = 30 * time.Minute
	GraceMargin         = 2 * time.Minute
	ForwardMargin       = 5 * time.Second
	ResyncAdoptMargin   = 30 * time.Second
	TickInterval        = time.Minute

	NetworkTimeout   = 3 * time.Second
	TimeProtocolPort = 123
)

var (
	// DefaultTimeServers is the ordered list of public time servers.
	DefaultTimeServers = []string{
		"pool.ntp.org",
		"time.google.com",
		"time.cloudflare.com",
		"time.windows.com",
	}

	// DefaultSlotNamespaces are the three key-value namespaces holding
	// persisted time evidence. They read as ordinary settings groups.
	DefaultSlotNamespaces = []string{
		"com.licensegate.prefs",
		"com.licensegate.ui-state",
		"com.licensegate.cache-index",
	}
)
