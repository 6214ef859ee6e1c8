// Package config provides centralized configuration management for licensegate.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// The YAML file is taken from LICENSEGATE_CONFIG when set, otherwise from
// licensegate.yaml or configs/licensegate.yaml in the working directory.
//
// # Environment Variables
//
// All environment variables follow the pattern LICENSEGATE_<SECTION>_<FIELD>:
//
//	LICENSEGATE_SERVER_PORT=8787
//	LICENSEGATE_LICENSE_PRODUCT_ID=acme-desktop
//	LICENSEGATE_LICENSE_PUBLIC_KEY=<base64 ed25519 public key>
//	LICENSEGATE_GUARD_REQUIRE_NETWORK=true
//	LICENSEGATE_NETWORK_SERVERS=time.google.com,time.cloudflare.com
//	LICENSEGATE_STORAGE_BACKEND=keyring
//
// # Guard Policy
//
// The guard section carries the trusted clock tolerances:
//
//	guard:
//	  backward_tolerance: 60s
//	  bootstrap_divergence: 10m
//	  persist_interval: 10m
//	  resync_interval: 30m
//
// These are policy values. An attacker who stays within them is outside the
// threat model.
//
// # Paths
//
// Unless overridden, files live under os.UserConfigDir()/licensegate:
//
//	licensegate/
//	  ├── license.json   (signed license document)
//	  ├── state/         (file slot backend, when selected)
//	  └── logs/
package config
