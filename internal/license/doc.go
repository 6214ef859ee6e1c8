// Package license verifies signed, device-bound license documents.
//
// # Document
//
// A license is a JSON object:
//
//	{
//	  "product":    "acme-desktop",
//	  "license_id": "L-2026-0042",
//	  "customer":   "Example Ltd",
//	  "device":     "<device fingerprint>",
//	  "exp":        "2027-01-31",
//	  "features":   ["export", "reports"],
//	  "sig":        "<base64 Ed25519 signature>"
//	}
//
// The signature covers the canonical form of every other field: keys sorted,
// no insignificant whitespace, non-ASCII escaped as \uXXXX. Changing any
// field, reordering keys aside, invalidates it.
//
// # Validation
//
// Validator.Validate rejects a document for the first failing check in this
// order:
//
//	1. MalformedLicense     sig missing, not a string or not base64
//	2. ProductMismatch      issued for another product
//	3. SignatureInvalid     signature does not verify
//	4. DeviceMismatch       bound to another fingerprint
//	5. ExpiryFormatInvalid  exp is not YYYY-MM-DD
//	6. ClockTampered        the trusted clock detected manipulation
//	7. LicenseExpired       the trusted UTC date is past exp
//
// A license is valid through the whole of its exp day.
//
// # Manager
//
// Manager.EnsureValid is the host entry point: it bootstraps the trusted
// clock, loads the license file and validates it. Failures are returned as
// a single *errors.LicenseError and fatal ones are pushed to the notifier.
//
// The issuer side (GenerateKeyPair, Sign) lives here too and is used by the
// licensectl tool.
package license
