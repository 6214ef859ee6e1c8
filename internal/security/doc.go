// Package security provides the device identity used to bind licenses and
// to key the trusted clock's persisted evidence.
//
// The fingerprint is the SHA-256 of the protected OS machine id and the
// system volume id. Either component may be replaced by a fixed sentinel
// when it cannot be read, so Fingerprint never fails. DeriveSeed turns the
// fingerprint into the obfuscation seed via HKDF. Observer reports an
// attached debugger or tracer, which the trusted clock treats as tampering.
package security
