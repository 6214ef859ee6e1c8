// Package shared holds code used across licensegate packages that belongs
// to no single layer. Today that is only testutil: log capture and signed
// license fixtures for tests outside the license package.
package shared
