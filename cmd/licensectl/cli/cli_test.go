package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/internal/license"
)

const testDevice = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LICENSEGATE_CONFIG", "")

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func keygen(t *testing.T) (dir string, keys keygenOutput) {
	t.Helper()
	dir = t.TempDir()
	out, err := run(t, "keygen", "--out-dir", dir)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	return dir, keys
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)

	var keys keygenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	_, err = license.ParsePublicKey(keys.PublicKey)
	assert.NoError(t, err)
	_, err = license.ParsePrivateKey(keys.PrivateKey)
	assert.NoError(t, err)
}

func TestKeygenWritesFiles(t *testing.T) {
	dir, keys := keygen(t)

	info, err := os.Stat(keys.PrivateKeyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Empty(t, keys.PrivateKey)

	_, err = run(t, "keygen", "--out-dir", dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestSignAndVerify(t *testing.T) {
	_, keys := keygen(t)
	licenseFile := filepath.Join(t.TempDir(), "license.json")

	_, err := run(t, "sign",
		"--key", keys.PrivateKeyFile,
		"--product", "acme-desktop",
		"--id", "L-2026-0042",
		"--customer", "Example Ltd",
		"--device", testDevice,
		"--expiry", "2099-12-31",
		"--feature", "export",
		"--feature", "reports",
		"-o", licenseFile)
	require.NoError(t, err)

	tests := []struct {
		name      string
		args      []string
		wantErr   bool
		wantState string
		wantCode  string
	}{
		{
			name:      "valid for the bound device",
			args:      []string{"--device", testDevice},
			wantState: "valid",
		},
		{
			name:      "other device",
			args:      []string{"--device", "00" + testDevice[2:]},
			wantErr:   true,
			wantState: "invalid",
			wantCode:  "DEVICE_MISMATCH",
		},
		{
			name:      "other product",
			args:      []string{"--device", testDevice, "--product", "acme-server"},
			wantErr:   true,
			wantState: "invalid",
			wantCode:  "PRODUCT_MISMATCH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"verify", licenseFile, "--public-key", keys.PublicKeyFile, "--product", "acme-desktop"}, tt.args...)
			out, err := run(t, args...)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalid)
			} else {
				require.NoError(t, err)
			}

			var status map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(out), &status))
			assert.Equal(t, tt.wantState, status["state"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, status["error_code"])
			} else {
				assert.Equal(t, []interface{}{"export", "reports"}, status["features"])
			}
		})
	}
}

func TestSignRejectsInvalidClaims(t *testing.T) {
	_, keys := keygen(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing customer", args: []string{"--device", testDevice, "--expiry", "2027-01-31"}},
		{name: "device not hex", args: []string{"--customer", "x", "--device", "not-hex", "--expiry", "2027-01-31"}},
		{name: "bad expiry", args: []string{"--customer", "x", "--device", testDevice, "--expiry", "31/01/2027"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"sign", "--key", keys.PrivateKeyFile, "--product", "p", "--id", "L-1"}, tt.args...)
			_, err := run(t, args...)
			assert.ErrorContains(t, err, "invalid license claims")
		})
	}
}

func TestSignToStdout(t *testing.T) {
	_, keys := keygen(t)

	out, err := run(t, "sign", "--key", keys.PrivateKeyFile, "--product", "p", "--id", "L-1",
		"--customer", "c", "--device", testDevice, "--expiry", "2027-01-31")
	require.NoError(t, err)

	doc, err := license.ParseDocument([]byte(out))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.String(license.FieldSignature))
	assert.Equal(t, "2027-01-31", doc.String(license.FieldExpiry))
}

func TestVerifyRequiresPublicKey(t *testing.T) {
	t.Setenv("LICENSEGATE_LICENSE_PUBLIC_KEY", "")
	_, err := run(t, "verify", filepath.Join(t.TempDir(), "license.json"))
	assert.ErrorContains(t, err, "no issuer public key")
}

func TestFingerprint(t *testing.T) {
	out, err := run(t, "fingerprint")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}\n$`), out)

	out, err = run(t, "fingerprint", "--details")
	require.NoError(t, err)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &details))
	assert.Contains(t, details, "degraded")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "licensegate v")
	assert.Contains(t, out, "commit:")
}
