package timestore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps slots in the OS credential store (macOS Keychain,
// Windows Credential Manager, Secret Service on Linux). The namespace is the
// keyring service and the key is the account.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore
func NewKeyringStore() *KeyringStore { return &KeyringStore{} }

// Write implements KeyValueStore
func (k *KeyringStore) Write(namespace, key, value string) error {
	if err := keyring.Set(namespace, key, value); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Read implements KeyValueStore
func (k *KeyringStore) Read(namespace, key string) (string, error) {
	v, err := keyring.Get(namespace, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return v, nil
}

// Name implements KeyValueStore
func (k *KeyringStore) Name() string { return "system keychain" }
