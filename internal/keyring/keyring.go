// Package keyring caches store keys in the OS keyring, keyed by store id.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "loginstore"

// ErrNotFound is returned when no key is cached for a store
var ErrNotFound = keyring.ErrNotFound

// SaveKey stores a key in the OS keyring
func SaveKey(storeID string, key string) error {
	return keyring.Set(serviceName, storeID, key)
}

// GetKey retrieves a key from the OS keyring
func GetKey(storeID string) (string, error) {
	return keyring.Get(serviceName, storeID)
}

// DeleteKey removes a key from the OS keyring. Deleting a missing key is not
// an error.
func DeleteKey(storeID string) error {
	err := keyring.Delete(serviceName, storeID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasKey checks if a key is stored in the keyring
func HasKey(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}
