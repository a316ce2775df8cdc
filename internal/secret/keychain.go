package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultKeychainService is the Keychain service name entries are filed under.
const DefaultKeychainService = "bqgate"

// security(1) exits with 44 when no matching item exists.
const keychainNotFound = 44

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool.
type KeychainStore struct {
	service string
	run     func(args ...string) ([]byte, error)
}

// NewKeychainStore creates a KeychainStore filing entries under
// DefaultKeychainService.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: DefaultKeychainService, run: runSecurity}
}

func runSecurity(args ...string) ([]byte, error) {
	return exec.Command("security", args...).Output()
}

// Set stores a secret, replacing any existing entry for key.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("add-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", string(value),
		"-U", // update if exists
	)
	if err != nil {
		return fmt.Errorf("keychain set %s: %s", key, describe(err))
	}
	return nil
}

// Get retrieves a secret. Returns nil and no error if the key doesn't exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("find-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", // output only the password
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == keychainNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %s", key, describe(err))
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes a secret. A missing entry is not an error.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("delete-generic-password",
		"-a", key,
		"-s", k.service,
	)
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == keychainNotFound) {
		return fmt.Errorf("keychain delete %s: %s", key, describe(err))
	}
	return nil
}

func describe(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return strings.TrimSpace(string(exitErr.Stderr))
	}
	return err.Error()
}
