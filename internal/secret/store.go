package secret

import "fmt"

// SecretStore provides a pluggable interface for storing sensitive data
// such as backend passwords. EnvStore reads process environment variables;
// KeychainStore uses the macOS Keychain.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// New returns the store for provider: "keychain" or "env" (the default).
func New(provider string) (SecretStore, error) {
	switch provider {
	case "", "env":
		return NewEnvStore(), nil
	case "keychain":
		return NewKeychainStore(), nil
	default:
		return nil, fmt.Errorf("unknown secret provider %q", provider)
	}
}
