package secret

import (
	"os"
	"strings"
	"sync"
)

// EnvPrefix is prepended to the normalised key to form the variable name:
// "db:warehouse" is read from BQGATE_SECRET_DB_WAREHOUSE.
const EnvPrefix = "BQGATE_SECRET_"

// EnvStore implements SecretStore over environment variables. Set and Delete
// only affect an in-process overlay; the environment itself is never written.
type EnvStore struct {
	mu      sync.RWMutex
	overlay map[string][]byte
	lookup  func(string) (string, bool)
}

// NewEnvStore creates an EnvStore reading the process environment.
func NewEnvStore() *EnvStore {
	return &EnvStore{overlay: make(map[string][]byte), lookup: os.LookupEnv}
}

// EnvName returns the variable consulted for key.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (s *EnvStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay[key] = append([]byte(nil), value...)
	return nil
}

// Get returns the overlay value when set, else the environment value.
// Returns nil and no error if neither exists.
func (s *EnvStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.overlay[key]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}
	if env, ok := s.lookup(EnvName(key)); ok {
		return []byte(env), nil
	}
	return nil, nil
}

func (s *EnvStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overlay, key)
	return nil
}
