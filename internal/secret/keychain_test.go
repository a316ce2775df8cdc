package secret

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeychainStore_Commands(t *testing.T) {
	var calls [][]string
	k := &KeychainStore{service: "bqgate-test", run: func(args ...string) ([]byte, error) {
		calls = append(calls, args)
		if args[0] == "find-generic-password" {
			return []byte("s3cret\n"), nil
		}
		return nil, nil
	}}

	require.NoError(t, k.Set("db:bq", []byte("s3cret")))
	v, err := k.Get("db:bq")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(v))
	require.NoError(t, k.Delete("db:bq"))

	require.Len(t, calls, 3)
	assert.Equal(t, []string{"add-generic-password", "-a", "db:bq", "-s", "bqgate-test", "-w", "s3cret", "-U"}, calls[0])
	assert.Equal(t, []string{"find-generic-password", "-a", "db:bq", "-s", "bqgate-test", "-w"}, calls[1])
	assert.Equal(t, "delete-generic-password", calls[2][0])
}

func TestKeychainStore_Errors(t *testing.T) {
	k := &KeychainStore{service: "bqgate-test", run: func(args ...string) ([]byte, error) {
		return nil, errors.New("security: not available")
	}}

	assert.ErrorContains(t, k.Set("a", []byte("b")), "not available")
	_, err := k.Get("a")
	assert.Error(t, err)
}
