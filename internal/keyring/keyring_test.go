package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyRoundTrip(t *testing.T) {
	keyring.MockInit()

	assert.False(t, HasKey("store-1"))

	require.NoError(t, SaveKey("store-1", "secret"))
	assert.True(t, HasKey("store-1"))

	got, err := GetKey("store-1")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	require.NoError(t, DeleteKey("store-1"))
	assert.False(t, HasKey("store-1"))

	_, err = GetKey("store-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine
	assert.NoError(t, DeleteKey("store-1"))
}
