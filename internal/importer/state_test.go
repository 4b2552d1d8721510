package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStateDBRoundTrip covers mark-then-check and the hash-change case.
func TestStateDBRoundTrip(t *testing.T) {
	state, err := OpenStateDB(t.TempDir())
	require.NoError(t, err)
	defer state.Close()

	hash := HashBytes([]byte(`{"a":1}`))

	done, err := state.IsProcessed("user-1/activities-x.json", hash)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, state.MarkProcessed("user-1/activities-x.json", hash))

	done, err = state.IsProcessed("user-1/activities-x.json", hash)
	require.NoError(t, err)
	assert.True(t, done)

	// Changed content means a re-import.
	done, err = state.IsProcessed("user-1/activities-x.json", HashBytes([]byte(`{"a":2}`)))
	require.NoError(t, err)
	assert.False(t, done)
}
