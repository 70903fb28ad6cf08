package imagelock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	settings := &conf.Settings{}
	settings.Locks.TTL = 10 * time.Minute
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	ds := datastore.New(settings)
	require.NoError(t, ds.Open())
	t.Cleanup(func() {
		assert.NoError(t, ds.Close())
	})
	return NewManager(settings, ds)
}

func TestManager_AcquireAndHolder(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	acquired, err := m.Acquire("img.jpg", "session-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	holder, err := m.Holder("img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "session-1", holder)

	// A second session cannot take the image
	acquired, err = m.Acquire("img.jpg", "session-2")
	require.NoError(t, err)
	assert.False(t, acquired)

	// The owner re-acquires freely, which is the heartbeat
	acquired, err = m.Acquire("img.jpg", "session-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestManager_ReleaseAll(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	for _, f := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		acquired, err := m.Acquire(f, "session-1")
		require.NoError(t, err)
		require.True(t, acquired)
	}
	acquired, err := m.Acquire("d.jpg", "session-2")
	require.NoError(t, err)
	require.True(t, acquired)

	count, err := m.ReleaseAll("session-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	locked, err := m.Locked()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"d.jpg": "session-2"}, locked)
}

func TestManager_ReleaseIsOwnerScoped(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	acquired, err := m.Acquire("img.jpg", "session-1")
	require.NoError(t, err)
	require.True(t, acquired)

	released, err := m.Release("img.jpg", "session-2")
	require.NoError(t, err)
	assert.False(t, released, "non-owner release is a no-op")

	released, err = m.Release("img.jpg", "session-1")
	require.NoError(t, err)
	assert.True(t, released)

	holder, err := m.Holder("img.jpg")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestNewHolderID(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, NewHolderID())
	assert.NotEqual(t, NewHolderID(), NewHolderID())
}
