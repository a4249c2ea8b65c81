package opstore

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "opstore-*.db")
	require.NoError(t, err)
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := NewSQLiteStore(tmpFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndListSamples(t *testing.T) {
	store := newTestSQLiteStore(t)

	now := time.Now()
	require.NoError(t, store.SaveSample(&OperationalSample{
		Timestamp:     now,
		FPS:           59.9,
		ArtNetPackets: 100,
		ArtNetDropped: 2,
		ArbiterState:  1,
		GroupCount:    4,
	}))

	samples, err := store.ListSamples(ListOptions{})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.InDelta(t, 59.9, samples[0].FPS, 0.001)
	assert.Equal(t, int64(100), samples[0].ArtNetPackets)
	assert.Equal(t, 4, samples[0].GroupCount)
}

func TestSQLiteStore_ListSamplesOrderedMostRecentFirst(t *testing.T) {
	store := newTestSQLiteStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveSample(&OperationalSample{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			FPS:       float64(i),
		}))
	}

	samples, err := store.ListSamples(ListOptions{})
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 2.0, samples[0].FPS)
	assert.Equal(t, 0.0, samples[2].FPS)
}

func TestSQLiteStore_ListSamplesRespectsLimitAndSince(t *testing.T) {
	store := newTestSQLiteStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveSample(&OperationalSample{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			FPS:       float64(i),
		}))
	}

	samples, err := store.ListSamples(ListOptions{Since: base.Add(2 * time.Minute), Limit: 2})
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}
