package device

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	if !DefaultConfig().IsValid() {
		t.Errorf("Expected Default Config to be correct")
	}
}

func TestConfigIsValid(t *testing.T) {
	bad := []Config{
		{ID: -1, MaxThreads: 1024, MaxSharedMemory: 48 << 10, QueueDepth: 1},
		{MaxThreads: 1000, MaxSharedMemory: 48 << 10, QueueDepth: 1},
		{MaxThreads: 1024, MaxSharedMemory: 1024, QueueDepth: 1},
		{MaxThreads: 1024, MaxSharedMemory: 48 << 10},
	}
	for i, c := range bad {
		assert.False(t, c.IsValid(), "case %d: %+v", i, c)
	}
	_, err := New(bad[0])
	assert.Error(t, err)
}

func TestStreamOrder(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	defer d.Close()

	var seen []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, d.Enqueue("append", func() error {
			seen = append(seen, i)
			return nil
		}))
	}
	require.NoError(t, d.Synchronize())
	require.Len(t, seen, 100)
	for i, v := range seen {
		if v != i {
			t.Fatalf("Launch %d ran out of order (got %d)", i, v)
		}
	}
}

func TestStickyError(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	defer d.Close()

	boom := errors.New("boom")
	var ranAfter bool
	require.NoError(t, d.Enqueue("fail", func() error { return boom }))
	d.Enqueue("after", func() error { ranAfter = true; return nil })

	err = d.Synchronize()
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.False(t, ranAfter, "work queued after a failure must be skipped")

	assert.Error(t, d.Enqueue("later", func() error { return nil }))
	assert.Error(t, d.Synchronize(), "error should be sticky")
}

func TestPanicBecomesError(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Enqueue("oob", func() error {
		var a []float32
		_ = a[3]
		return nil
	}))
	assert.Error(t, d.Synchronize())
}

func TestClose(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, ErrClosed, d.Enqueue("x", func() error { return nil }))
	assert.Equal(t, ErrClosed, d.Synchronize())
}
