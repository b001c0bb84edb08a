package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFileWatcher_ReportsExternalWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, err := NewFileStorage(t.TempDir(), nil)
	require.NoError(t, err)

	var fired atomic.Int32
	w, err := NewFileWatcher(fs, "chatState", 30*time.Millisecond, func() { fired.Add(1) }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Another process rewriting the key
	other, err := NewFileStorage(fs.Dir(), nil)
	require.NoError(t, err)
	require.NoError(t, other.SetItem(ctx, "chatState", `{"value":{"messages":[]}}`))

	assert.Eventually(t, func() bool { return fired.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Greater(t, w.Events(), 0)

	w.Stop()
}

func TestFileWatcher_IgnoresOtherKeys(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, err := NewFileStorage(t.TempDir(), nil)
	require.NoError(t, err)

	var fired atomic.Int32
	w, err := NewFileWatcher(fs, "chatState", 20*time.Millisecond, func() { fired.Add(1) }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "unrelated.json"), []byte("{}"), 0644))
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, w.Events())

	w.Stop()
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, err := NewFileStorage(t.TempDir(), nil)
	require.NoError(t, err)
	w, err := NewFileWatcher(fs, "chatState", 0, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	assert.NotPanics(t, w.Stop)
}
