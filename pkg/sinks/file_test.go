package sinks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent() *kube.EnhancedEvent {
	ev := &kube.EnhancedEvent{}
	ev.Message = "something happened"
	return ev
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	sink, err := NewFileSink(&FileConfig{Path: path})
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), newEvent()))
	sink.Close()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "something happened")
}

// TestFileSinkRotatesByNumberedBackup pins spec.md §6's file rotation
// scheme: the active file becomes path.1, not a timestamp-suffixed name.
func TestFileSinkRotatesByNumberedBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	sink, err := NewFileSink(&FileConfig{Path: path, MaxSize: 0})
	require.NoError(t, err)
	f := sink.(*File)
	f.cfg.MaxSize = 1 // force rotation on the next send since maxSize is in MB; override directly

	// Force the in-memory size counter past the (tiny) threshold directly,
	// bypassing the MB conversion, to exercise rotate() deterministically.
	f.size = 2 * 1024 * 1024

	require.NoError(t, sink.Send(context.Background(), newEvent()))
	sink.Close()

	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
}

func TestFileSinkTrimsBackupsBeyondMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")
	require.NoError(t, os.WriteFile(path+".1", []byte("old-1"), 0o644))
	require.NoError(t, os.WriteFile(path+".2", []byte("old-2"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("current"), 0o644))

	sink, err := NewFileSink(&FileConfig{Path: path, MaxBackups: 1})
	require.NoError(t, err)
	f := sink.(*File)
	f.size = 10 * 1024 * 1024
	f.cfg.MaxSize = 1

	require.NoError(t, sink.Send(context.Background(), newEvent()))
	sink.Close()

	assert.FileExists(t, path+".1")
	assert.NoFileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}
