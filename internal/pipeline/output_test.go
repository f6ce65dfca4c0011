package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/logging"
)

// fakeRemote records archive uploads and deletes.
type fakeRemote struct {
	mu       sync.Mutex
	uploaded map[string]string // object key -> source path
	deleted  []string
	err      error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{uploaded: make(map[string]string)}
}

func (r *fakeRemote) Upload(_ context.Context, objectKey, filePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.uploaded[objectKey] = filePath
	return nil
}

func (r *fakeRemote) Delete(_ context.Context, objectKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, objectKey)
	return nil
}

func newOutputDir(t *testing.T) (string, *OutputManager) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "outputs")
	m, err := NewOutputManager(dir, logging.NewNop())
	require.NoError(t, err)
	return dir, m
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	artifact := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(artifact, []byte("encoded"), 0644))
	return artifact
}

func TestOutputManagerPlace(t *testing.T) {
	dir, m := newOutputDir(t)
	artifact := writeArtifact(t)

	placed, err := m.Place(context.Background(), "proj-42", artifact)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(placed))
	assert.Contains(t, filepath.Base(placed), "proj-42")
	assert.True(t, strings.HasSuffix(placed, ".mp4"))

	data, err := os.ReadFile(placed)
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no partial file may remain")
}

func TestOutputManagerPlace_ConcurrentPlacementsDoNotCollide(t *testing.T) {
	_, m := newOutputDir(t)
	artifact := writeArtifact(t)

	first, err := m.Place(context.Background(), "proj-42", artifact)
	require.NoError(t, err)
	second, err := m.Place(context.Background(), "proj-42", artifact)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestOutputManagerPlace_MissingArtifact(t *testing.T) {
	dir, m := newOutputDir(t)

	_, err := m.Place(context.Background(), "proj-42", filepath.Join(t.TempDir(), "nope.mp4"))
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOutputManagerPlace_ArchivesWhenConfigured(t *testing.T) {
	_, m := newOutputDir(t)
	remote := newFakeRemote()
	m.SetArchive(remote)

	placed, err := m.Place(context.Background(), "proj-42", writeArtifact(t))
	require.NoError(t, err)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	require.Len(t, remote.uploaded, 1)
	assert.Equal(t, placed, remote.uploaded["outputs/"+filepath.Base(placed)])
}

func TestOutputManagerPlace_ArchiveFailureIsNotFatal(t *testing.T) {
	_, m := newOutputDir(t)
	remote := newFakeRemote()
	remote.err = errors.New("bucket unreachable")
	m.SetArchive(remote)

	placed, err := m.Place(context.Background(), "proj-42", writeArtifact(t))
	require.NoError(t, err)

	// The local artifact is authoritative and must survive.
	_, statErr := os.Stat(placed)
	assert.NoError(t, statErr)
}

func TestOutputManagerRemove(t *testing.T) {
	dir, m := newOutputDir(t)
	ctx := context.Background()

	t.Run("empty path is a no-op", func(t *testing.T) {
		assert.NoError(t, m.Remove(ctx, ""))
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		assert.NoError(t, m.Remove(ctx, filepath.Join(dir, "gone.mp4")))
	})

	t.Run("existing file is deleted", func(t *testing.T) {
		path := filepath.Join(dir, "project_x.mp4")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, m.Remove(ctx, path))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestOutputManagerRemove_DropsArchivedCopy(t *testing.T) {
	_, m := newOutputDir(t)
	remote := newFakeRemote()
	m.SetArchive(remote)

	placed, err := m.Place(context.Background(), "proj-42", writeArtifact(t))
	require.NoError(t, err)
	require.NoError(t, m.Remove(context.Background(), placed))

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, []string{"outputs/" + filepath.Base(placed)}, remote.deleted)
}
