package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func saveString(t *testing.T, store *FSStore, key, content string) {
	t.Helper()
	err := store.Save(context.Background(), key, strings.NewReader(content), int64(len(content)), "application/octet-stream")
	require.NoError(t, err)
}

func TestFSStoreSaveOpenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	saveString(t, store, "uploads/abc.jpg", "image-bytes")

	rc, err := store.Open(context.Background(), "uploads/abc.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestFSStoreSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	saveString(t, store, "outputs/abc.mp3", "first")
	saveString(t, store, "outputs/abc.mp3", "second")

	rc, err := store.Open(context.Background(), "outputs/abc.mp3")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFSStoreOpenMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open(context.Background(), "uploads/nope.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSStoreRemoveIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	saveString(t, store, "uploads/abc.png", "bytes")

	require.NoError(t, store.Remove(context.Background(), "uploads/abc.png"))
	require.NoError(t, store.Remove(context.Background(), "uploads/abc.png"))

	_, err := store.Open(context.Background(), "uploads/abc.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSStoreRemoveAll(t *testing.T) {
	store := newTestStore(t)
	saveString(t, store, "outputs/abc.mp3", "audio")
	saveString(t, store, "outputs/voxaccess_abc.txt", "text")

	keys := append(DerivedKeys("abc"), "uploads/abc.png")
	require.NoError(t, store.RemoveAll(context.Background(), keys))

	_, err := store.Open(context.Background(), "outputs/abc.mp3")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = store.Open(context.Background(), "outputs/voxaccess_abc.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSStoreRejectsTraversalKeys(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"../escape", "/etc/passwd", "."} {
		err := store.Save(context.Background(), key, strings.NewReader("x"), 1, "text/plain")
		assert.Error(t, err, "key %q", key)
	}
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "uploads/id1.jpg", UploadKey("id1", "photo.jpg"))
	assert.Equal(t, "uploads/id2.bin", UploadKey("id2", "noext"))
	assert.Equal(t, "outputs/id1.mp3", AudioKey("id1"))
	assert.Equal(t, "outputs/voxaccess_id1.txt", ExportKey("id1", "txt"))
	assert.Equal(t, "outputs/voxaccess_id1.srt", ExportKey("id1", "srt"))

	assert.ElementsMatch(t, []string{
		"outputs/id1.mp3",
		"outputs/voxaccess_id1.txt",
		"outputs/voxaccess_id1.srt",
	}, DerivedKeys("id1"))
}
