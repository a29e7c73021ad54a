package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalVideoStorage_UploadAndDelete(t *testing.T) {
	root := t.TempDir()
	store := NewLocalVideoStorage(root, "/uploads")
	ctx := context.Background()

	url, err := store.Upload(ctx, "tests/abc/q1.webm", strings.NewReader("video-bytes"), 11, "video/webm")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/tests/abc/q1.webm", url)

	data, err := os.ReadFile(filepath.Join(root, "tests", "abc", "q1.webm"))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "tests/abc/q1.webm"))
	_, err = os.Stat(filepath.Join(root, "tests", "abc", "q1.webm"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, store.Delete(ctx, "tests/abc/q1.webm"))
}
