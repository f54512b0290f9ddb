package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/assets/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "orgs/abc/branding/logo.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/assets/orgs/abc/branding/logo.png", url)

	data, err := os.ReadFile(filepath.Join(store.Root(), "orgs", "abc", "branding", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	// Overwrite replaces in place.
	_, err = store.Put(context.Background(), "orgs/abc/branding/logo.png", "image/png", strings.NewReader("v2"))
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(store.Root(), "orgs", "abc", "branding", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	require.NoError(t, store.Delete(context.Background(), "orgs/abc/branding/logo.png"))
	_, err = os.Stat(filepath.Join(store.Root(), "orgs", "abc", "branding", "logo.png"))
	require.True(t, os.IsNotExist(err))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/assets")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)

	_, err = store.Put(context.Background(), "orgs/../../etc/passwd", "text/plain", strings.NewReader("x"))
	require.Error(t, err)

	_, err = store.Put(context.Background(), "", "image/png", strings.NewReader("x"))
	require.Error(t, err)
}
