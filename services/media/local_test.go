package mediasvc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/vitrine/core"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(core.MediaConfig{LocalDir: t.TempDir(), PublicBaseURL: "http://localhost:4000/media/"})
	require.NoError(t, err)

	url, err := store.Put(ctx, "2024/05/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/media/2024/05/a.png", url)

	data, err := os.ReadFile(filepath.Join(store.Dir(), "2024", "05", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	t.Run("existing key is not overwritten", func(t *testing.T) {
		_, err := store.Put(ctx, "2024/05/a.png", strings.NewReader("other"), 5, "image/png")
		assert.Error(t, err)
	})

	t.Run("keys cannot escape the media dir", func(t *testing.T) {
		_, err := store.Put(ctx, "../evil.png", strings.NewReader("x"), 1, "image/png")
		assert.Error(t, err)
	})

	require.NoError(t, store.Delete(ctx, "2024/05/a.png"))
	assert.True(t, core.IsNotFound(store.Delete(ctx, "2024/05/a.png")))
}
