package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		settings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 16, settings.Concurrency)
		assert.Equal(t, 5, settings.MaxAttempts)
		assert.NotEmpty(t, settings.GameDir)
	})

	t.Run("file values win, gaps default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
gameDir: /srv/minecraft
concurrency: 4
features:
  is_demo_user: true
`), 0o644))

		settings, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/minecraft", settings.GameDir)
		assert.Equal(t, 4, settings.Concurrency)
		assert.Equal(t, 5, settings.MaxAttempts)
		assert.True(t, settings.Features["is_demo_user"])
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("concurrency: -2\n"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "concurrency must be positive")
	})

	t.Run("unparseable file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("gameDir: [\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.Error(t, Settings{Concurrency: 1, MaxAttempts: 1}.Validate())
}
