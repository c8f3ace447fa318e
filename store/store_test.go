package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piston-launch/pistonmeta/manifest"
	"github.com/piston-launch/pistonmeta/version"
)

func TestStorePaths(t *testing.T) {
	s := New("/game")
	id := version.Parse("1.20.4")
	assert.Equal(t, filepath.Join("/game", "versions", "1.20.4", "1.20.4.json"), s.ManifestPath(id))
	assert.Equal(t, filepath.Join("/game", "versions", "1.20.4", "1.20.4.jar"), s.JarPath(id))
	assert.Equal(t, filepath.Join("/game", "libraries", "com", "example", "lib", "1.0", "lib-1.0.jar"),
		s.LibraryPath("com/example/lib/1.0/lib-1.0.jar"))
	assert.Equal(t, filepath.Join("/game", "assets", "indexes", "12.json"), s.AssetIndexPath("12"))
	assert.Equal(t, filepath.Join("/game", "assets", "objects"), s.AssetObjectsDir())
	assert.Equal(t, filepath.Join("/game", "assets", "virtual", "legacy"), s.VirtualAssetsDir("legacy"))
}

func TestStoreRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	m := &manifest.Manifest{
		ID:        version.Parse("23w46a"),
		Type:      version.TypeSnapshot,
		MainClass: "net.minecraft.client.main.Main",
	}
	require.NoError(t, s.Save(m))

	loaded, err := s.Load(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, m.MainClass, loaded.MainClass)
}

func TestStoreLoadErrors(t *testing.T) {
	s := New(t.TempDir())

	t.Run("missing manifest", func(t *testing.T) {
		_, err := s.Load(version.Parse("1.0"))
		assert.ErrorIs(t, err, ErrManifestNotFound)
	})

	t.Run("undecodable manifest", func(t *testing.T) {
		id := version.Parse("broken")
		require.NoError(t, os.MkdirAll(s.VersionDir(id), 0o755))
		require.NoError(t, os.WriteFile(s.ManifestPath(id), []byte("{not json"), 0o644))
		_, err := s.Load(id)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestStoreList(t *testing.T) {
	s := New(t.TempDir())

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, raw := range []string{"1.20.4", "23w46a", "1.9.1-pre2"} {
		require.NoError(t, s.Save(&manifest.Manifest{ID: version.Parse(raw)}))
	}
	// A bare directory without a manifest is not a version.
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "versions", "incomplete"), 0o755))

	ids, err = s.List()
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, "1.20.4", ids[0].String())
	assert.Equal(t, "1.9.1-pre2", ids[1].String())
	assert.Equal(t, "23w46a", ids[2].String())
}

func TestStoreHasJar(t *testing.T) {
	s := New(t.TempDir())
	id := version.Parse("1.20.4")
	assert.False(t, s.HasJar(id))
	require.NoError(t, os.MkdirAll(s.VersionDir(id), 0o755))
	require.NoError(t, os.WriteFile(s.JarPath(id), []byte("jar"), 0o644))
	assert.True(t, s.HasJar(id))
}
