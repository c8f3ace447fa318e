package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piston-launch/pistonmeta/download"
	"github.com/piston-launch/pistonmeta/manifest"
	"github.com/piston-launch/pistonmeta/rules"
	"github.com/piston-launch/pistonmeta/store"
	"github.com/piston-launch/pistonmeta/version"
)

// fixture is a fake upstream: an index endpoint plus per-path documents, with
// request counting.
type fixture struct {
	t      *testing.T
	server *httptest.Server
	store  *store.Store

	mu     sync.Mutex
	docs   map[string][]byte
	counts map[string]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		store:  store.New(t.TempDir()),
		docs:   map[string][]byte{},
		counts: map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.counts[r.URL.Path]++
		doc, ok := f.docs[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(doc)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) serve(path string, doc []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = doc
}

func (f *fixture) requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

// serveManifest publishes a manifest document and returns the index entry
// pointing at it.
func (f *fixture) serveManifest(m *manifest.Manifest) RemoteVersion {
	f.t.Helper()
	body, err := json.Marshal(m)
	require.NoError(f.t, err)
	path := fmt.Sprintf("/v1/packages/%s.json", m.ID)
	f.serve(path, body)
	return RemoteVersion{
		ID:          m.ID,
		Type:        m.Type,
		URL:         f.server.URL + path,
		UpdatedTime: m.UpdatedTime,
		ReleaseTime: m.ReleaseTime,
		SHA1:        version.SHA1Of(body),
	}
}

// serveIndex publishes the version index listing the given entries.
func (f *fixture) serveIndex(entries ...RemoteVersion) {
	f.t.Helper()
	list := RemoteVersionList{Versions: entries}
	if len(entries) > 0 {
		list.Latest.Release = entries[0].ID
	}
	body, err := json.Marshal(list)
	require.NoError(f.t, err)
	f.serve("/mc/game/version_manifest_v2.json", body)
}

func (f *fixture) resolver(opts ...Option) *Resolver {
	base := []Option{
		WithClient(f.server.Client()),
		WithManifestURL(f.server.URL + "/mc/game/version_manifest_v2.json"),
		WithResourceURL(f.server.URL + "/resources/"),
		WithLibraryURL(f.server.URL + "/maven/"),
		WithLegacyJarURL(f.server.URL + "/legacy/"),
		WithEnvironment(rules.Environment{OS: rules.OSInfo{Name: "linux", Arch: "x64"}}),
	}
	return New(f.store, append(base, opts...)...)
}

func at(raw string) version.Timestamp {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return version.Timestamp{Time: t}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	release := f.serveManifest(&manifest.Manifest{ID: version.Parse("1.20.4"), Type: version.TypeRelease})
	snapshot := f.serveManifest(&manifest.Manifest{ID: version.Parse("23w46a"), Type: version.TypeSnapshot})
	f.serveIndex(release, snapshot)

	list, err := f.resolver().Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Versions, 2)

	found, ok := list.Find(version.Parse("23w46a"))
	require.True(t, ok)
	assert.Equal(t, version.TypeSnapshot, found.Type)

	latest, ok := list.LatestFor(version.TypeRelease)
	require.True(t, ok)
	assert.Equal(t, "1.20.4", latest.ID.String())

	_, ok = list.Find(version.Parse("1.0"))
	assert.False(t, ok)
}

func TestInstall(t *testing.T) {
	t.Run("verifies the index checksum", func(t *testing.T) {
		f := newFixture(t)
		remote := f.serveManifest(&manifest.Manifest{
			ID:        version.Parse("1.20.4"),
			MainClass: "net.minecraft.client.main.Main",
		})

		m, err := f.resolver().Install(context.Background(), remote)
		require.NoError(t, err)
		assert.Equal(t, "net.minecraft.client.main.Main", m.MainClass)

		stored, err := f.store.Load(remote.ID)
		require.NoError(t, err)
		assert.Equal(t, m.MainClass, stored.MainClass)
	})

	t.Run("rejects a tampered document", func(t *testing.T) {
		f := newFixture(t)
		remote := f.serveManifest(&manifest.Manifest{ID: version.Parse("1.20.4")})
		f.serve("/v1/packages/1.20.4.json", []byte(`{"id":"1.20.4","type":"release","tampered":true}`))

		_, err := f.resolver().Install(context.Background(), remote)
		var mismatch *download.ChecksumMismatchError
		require.ErrorAs(t, err, &mismatch)

		_, err = f.store.Load(remote.ID)
		assert.ErrorIs(t, err, store.ErrManifestNotFound)
	})
}

func TestEnsureByID(t *testing.T) {
	t.Run("unknown version", func(t *testing.T) {
		f := newFixture(t)
		f.serveIndex()
		_, err := f.resolver().EnsureByID(context.Background(), version.Parse("1.20.4"))
		assert.ErrorIs(t, err, ErrVersionNotFound)
	})

	t.Run("local-only version survives", func(t *testing.T) {
		f := newFixture(t)
		f.serveIndex()
		custom := &manifest.Manifest{ID: version.Parse("1.20.4-custom"), MainClass: "custom.Main"}
		require.NoError(t, f.store.Save(custom))

		m, err := f.resolver().EnsureByID(context.Background(), custom.ID)
		require.NoError(t, err)
		assert.Equal(t, "custom.Main", m.MainClass)
	})

	t.Run("stale manifest is reinstalled", func(t *testing.T) {
		f := newFixture(t)
		old := &manifest.Manifest{
			ID:          version.Parse("23w46a"),
			UpdatedTime: at("2023-11-15T10:00:00+00:00"),
		}
		require.NoError(t, f.store.Save(old))

		remote := f.serveManifest(&manifest.Manifest{
			ID:          old.ID,
			UpdatedTime: at("2023-11-16T10:00:00+00:00"),
			MainClass:   "net.minecraft.client.main.Main",
		})
		f.serveIndex(remote)

		m, err := f.resolver().EnsureByID(context.Background(), old.ID)
		require.NoError(t, err)
		assert.Equal(t, "net.minecraft.client.main.Main", m.MainClass)
	})

	t.Run("current manifest is reused without a fetch", func(t *testing.T) {
		f := newFixture(t)
		current := &manifest.Manifest{
			ID:          version.Parse("23w46a"),
			UpdatedTime: at("2023-11-15T10:00:00+00:00"),
		}
		require.NoError(t, f.store.Save(current))
		remote := f.serveManifest(current)
		f.serveIndex(remote)

		_, err := f.resolver().EnsureByID(context.Background(), current.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, f.requests("/v1/packages/23w46a.json"))
	})
}

func TestUpToDate(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()

	lib := manifest.Library{Name: mustArtifact(t, "org.lwjgl:lwjgl:3.3.3")}
	m := &manifest.Manifest{
		ID:          version.Parse("1.20.4"),
		UpdatedTime: at("2023-12-07T12:00:00+00:00"),
		Libraries:   []manifest.Library{lib},
	}
	remote := RemoteVersion{ID: m.ID, UpdatedTime: m.UpdatedTime}

	assert.False(t, r.UpToDate(remote, m), "library jar missing")

	jarPath := f.store.LibraryPath(lib.ArtifactPath(""))
	require.NoError(t, os.MkdirAll(filepath.Dir(jarPath), 0o755))
	require.NoError(t, os.WriteFile(jarPath, []byte("jar"), 0o644))
	assert.True(t, r.UpToDate(remote, m))

	remote.UpdatedTime = at("2023-12-08T12:00:00+00:00")
	assert.False(t, r.UpToDate(remote, m), "remote is newer")
}

func TestResolve(t *testing.T) {
	t.Run("flattens an inheritance chain", func(t *testing.T) {
		f := newFixture(t)
		parent := f.serveManifest(&manifest.Manifest{
			ID:        version.Parse("1.20.1"),
			Type:      version.TypeRelease,
			MainClass: "net.minecraft.client.main.Main",
			Assets:    "8",
			Libraries: []manifest.Library{{Name: mustArtifact(t, "com.mojang:brigadier:1.2.9")}},
		})
		child := f.serveManifest(&manifest.Manifest{
			ID:           version.Parse("1.20.1-modded"),
			Type:         version.TypeRelease,
			InheritsFrom: version.Parse("1.20.1"),
			Libraries:    []manifest.Library{{Name: mustArtifact(t, "org.example:loader:0.15.0")}},
		})
		f.serveIndex(parent, child)

		m, err := f.resolver().Resolve(context.Background(), child.ID)
		require.NoError(t, err)
		assert.True(t, m.Resolved())
		assert.Equal(t, "1.20.1-modded", m.ID.String())
		assert.Equal(t, "net.minecraft.client.main.Main", m.MainClass)
		assert.Equal(t, "8", m.Assets)
		require.Len(t, m.Libraries, 2)
		assert.Equal(t, "org.example:loader:0.15.0", m.Libraries[0].Name.String())
		assert.Equal(t, "com.mojang:brigadier:1.2.9", m.Libraries[1].Name.String())
	})

	t.Run("already-resolved manifest passes through unchanged", func(t *testing.T) {
		f := newFixture(t)
		m := &manifest.Manifest{ID: version.Parse("1.20.4"), MainClass: "net.minecraft.client.main.Main"}
		require.NoError(t, f.store.Save(m))
		remote := f.serveManifest(m)
		f.serveIndex(remote)

		got, err := f.resolver().Resolve(context.Background(), m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, m.MainClass, got.MainClass)
	})

	t.Run("unreachable index degrades to local resolution", func(t *testing.T) {
		f := newFixture(t)
		m := &manifest.Manifest{ID: version.Parse("1.20.4"), MainClass: "net.minecraft.client.main.Main"}
		require.NoError(t, f.store.Save(m))

		got, err := f.resolver().Resolve(context.Background(), m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.MainClass, got.MainClass)
	})

	t.Run("detects a cycle", func(t *testing.T) {
		f := newFixture(t)
		a := f.serveManifest(&manifest.Manifest{ID: version.Parse("pack-a"), InheritsFrom: version.Parse("pack-b")})
		b := f.serveManifest(&manifest.Manifest{ID: version.Parse("pack-b"), InheritsFrom: version.Parse("pack-a")})
		f.serveIndex(a, b)

		_, err := f.resolver().Resolve(context.Background(), a.ID)
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		require.Len(t, cycle.Chain, 3)
		assert.Equal(t, "pack-a", cycle.Chain[0].String())
		assert.Equal(t, "pack-b", cycle.Chain[1].String())
		assert.Equal(t, "pack-a", cycle.Chain[2].String())
	})

	t.Run("self-inheritance is the shortest cycle", func(t *testing.T) {
		f := newFixture(t)
		self := f.serveManifest(&manifest.Manifest{ID: version.Parse("pack-a"), InheritsFrom: version.Parse("pack-a")})
		f.serveIndex(self)

		_, err := f.resolver().Resolve(context.Background(), self.ID)
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Len(t, cycle.Chain, 2)
	})
}

func mustArtifact(t *testing.T, coordinate string) manifest.Artifact {
	t.Helper()
	a, err := manifest.ParseArtifact(coordinate)
	require.NoError(t, err)
	return a
}
