// Package store manages the on-disk game directory layout: versioned
// manifests, jars, the shared library tree and the content-addressed asset
// store. All paths derive from a single root so callers never assemble
// layout paths themselves.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/piston-launch/pistonmeta/manifest"
	"github.com/piston-launch/pistonmeta/version"
)

var logger = slog.With(slog.String("realm", "store"))

// ErrManifestNotFound indicates the requested version has no manifest on
// disk.
var ErrManifestNotFound = errors.New("version manifest not found")

// ParseError reports an on-disk manifest that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store is a game directory rooted at a single path. The zero value is not
// usable; create one with New.
type Store struct {
	root string
}

// New creates a store rooted at root. The directory tree is created lazily
// by writes.
func New(root string) *Store {
	return &Store{root: root}
}

// Root is the directory the store was created with.
func (s *Store) Root() string { return s.root }

// VersionDir is the directory holding one version's manifest and jar.
func (s *Store) VersionDir(id version.ID) string {
	return filepath.Join(s.root, "versions", id.String())
}

// ManifestPath is the manifest document of one version.
func (s *Store) ManifestPath(id version.ID) string {
	return filepath.Join(s.VersionDir(id), id.String()+".json")
}

// JarPath is the game jar of one version.
func (s *Store) JarPath(id version.ID) string {
	return filepath.Join(s.VersionDir(id), id.String()+".jar")
}

// LibraryPath resolves a library's repository-layout path under the shared
// library tree.
func (s *Store) LibraryPath(relative string) string {
	return filepath.Join(s.root, "libraries", filepath.FromSlash(relative))
}

// AssetIndexPath is the cached asset index document for an index id.
func (s *Store) AssetIndexPath(indexID string) string {
	return filepath.Join(s.root, "assets", "indexes", indexID+".json")
}

// AssetObjectsDir is the root of the content-addressed asset object store.
func (s *Store) AssetObjectsDir() string {
	return filepath.Join(s.root, "assets", "objects")
}

// VirtualAssetsDir is the per-index materialized asset tree used by
// versions that cannot read the content-addressed layout.
func (s *Store) VirtualAssetsDir(indexID string) string {
	return filepath.Join(s.root, "assets", "virtual", indexID)
}

// List enumerates every version with a manifest on disk, sorted by id
// string. A missing versions directory yields an empty list.
func (s *Store) List() ([]version.ID, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "versions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing versions in %s: %w", s.root, err)
	}
	var ids []version.ID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := version.Parse(entry.Name())
		if _, err := os.Stat(s.ManifestPath(id)); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Load reads and decodes one version's manifest. A missing file maps to
// ErrManifestNotFound; a present but undecodable file maps to ParseError.
func (s *Store) Load(id version.ID) (*manifest.Manifest, error) {
	path := s.ManifestPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("version %s: %w", id, ErrManifestNotFound)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &m, nil
}

// Save encodes one manifest into its version directory, creating the
// directory as needed.
func (s *Store) Save(m *manifest.Manifest) error {
	path := s.ManifestPath(m.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating version directory for %s: %w", m.ID, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest for %s: %w", m.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	logger.Debug("saved manifest", slog.String("id", m.ID.String()), slog.String("path", path))
	return nil
}

// SaveRaw stores pre-encoded manifest bytes verbatim, preserving the exact
// upstream document.
func (s *Store) SaveRaw(id version.ID, data []byte) error {
	path := s.ManifestPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating version directory for %s: %w", id, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// HasJar reports whether the version's jar is present.
func (s *Store) HasJar(id version.ID) bool {
	info, err := os.Stat(s.JarPath(id))
	return err == nil && !info.IsDir()
}
