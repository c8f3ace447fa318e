// Package resolver turns a version request into a fully-merged manifest and
// the download tasks needed to materialize it: index refresh, checksum-
// verified manifest install, inheritance flattening with cycle detection,
// staleness checks and jar/library/asset task construction.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/piston-launch/pistonmeta/download"
	"github.com/piston-launch/pistonmeta/manifest"
	"github.com/piston-launch/pistonmeta/rules"
	"github.com/piston-launch/pistonmeta/store"
	"github.com/piston-launch/pistonmeta/version"
)

var logger = slog.With(slog.String("realm", "resolver"))

const (
	// DefaultManifestURL is the published version index.
	DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest_v2.json"
	// DefaultResourceURL is the content-addressed asset host.
	DefaultResourceURL = "https://resources.download.minecraft.net/"
	// DefaultLibraryURL is the maven-layout library repository.
	DefaultLibraryURL = "https://libraries.minecraft.net/"
	// DefaultLegacyJarURL hosts pre-manifest-era jars, checksummed via ETag.
	DefaultLegacyJarURL = "https://s3.amazonaws.com/Minecraft.Download/versions/"
)

// ErrVersionNotFound indicates the remote index has no entry for the
// requested version.
var ErrVersionNotFound = errors.New("version not found in remote index")

// CycleError reports a manifest inheritance loop. Chain lists the ids in
// visit order, ending with the repeated one.
type CycleError struct {
	Chain []version.ID
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		names[i] = id.String()
	}
	return "manifest inheritance cycle: " + strings.Join(names, " -> ")
}

// Resolver ties the local store to the remote endpoints.
type Resolver struct {
	store  *store.Store
	client download.HTTPDoer
	env    rules.Environment

	manifestURL  string
	resourceURL  string
	libraryURL   string
	legacyJarURL string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClient replaces the default HTTP client.
func WithClient(client download.HTTPDoer) Option {
	return func(r *Resolver) { r.client = client }
}

// WithEnvironment pins the rule-evaluation environment. The default is the
// current platform with no features enabled.
func WithEnvironment(env rules.Environment) Option {
	return func(r *Resolver) { r.env = env }
}

// WithManifestURL overrides the version index endpoint.
func WithManifestURL(url string) Option {
	return func(r *Resolver) { r.manifestURL = url }
}

// WithResourceURL overrides the asset object host.
func WithResourceURL(url string) Option {
	return func(r *Resolver) { r.resourceURL = url }
}

// WithLibraryURL overrides the default library repository.
func WithLibraryURL(url string) Option {
	return func(r *Resolver) { r.libraryURL = url }
}

// WithLegacyJarURL overrides the pre-manifest-era jar host.
func WithLegacyJarURL(url string) Option {
	return func(r *Resolver) { r.legacyJarURL = url }
}

// New creates a resolver over the given store.
func New(s *store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:        s,
		client:       download.NewHTTPClient(),
		env:          rules.Environment{OS: rules.CurrentOS()},
		manifestURL:  DefaultManifestURL,
		resourceURL:  DefaultResourceURL,
		libraryURL:   DefaultLibraryURL,
		legacyJarURL: DefaultLegacyJarURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Environment is the rule-evaluation environment the resolver was built
// with.
func (r *Resolver) Environment() rules.Environment { return r.env }

// Refresh fetches and decodes the remote version index.
func (r *Resolver) Refresh(ctx context.Context) (*RemoteVersionList, error) {
	body, err := r.get(ctx, r.manifestURL)
	if err != nil {
		return nil, fmt.Errorf("refreshing version index: %w", err)
	}
	var list RemoteVersionList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding version index: %w", err)
	}
	logger.Debug("refreshed version index", slog.Int("versions", len(list.Versions)))
	return &list, nil
}

// Install fetches one version's manifest, verifies it against the index
// checksum when the index carries one, and stores the document verbatim.
func (r *Resolver) Install(ctx context.Context, remote RemoteVersion) (*manifest.Manifest, error) {
	body, err := r.get(ctx, remote.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest for %s: %w", remote.ID, err)
	}
	if !remote.SHA1.IsZero() {
		if sum := version.SHA1Of(body); sum != remote.SHA1 {
			return nil, fmt.Errorf("manifest for %s: %w", remote.ID,
				&download.ChecksumMismatchError{Expected: remote.SHA1, Actual: sum})
		}
	}
	var m manifest.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest for %s: %w", remote.ID, err)
	}
	if err := r.store.SaveRaw(remote.ID, body); err != nil {
		return nil, err
	}
	logger.Info("installed manifest", slog.String("id", remote.ID.String()))
	return &m, nil
}

// Ensure returns the local manifest for an index entry, installing or
// reinstalling it when the local copy is missing or stale.
func (r *Resolver) Ensure(ctx context.Context, remote RemoteVersion) (*manifest.Manifest, error) {
	local, err := r.store.Load(remote.ID)
	switch {
	case errors.Is(err, store.ErrManifestNotFound):
		return r.Install(ctx, remote)
	case err != nil:
		return nil, err
	}
	if r.UpToDate(remote, local) {
		logger.Debug("local manifest is up to date", slog.String("id", remote.ID.String()))
		return local, nil
	}
	return r.Install(ctx, remote)
}

// EnsureByID looks a version up in the remote index and ensures its manifest
// locally. An id absent from the index falls back to a local-only manifest
// when one exists.
func (r *Resolver) EnsureByID(ctx context.Context, id version.ID) (*manifest.Manifest, error) {
	list, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	remote, ok := list.Find(id)
	if !ok {
		local, localErr := r.store.Load(id)
		if localErr == nil {
			logger.Debug("version is local-only", slog.String("id", id.String()))
			return local, nil
		}
		return nil, fmt.Errorf("version %s: %w", id, ErrVersionNotFound)
	}
	return r.Ensure(ctx, remote)
}

// UpToDate reports whether a local manifest can substitute for the index
// entry: the remote copy is not newer, and every file the manifest requires
// is already on disk.
func (r *Resolver) UpToDate(remote RemoteVersion, m *manifest.Manifest) bool {
	if remote.UpdatedTime.After(m.UpdatedTime.Time) {
		return false
	}
	for _, rel := range m.RequiredFiles(r.env) {
		if _, err := os.Stat(filepath.Join(r.store.Root(), rel)); err != nil {
			return false
		}
	}
	return true
}

// Resolve flattens a version's inheritance chain into a single manifest.
// Chain members missing locally or stale against the remote index are
// (re-)installed; an unreachable index degrades to local-only resolution. A
// repeated id in the chain yields a CycleError naming the full visit order.
func (r *Resolver) Resolve(ctx context.Context, id version.ID) (*manifest.Manifest, error) {
	var list *RemoteVersionList
	var listErr error
	index := func() *RemoteVersionList {
		if list == nil && listErr == nil {
			list, listErr = r.Refresh(ctx)
			if listErr != nil {
				logger.Warn("couldn't refresh version index, resolving locally",
					slog.String("error", listErr.Error()))
			}
		}
		return list
	}

	var chain []*manifest.Manifest
	var trace []version.ID
	seen := map[version.ID]bool{}

	next := id
	for {
		if seen[next] {
			return nil, &CycleError{Chain: append(trace, next)}
		}
		seen[next] = true
		trace = append(trace, next)

		m, err := r.store.Load(next)
		switch {
		case err == nil:
			if idx := index(); idx != nil {
				if remote, ok := idx.Find(next); ok && !r.UpToDate(remote, m) {
					if m, err = r.Install(ctx, remote); err != nil {
						return nil, err
					}
				}
			}
		case errors.Is(err, store.ErrManifestNotFound):
			idx := index()
			if idx == nil {
				return nil, fmt.Errorf("version %s: %w", next, listErr)
			}
			remote, ok := idx.Find(next)
			if !ok {
				return nil, fmt.Errorf("version %s: %w", next, ErrVersionNotFound)
			}
			if m, err = r.Install(ctx, remote); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}

		chain = append(chain, m)
		if m.Resolved() {
			break
		}
		next = m.InheritsFrom
	}

	merged := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		merged = manifest.Merge(merged, chain[i])
	}
	if len(chain) > 1 {
		logger.Debug("flattened inheritance chain",
			slog.String("id", id.String()), slog.Int("depth", len(chain)))
	}
	return merged, nil
}

func (r *Resolver) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("requesting %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return body, nil
}
