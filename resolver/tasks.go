package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/piston-launch/pistonmeta/download"
	"github.com/piston-launch/pistonmeta/manifest"
	"github.com/piston-launch/pistonmeta/version"
)

// Tasks builds the download tasks a resolved manifest requires: the game
// jar, every applicable library, and the unique asset objects of its asset
// index. Tasks sharing a destination are emitted once.
func (r *Resolver) Tasks(ctx context.Context, m *manifest.Manifest) ([]download.Downloadable, error) {
	var tasks []download.Downloadable
	targets := map[string]bool{}
	add := func(task download.Downloadable) {
		if targets[task.TargetPath()] {
			return
		}
		targets[task.TargetPath()] = true
		tasks = append(tasks, task)
	}

	add(r.jarTask(m))
	for _, lib := range m.RelevantLibraries(r.env) {
		if task, ok := r.libraryTask(lib); ok {
			add(task)
		}
	}

	assetTasks, err := r.assetTasks(ctx, m)
	if err != nil {
		return nil, err
	}
	for _, task := range assetTasks {
		add(task)
	}
	return tasks, nil
}

// jarTask prefers the manifest's own client download record; versions
// predating those records fall back to the legacy ETag-checksummed host.
func (r *Resolver) jarTask(m *manifest.Manifest) download.Downloadable {
	jar := m.JarID()
	target := r.store.JarPath(jar)
	if info, ok := m.DownloadFor(manifest.DownloadClient); ok {
		return download.NewPreHashed(info.URL, target, info.SHA1)
	}
	url := fmt.Sprintf("%s%s/%s.jar", r.legacyJarURL, jar, jar)
	logger.Debug("manifest has no client download, using legacy jar host",
		slog.String("id", jar.String()))
	return download.NewETag(url, target)
}

// libraryTask maps one library to its fetch strategy: structured download
// records carry a checksum (PreHashed); bare repository URLs are verified
// against their ".sha1" sidecar (Checksummed). Native libraries without an
// entry for the platform yield nothing.
func (r *Resolver) libraryTask(lib manifest.Library) (download.Downloadable, bool) {
	classifier := ""
	if len(lib.Natives) > 0 {
		c, ok := lib.NativeClassifier(r.env.OS)
		if !ok {
			return nil, false
		}
		classifier = c
	}

	relative := lib.ArtifactPath(classifier)
	if info, ok := lib.Downloads.Info(classifier); ok {
		if info.Path != "" {
			relative = info.Path
		}
		return download.NewPreHashed(info.URL, r.store.LibraryPath(relative), info.SHA1), true
	}

	base := lib.URL
	if base == "" {
		base = r.libraryURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return download.NewChecksummed(base+relative, r.store.LibraryPath(relative)), true
}

// assetTasks loads the manifest's asset index, caching the index document
// under assets/indexes, and emits one task per unique object checksum.
func (r *Resolver) assetTasks(ctx context.Context, m *manifest.Manifest) ([]download.Downloadable, error) {
	ref := m.AssetIndex
	if ref == nil {
		return nil, nil
	}
	index, err := r.assetIndex(ctx, ref)
	if err != nil {
		return nil, err
	}

	objectsDir := r.store.AssetObjectsDir()
	var tasks []download.Downloadable
	for sum, name := range index.UniqueObjects() {
		object := index.Objects[name]
		task, err := download.NewAsset(name, object, r.resourceURL, objectsDir)
		if err != nil {
			return nil, fmt.Errorf("asset %s (%s): %w", name, sum, err)
		}
		tasks = append(tasks, task)
	}
	logger.Debug("built asset tasks",
		slog.String("index", ref.ID), slog.Int("objects", len(tasks)))
	return tasks, nil
}

// assetIndex returns the asset index document, reusing the cached sidecar
// when its checksum still matches the reference.
func (r *Resolver) assetIndex(ctx context.Context, ref *manifest.AssetIndexRef) (*manifest.AssetIndex, error) {
	path := r.store.AssetIndexPath(ref.ID)
	if data, err := os.ReadFile(path); err == nil {
		if ref.SHA1.IsZero() || version.SHA1Of(data) == ref.SHA1 {
			var index manifest.AssetIndex
			if err := json.Unmarshal(data, &index); err == nil {
				logger.Debug("using cached asset index", slog.String("index", ref.ID))
				return &index, nil
			}
		}
	}

	body, err := r.get(ctx, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching asset index %s: %w", ref.ID, err)
	}
	if !ref.SHA1.IsZero() {
		if sum := version.SHA1Of(body); sum != ref.SHA1 {
			return nil, fmt.Errorf("asset index %s: %w", ref.ID,
				&download.ChecksumMismatchError{Expected: ref.SHA1, Actual: sum})
		}
	}
	var index manifest.AssetIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("decoding asset index %s: %w", ref.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating asset index directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("caching asset index %s: %w", ref.ID, err)
	}
	return &index, nil
}

// Sync ensures a version is fully materialized: manifest installed,
// inheritance resolved, and every artifact downloaded.
func (r *Resolver) Sync(ctx context.Context, id version.ID, opts ...download.Option) error {
	if _, err := r.EnsureByID(ctx, id); err != nil {
		return err
	}
	m, err := r.Resolve(ctx, id)
	if err != nil {
		return err
	}
	tasks, err := r.Tasks(ctx, m)
	if err != nil {
		return err
	}

	opts = append([]download.Option{download.WithClient(r.client)}, opts...)
	job := download.NewJob(id.String(), opts...)
	job.Add(tasks...)
	logger.Info("starting download job",
		slog.String("id", id.String()), slog.Int("tasks", job.Size()))
	return job.Run(ctx)
}
