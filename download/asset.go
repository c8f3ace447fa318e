package download

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/piston-launch/pistonmeta/manifest"
	"github.com/piston-launch/pistonmeta/version"
)

// assetPhase is the displayed stage of an asset task.
type assetPhase string

const (
	phaseDownloading assetPhase = "Downloading"
	phaseExtracting  assetPhase = "Extracting"
)

// Asset downloads one content-addressed resource object. The index's
// checksum and size are the trust source; when a gzip-compressed transport
// variant exists it is preferred, decompressed locally and verified against
// the decompressed checksum.
type Asset struct {
	tracker
	name    string
	object  manifest.AssetObject
	urlBase string
	// objectsDir is the root of the content-addressed object store.
	objectsDir string

	phaseMu sync.Mutex
	phase   assetPhase
}

// NewAsset creates an asset task. urlBase is joined with the object's
// content-addressed path.
func NewAsset(name string, object manifest.AssetObject, urlBase, objectsDir string) (*Asset, error) {
	objectURL, err := joinURL(urlBase, manifest.ObjectPath(object.Hash))
	if err != nil {
		return nil, err
	}
	target := filepath.Join(objectsDir, filepath.FromSlash(manifest.ObjectPath(object.Hash)))
	a := &Asset{
		tracker:    newTracker(objectURL, target),
		name:       name,
		object:     object,
		urlBase:    urlBase,
		objectsDir: objectsDir,
		phase:      phaseDownloading,
	}
	a.monitor.SetTotal(object.Size)
	return a, nil
}

// Name is the human-readable asset name this object was selected under.
func (d *Asset) Name() string { return d.name }

func (d *Asset) Status() string {
	d.phaseMu.Lock()
	defer d.phaseMu.Unlock()
	return fmt.Sprintf("%s %s", d.phase, d.name)
}

func (d *Asset) setPhase(p assetPhase) {
	d.phaseMu.Lock()
	d.phase = p
	d.phaseMu.Unlock()
}

func (d *Asset) Download(ctx context.Context, client HTTPDoer) error {
	d.attempts.Add(1)
	d.setPhase(phaseDownloading)

	if err := ensureTargetDir(d.target); err != nil {
		return err
	}
	compressedTarget := ""
	if d.object.HasCompressedAlternative() {
		compressedTarget = filepath.Join(d.objectsDir, filepath.FromSlash(manifest.ObjectPath(d.object.CompressedHash)))
		if err := ensureTargetDir(compressedTarget); err != nil {
			return err
		}
	}

	// Cheap optimistic check: same size means same content for a
	// content-addressed object.
	if info, err := os.Stat(d.target); err == nil {
		if info.Size() == d.object.Size {
			logger.Debug("have local asset with matching size, using it", slog.String("name", d.name))
			return nil
		}
		logger.Warn("local asset has the wrong size, discarding",
			slog.String("name", d.name), slog.Int64("have", info.Size()), slog.Int64("want", d.object.Size))
		if err := os.Remove(d.target); err != nil {
			return fmt.Errorf("removing stale asset %s: %w", d.target, err)
		}
	}

	if compressedTarget != "" {
		if local, exists, err := hashLocalFile(compressedTarget); err != nil {
			return err
		} else if exists {
			if local == d.object.CompressedHash {
				return d.decompress(compressedTarget)
			}
			logger.Warn("local compressed asset has the wrong checksum, discarding",
				slog.String("name", d.name), slog.String("want", d.object.CompressedHash.String()), slog.String("have", local.String()))
			if err := os.Remove(compressedTarget); err != nil {
				return fmt.Errorf("removing stale compressed asset %s: %w", compressedTarget, err)
			}
		}
		return d.fetchCompressed(ctx, client, compressedTarget)
	}
	return d.fetchRaw(ctx, client)
}

// fetchCompressed transfers the gzip variant, verifies it, then decompresses
// and verifies the result.
func (d *Asset) fetchCompressed(ctx context.Context, client HTTPDoer, compressedTarget string) error {
	compressedURL, err := joinURL(d.urlBase, manifest.ObjectPath(d.object.CompressedHash))
	if err != nil {
		return err
	}
	body, err := fetchTracked(ctx, client, compressedURL, d.monitor)
	if err != nil {
		return err
	}
	if sum := version.SHA1Of(body); sum != d.object.CompressedHash {
		return &ChecksumMismatchError{Expected: d.object.CompressedHash, Actual: sum}
	}
	if err := writeTarget(compressedTarget, body); err != nil {
		return err
	}
	return d.decompress(compressedTarget)
}

func (d *Asset) fetchRaw(ctx context.Context, client HTTPDoer) error {
	body, err := fetchTracked(ctx, client, d.url, d.monitor)
	if err != nil {
		return err
	}
	if sum := version.SHA1Of(body); sum != d.object.Hash {
		return &ChecksumMismatchError{Expected: d.object.Hash, Actual: sum}
	}
	if err := writeTarget(d.target, body); err != nil {
		return err
	}
	logger.Debug("downloaded asset and checksum matched", slog.String("name", d.name))
	return nil
}

// decompress unpacks a verified compressed copy into the target and verifies
// the decompressed checksum. A mismatch removes the partial target before
// propagating.
func (d *Asset) decompress(compressedTarget string) error {
	d.setPhase(phaseExtracting)

	f, err := os.Open(compressedTarget)
	if err != nil {
		return fmt.Errorf("opening compressed asset %s: %w", compressedTarget, err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading compressed asset %s: %w", compressedTarget, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return fmt.Errorf("decompressing asset %s: %w", compressedTarget, err)
	}
	if err := zr.Close(); err != nil {
		return fmt.Errorf("decompressing asset %s: %w", compressedTarget, err)
	}

	if err := writeTarget(d.target, buf.Bytes()); err != nil {
		return err
	}
	if sum := version.SHA1Of(buf.Bytes()); sum != d.object.Hash {
		if err := os.Remove(d.target); err != nil {
			logger.Warn("failed to remove mismatched asset", slog.String("target", d.target), slog.String("error", err.Error()))
		}
		return &ChecksumMismatchError{Expected: d.object.Hash, Actual: sum}
	}
	logger.Debug("unpacked compressed asset and checksum matched", slog.String("name", d.name))
	return nil
}

func joinURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return u.JoinPath(path).String(), nil
}
