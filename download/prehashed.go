package download

import (
	"context"
	"log/slog"

	"github.com/piston-launch/pistonmeta/version"
)

// PreHashed downloads a file whose checksum is embedded in the manifest. A
// matching local file is accepted without any network request; downloaded
// bytes are written to disk only when their checksum matches.
type PreHashed struct {
	tracker
	expected version.SHA1Sum
}

// NewPreHashed creates a pre-hashed task.
func NewPreHashed(url, target string, expected version.SHA1Sum) *PreHashed {
	return &PreHashed{tracker: newTracker(url, target), expected: expected}
}

func (d *PreHashed) Download(ctx context.Context, client HTTPDoer) error {
	d.attempts.Add(1)
	if err := ensureTargetDir(d.target); err != nil {
		return err
	}

	if local, exists, err := hashLocalFile(d.target); err != nil {
		return err
	} else if exists && local == d.expected {
		logger.Debug("local file matches checksum, using it", slog.String("target", d.target))
		return nil
	}

	body, err := fetchTracked(ctx, client, d.url, d.monitor)
	if err != nil {
		return err
	}
	if sum := version.SHA1Of(body); sum != d.expected {
		return &ChecksumMismatchError{Expected: d.expected, Actual: sum}
	}
	if err := writeTarget(d.target, body); err != nil {
		return err
	}
	logger.Debug("downloaded and checksum matched", slog.String("target", d.target))
	return nil
}
