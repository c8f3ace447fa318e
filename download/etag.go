package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// ETag downloads a legacy endpoint that publishes the MD5 of its content as
// the ETag response header. Weak or placeholder validators (any value
// containing a "-") cannot be content-compared and are accepted
// unconditionally.
type ETag struct {
	tracker
}

// NewETag creates an ETag-verified task.
func NewETag(url, target string) *ETag {
	return &ETag{tracker: newTracker(url, target)}
}

func (d *ETag) Download(ctx context.Context, client HTTPDoer) error {
	d.attempts.Add(1)
	if err := ensureTargetDir(d.target); err != nil {
		return err
	}

	resp, err := fetch(ctx, client, d.url)
	if err != nil {
		return err
	}
	etag := stripQuotes(resp.Header.Get("ETag"))
	if resp.ContentLength > 0 {
		d.monitor.SetTotal(resp.ContentLength)
	}
	body, err := readAllTracked(resp, d.monitor)
	if err != nil {
		return err
	}

	sum := md5.Sum(body)
	if strings.Contains(etag, "-") || etag == "" {
		logger.Debug("etag is not content-comparable, accepting download", slog.String("target", d.target))
		return writeTarget(d.target, body)
	}
	if hex.EncodeToString(sum[:]) != etag {
		return fmt.Errorf("etag did not match downloaded file (etag %s, md5 %s)", etag, hex.EncodeToString(sum[:]))
	}
	if err := writeTarget(d.target, body); err != nil {
		return err
	}
	logger.Debug("downloaded and etag matched", slog.String("target", d.target))
	return nil
}

func stripQuotes(etag string) string {
	if len(etag) >= 2 && strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
		return etag[1 : len(etag)-1]
	}
	return etag
}
