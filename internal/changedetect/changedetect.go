// Package changedetect implements the cheap upstream-change check that
// gates a full repository sync: is repomd.xml different from what we have
// on disk?
package changedetect

import (
	"context"
	"log/slog"
	"os"

	"github.com/rpmvault/rpmvault/internal/hashutil"
	"github.com/rpmvault/rpmvault/internal/httpfetch"
)

// Detector decides whether an upstream document differs from a local copy.
// MD5 here is an identity witness, not a security primitive — strong
// per-artifact checksums are verified separately by the sync engine.
type Detector struct {
	fetcher *httpfetch.Client
	logger  *slog.Logger
}

// New creates a Detector using the given fetcher.
func New(fetcher *httpfetch.Client, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{fetcher: fetcher, logger: logger}
}

// HasChanged reports whether remoteURL's content differs from localPath.
//
// Policy: a missing local file is always a change. A failed or non-2xx GET
// is treated as a change too — erring on the side of syncing is cheaper
// than missing an upstream update. Otherwise the MD5 of the fetched bytes
// is compared against the MD5 of the local file.
func (d *Detector) HasChanged(ctx context.Context, remoteURL, localPath string) bool {
	if _, err := os.Stat(localPath); err != nil {
		return true
	}

	remote, err := d.fetcher.FetchBytes(ctx, remoteURL)
	if err != nil {
		d.logger.Warn("change detection fetch failed, assuming changed",
			slog.String("url", remoteURL), slog.String("error", err.Error()))
		return true
	}

	localDigest, err := hashutil.MD5File(localPath)
	if err != nil {
		d.logger.Warn("change detection local hash failed, assuming changed",
			slog.String("path", localPath), slog.String("error", err.Error()))
		return true
	}

	remoteDigest := hashutil.MD5Bytes(remote)
	return remoteDigest != localDigest
}
