// Package reposync implements the per-repository synchronization pipeline:
// pull metadata, diff the package list against what's on disk, dedupe
// against the content cache, fetch what's missing, and verify as it lands.
package reposync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpmvault/rpmvault/internal/contentcache"
	"github.com/rpmvault/rpmvault/internal/httpfetch"
	"github.com/rpmvault/rpmvault/internal/rpmmeta"
	"github.com/rpmvault/rpmvault/internal/safety"
)

// Descriptor is the static configuration for one mirrored repository.
type Descriptor struct {
	Name      string
	BaseURL   string
	LocalRoot string
}

// Report summarizes one call to Sync.
type Report struct {
	NetworkDownloaded int
	LocalCopied       int
	Corrupted         int
	Failed            int
	Skipped           int
}

// Engine drives Sync calls for any number of repositories, sharing an HTTP
// client and a content cache across them.
type Engine struct {
	fetcher                *httpfetch.Client
	cache                   *contentcache.Cache
	maxConcurrentDownloads int
	logger                  *slog.Logger
}

// New builds an Engine. maxConcurrentDownloads bounds the fetch phase's
// semaphore width; the default of 5 applies when it is <= 0.
func New(fetcher *httpfetch.Client, cache *contentcache.Cache, maxConcurrentDownloads int, logger *slog.Logger) *Engine {
	if maxConcurrentDownloads <= 0 {
		maxConcurrentDownloads = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fetcher:                fetcher,
		cache:                   cache,
		maxConcurrentDownloads: maxConcurrentDownloads,
		logger:                  logger,
	}
}

// Sync executes one synchronization pass for repo. Callers are expected to
// have already consulted a change detector; Sync itself always does the
// full metadata-fetch-and-diff cycle.
func (e *Engine) Sync(ctx context.Context, repo Descriptor) (Report, error) {
	log := e.logger.With(slog.String("repo", repo.Name))

	if err := e.prepareDirs(repo.LocalRoot); err != nil {
		return Report{}, fmt.Errorf("preparing directories: %w", err)
	}

	repomd, err := e.fetchRepomd(ctx, repo)
	if err != nil {
		return Report{}, fmt.Errorf("fetching repomd.xml: %w", err)
	}

	e.fetchCompanionMetadata(ctx, repo, repomd, log)

	href, ok := repomd.GetDataHref("primary")
	if !ok {
		log.Error("repomd.xml has no primary data entry, aborting repo")
		return Report{}, fmt.Errorf("repomd.xml for %s has no primary entry", repo.Name)
	}
	primaryPath, err := safety.SafeJoinUnder(repo.LocalRoot, href)
	if err != nil {
		log.Error("primary href escapes repo root, aborting repo", slog.String("href", href), slog.String("error", err.Error()))
		return Report{}, fmt.Errorf("primary href for %s escapes repo root: %w", repo.Name, err)
	}
	primaryRaw, err := os.ReadFile(primaryPath)
	if err != nil {
		log.Error("local primary index missing, aborting repo", slog.String("path", primaryPath))
		return Report{}, fmt.Errorf("reading local primary index for %s: %w", repo.Name, err)
	}

	primaryDecompressed, err := rpmmeta.Decompress(primaryRaw, href)
	if err != nil {
		log.Error("primary index decompression failed, aborting repo", slog.String("error", err.Error()))
		return Report{}, fmt.Errorf("decompressing primary index for %s: %w", repo.Name, err)
	}
	packages, err := rpmmeta.ParsePrimary(primaryDecompressed)
	if err != nil {
		log.Error("primary index parse failed, aborting repo", slog.String("error", err.Error()))
		return Report{}, fmt.Errorf("parsing primary index for %s: %w", repo.Name, err)
	}

	diff := e.diffPackages(repo, packages)

	report := Report{
		Skipped:   diff.skipped,
		Corrupted: diff.corrupted,
	}
	fetchCounts := e.fetchPackages(ctx, repo, diff.needsFetch, log)
	report.NetworkDownloaded = fetchCounts.network
	report.LocalCopied = fetchCounts.localCopy
	report.Failed = fetchCounts.failed

	log.Info("sync complete",
		slog.Int("network", report.NetworkDownloaded),
		slog.Int("local_copied", report.LocalCopied),
		slog.Int("corrupted", report.Corrupted),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped))

	return report, nil
}

func (e *Engine) prepareDirs(localRoot string) error {
	for _, dir := range []string{localRoot, filepath.Join(localRoot, "Packages"), filepath.Join(localRoot, "repodata")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func (e *Engine) fetchRepomd(ctx context.Context, repo Descriptor) (*rpmmeta.Repomd, error) {
	body, err := e.fetcher.FetchString(ctx, strings.TrimSuffix(repo.BaseURL, "/")+"/repodata/repomd.xml")
	if err != nil {
		return nil, err
	}
	localPath := filepath.Join(repo.LocalRoot, "repodata", "repomd.xml")
	if err := os.WriteFile(localPath, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", localPath, err)
	}
	return rpmmeta.ParseRepomd([]byte(body))
}

func (e *Engine) fetchCompanionMetadata(ctx context.Context, repo Descriptor, repomd *rpmmeta.Repomd, log *slog.Logger) {
	for _, d := range repomd.Data {
		if d.Location.Href == "" {
			continue
		}
		target, err := safety.SafeJoinUnder(repo.LocalRoot, d.Location.Href)
		if err != nil {
			log.Warn("metadata href escapes repo root, skipping entry", slog.String("type", d.Type), slog.String("href", d.Location.Href), slog.String("error", err.Error()))
			continue
		}

		if existingDigest, err := computeSHA256IfPresent(target); err == nil && existingDigest == d.Checksum.Value {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			log.Warn("creating metadata directory failed", slog.String("type", d.Type), slog.String("error", err.Error()))
			continue
		}

		url := strings.TrimSuffix(repo.BaseURL, "/") + "/" + d.Location.Href
		body, err := e.fetcher.FetchBytes(ctx, url)
		if err != nil {
			log.Warn("companion metadata fetch failed", slog.String("type", d.Type), slog.String("href", d.Location.Href), slog.String("error", err.Error()))
			continue
		}
		if err := os.WriteFile(target, body, 0o644); err != nil {
			log.Warn("writing companion metadata failed", slog.String("type", d.Type), slog.String("error", err.Error()))
		}
	}
}

func computeSHA256IfPresent(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return shaFile(path)
}
