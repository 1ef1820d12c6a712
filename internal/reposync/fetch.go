package reposync

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rpmvault/rpmvault/internal/hashutil"
	"github.com/rpmvault/rpmvault/internal/rpmmeta"
	"github.com/rpmvault/rpmvault/internal/safety"
)

type fetchCounts struct {
	network   int
	localCopy int
	failed    int
}

// fetchPackages resolves every package in needsFetch, either by copying a
// byte-identical file already held at another path in any indexed repo,
// this one included (via the content cache), or by downloading it fresh,
// bounded to e.maxConcurrentDownloads
// concurrent in-flight fetches.
func (e *Engine) fetchPackages(ctx context.Context, repo Descriptor, needsFetch []rpmmeta.Package, log *slog.Logger) fetchCounts {
	var network, localCopy, failed int64
	sem := make(chan struct{}, e.maxConcurrentDownloads)
	var wg sync.WaitGroup

	for _, pkg := range needsFetch {
		pkg := pkg
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := e.fetchOnePackage(ctx, repo, pkg, log)
			switch outcome {
			case fetchOutcomeNetwork:
				n := atomic.AddInt64(&network, 1)
				if n%50 == 0 {
					log.Info("fetch progress", slog.Int64("network", n))
				}
			case fetchOutcomeLocalCopy:
				n := atomic.AddInt64(&localCopy, 1)
				if n%100 == 0 {
					log.Info("fetch progress", slog.Int64("local_copied", n))
				}
			case fetchOutcomeFailed:
				atomic.AddInt64(&failed, 1)
			}
		}()
	}
	wg.Wait()

	return fetchCounts{
		network:   int(network),
		localCopy: int(localCopy),
		failed:    int(failed),
	}
}

type fetchOutcome int

const (
	fetchOutcomeFailed fetchOutcome = iota
	fetchOutcomeNetwork
	fetchOutcomeLocalCopy
)

func (e *Engine) fetchOnePackage(ctx context.Context, repo Descriptor, pkg rpmmeta.Package, log *slog.Logger) fetchOutcome {
	target, err := safety.SafeJoinUnder(repo.LocalRoot, pkg.LocationHref)
	if err != nil {
		log.Warn("package location href escapes repo root", slog.String("package", pkg.Name), slog.String("href", pkg.LocationHref), slog.String("error", err.Error()))
		return fetchOutcomeFailed
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		log.Warn("creating package directory failed", slog.String("package", pkg.Name), slog.String("error", err.Error()))
		return fetchOutcomeFailed
	}

	if e.cache != nil && pkg.Checksum != "" {
		if match, ok := e.cache.FindMatch(pkg.PackageSize, pkg.ChecksumType, pkg.Checksum); ok && match != target {
			if err := copyFile(match, target); err != nil {
				log.Warn("local copy dedup failed, falling back to download",
					slog.String("package", pkg.Name), slog.String("source", match), slog.String("error", err.Error()))
			} else {
				e.cache.RegisterFile(target, pkg.PackageSize)
				return fetchOutcomeLocalCopy
			}
		}
	}

	url := strings.TrimSuffix(repo.BaseURL, "/") + "/" + pkg.LocationHref
	tmpPath, err := e.fetcher.FetchToFile(ctx, url, target)
	if err != nil {
		log.Warn("package download failed", slog.String("package", pkg.Name), slog.String("error", err.Error()))
		return fetchOutcomeFailed
	}

	if pkg.Checksum != "" {
		digest, err := hashutil.DigestFile(tmpPath, pkg.ChecksumType)
		if err != nil || digest != pkg.Checksum {
			_ = os.Remove(tmpPath)
			log.Warn("downloaded package failed checksum verification", slog.String("package", pkg.Name))
			return fetchOutcomeFailed
		}
	}

	_ = os.Remove(target)
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		log.Warn("renaming downloaded package failed", slog.String("package", pkg.Name), slog.String("error", err.Error()))
		return fetchOutcomeFailed
	}

	if e.cache != nil {
		e.cache.RegisterFile(target, pkg.PackageSize)
	}
	return fetchOutcomeNetwork
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".downloading"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
