// Package orchestrator drives one full synchronization cycle across every
// configured repository: a cheap change check, a full sync on change, and
// a metadata-completeness pass, all sharing one content cache built once
// per cycle.
package orchestrator

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rpmvault/rpmvault/internal/changedetect"
	"github.com/rpmvault/rpmvault/internal/contentcache"
	"github.com/rpmvault/rpmvault/internal/history"
	"github.com/rpmvault/rpmvault/internal/httpfetch"
	"github.com/rpmvault/rpmvault/internal/reposync"
	"github.com/rpmvault/rpmvault/internal/rpmmeta"
)

// Orchestrator runs cycles over a fixed set of repository descriptors.
type Orchestrator struct {
	repos                  []reposync.Descriptor
	fetcher                *httpfetch.Client
	maxConcurrentDownloads int
	history                *history.Store
	logger                 *slog.Logger
}

// New builds an Orchestrator for the given repositories. history may be
// nil, in which case cycle outcomes are logged but not persisted.
func New(repos []reposync.Descriptor, fetcher *httpfetch.Client, maxConcurrentDownloads int, historyStore *history.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		repos:                  repos,
		fetcher:                fetcher,
		maxConcurrentDownloads: maxConcurrentDownloads,
		history:                historyStore,
		logger:                 logger,
	}
}

// RunCycle executes one pass over every configured repository. Failures in
// one repo are logged and do not prevent the remaining repos from running.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	cache, err := contentcache.New(0)
	if err != nil {
		return err
	}
	for _, repo := range o.repos {
		if err := cache.IndexDirectory(repo.LocalRoot); err != nil {
			o.logger.Warn("indexing local root for dedup cache failed",
				slog.String("repo", repo.Name), slog.String("error", err.Error()))
		}
	}

	detector := changedetect.New(o.fetcher, o.logger)
	engine := reposync.New(o.fetcher, cache, o.maxConcurrentDownloads, o.logger)

	for _, repo := range o.repos {
		o.runRepo(ctx, repo, detector, engine)
	}
	return nil
}

func (o *Orchestrator) runRepo(ctx context.Context, repo reposync.Descriptor, detector *changedetect.Detector, engine *reposync.Engine) {
	log := o.logger.With(slog.String("repo", repo.Name))
	startedAt := time.Now()
	record := &history.RunRecord{Repo: repo.Name, StartedAt: startedAt}

	repomdURL := repo.BaseURL
	if len(repomdURL) > 0 && repomdURL[len(repomdURL)-1] != '/' {
		repomdURL += "/"
	}
	repomdURL += "repodata/repomd.xml"
	localRepomd := filepath.Join(repo.LocalRoot, "repodata", "repomd.xml")

	if detector.HasChanged(ctx, repomdURL, localRepomd) {
		report, err := engine.Sync(ctx, repo)
		if err != nil {
			log.Error("sync failed", slog.String("error", err.Error()))
			record.ErrorMessage = err.Error()
		}
		record.Network = report.NetworkDownloaded
		record.LocalCopied = report.LocalCopied
		record.Corrupted = report.Corrupted
		record.Failed = report.Failed
		record.Skipped = report.Skipped
	} else {
		log.Info("no upstream change, skipping sync")
	}

	regenerated, err := rpmmeta.EnsureMetadata(repo.LocalRoot)
	if err != nil {
		log.Error("metadata ensure/regeneration failed", slog.String("error", err.Error()))
	}
	record.MetadataRegenerated = regenerated

	endedAt := time.Now()
	record.EndedAt = &endedAt
	if o.history != nil {
		if err := o.history.RecordRun(record); err != nil {
			log.Warn("recording run history failed", slog.String("error", err.Error()))
		}
	}

	size, err := dirSize(repo.LocalRoot)
	if err != nil {
		log.Warn("computing directory size failed", slog.String("error", err.Error()))
		return
	}
	log.Info("repo directory size", slog.String("size", humanize.Bytes(uint64(size))))
}
