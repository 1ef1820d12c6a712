package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpmvault/rpmvault/internal/httpfetch"
	"github.com/rpmvault/rpmvault/internal/orchestrator"
	"github.com/rpmvault/rpmvault/internal/reposync"
)

var (
	syncRepo  string
	syncOnce  bool
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize configured repository mirrors",
		Long: `Synchronize configured repository mirrors with their upstream sources.

The sync command will, for each configured repo:
  1. Check whether the upstream repomd.xml has changed
  2. If changed, download and verify new or modified packages, deduping
     identical package content already present on disk in any repo
  3. Regenerate repository metadata if upstream metadata is missing or
     inconsistent

Without --once, sync runs continuously at the configured interval until
interrupted.`,
		Example: `  rpmvault sync --once
  rpmvault sync --repo centos-9-baseos,epel-9 --once
  rpmvault sync`,
		RunE: syncRun,
	}

	cmd.Flags().StringVar(&syncRepo, "repo", "", "comma-separated list of repo names to sync (default: all configured)")
	cmd.Flags().BoolVar(&syncOnce, "once", false, "run a single cycle and exit instead of looping on the configured interval")

	return cmd
}

func syncRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	orch := globalOrchestrator
	if syncRepo != "" {
		names := strings.Split(syncRepo, ",")
		for i, n := range names {
			names[i] = strings.TrimSpace(n)
		}
		filtered, err := filteredOrchestrator(names)
		if err != nil {
			return err
		}
		orch = filtered
	}
	if orch == nil {
		return fmt.Errorf("sync orchestrator not initialized")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if syncOnce {
		return orch.RunCycle(ctx)
	}

	interval := time.Duration(globalCfg.SyncIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	log.Info("starting sync loop", "interval", interval)

	if err := orch.RunCycle(ctx); err != nil {
		log.Error("sync cycle failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("sync loop stopping")
			return nil
		case <-ticker.C:
			if err := orch.RunCycle(ctx); err != nil {
				log.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// filteredOrchestrator builds an orchestrator scoped to the named repos,
// reusing the already-initialized history store and a fresh HTTP client
// configured from the loaded config.
func filteredOrchestrator(names []string) (*orchestrator.Orchestrator, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	all, skipped := globalCfg.Descriptors()
	for _, s := range skipped {
		logger.Warn("skipping incomplete repo config", "reason", s)
	}

	var selected []reposync.Descriptor
	for _, d := range all {
		if wanted[d.Name] {
			selected = append(selected, d)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no configured repos match --repo %q", strings.Join(names, ","))
	}

	fetcher := httpfetch.NewClient(time.Duration(globalCfg.HTTPTimeoutSeconds) * time.Second)
	return orchestrator.New(selected, fetcher, globalCfg.MaxConcurrentDownloads, globalHistory, logger), nil
}
