package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var (
	statusRepo  string
	statusLimit int
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display recent sync history for configured repos",
		Long: `Display recent sync run history for all or specific configured repos:
when each cycle ran, how many packages were downloaded, copied locally,
found corrupted, skipped, or failed, and whether metadata was regenerated.`,
		Example: `  rpmvault status
  rpmvault status --repo epel-9
  rpmvault status --repo centos-9-baseos,docker-ce --limit 5`,
		RunE: statusRun,
	}

	cmd.Flags().StringVar(&statusRepo, "repo", "", "comma-separated list of repo names to show (default: all configured)")
	cmd.Flags().IntVar(&statusLimit, "limit", 3, "number of recent runs to show per repo")

	return cmd
}

func statusRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalHistory == nil {
		return fmt.Errorf("history store not initialized")
	}

	all, skipped := globalCfg.Descriptors()
	for _, s := range skipped {
		log.Warn("skipping incomplete repo config", "reason", s)
	}

	var names []string
	if statusRepo != "" {
		names = strings.Split(statusRepo, ",")
		for i, n := range names {
			names[i] = strings.TrimSpace(n)
		}
	} else {
		for _, d := range all {
			names = append(names, d.Name)
		}
	}

	if len(names) == 0 {
		fmt.Println("no repos configured")
		return nil
	}

	for _, name := range names {
		runs, err := globalHistory.RecentRuns(name, statusLimit)
		if err != nil {
			fmt.Printf("%s: ERROR - %v\n", name, err)
			continue
		}
		fmt.Printf("%s:\n", name)
		if len(runs) == 0 {
			fmt.Println("  no recorded runs")
			continue
		}
		for _, r := range runs {
			status := "ok"
			if r.ErrorMessage != "" {
				status = "error: " + r.ErrorMessage
			}
			fmt.Printf("  %s  network=%d local=%d corrupted=%d failed=%d skipped=%d metadata_regenerated=%t  %s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Network, r.LocalCopied, r.Corrupted, r.Failed, r.Skipped, r.MetadataRegenerated, status)
		}
	}

	return nil
}
