package reposync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpmvault/rpmvault/internal/rpmmeta"
	"github.com/rpmvault/rpmvault/internal/safety"
)

// ValidationReport summarizes a no-network completeness check against the
// primary index already on disk.
type ValidationReport struct {
	Total     int
	OK        int
	Corrupted int
	Missing   int
}

// Validate runs the same package-level diff Sync uses, but entirely
// against what's already on local disk: no repomd refetch, no package
// downloads. It answers "is this mirror complete and correct right now?"
func (e *Engine) Validate(repo Descriptor) (ValidationReport, error) {
	repomdPath := filepath.Join(repo.LocalRoot, "repodata", "repomd.xml")
	repomdBytes, err := os.ReadFile(repomdPath)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("reading local repomd.xml for %s: %w", repo.Name, err)
	}
	repomd, err := rpmmeta.ParseRepomd(repomdBytes)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("parsing local repomd.xml for %s: %w", repo.Name, err)
	}

	href, ok := repomd.GetDataHref("primary")
	if !ok {
		return ValidationReport{}, fmt.Errorf("repomd.xml for %s has no primary entry", repo.Name)
	}
	primaryPath, err := safety.SafeJoinUnder(repo.LocalRoot, href)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("primary href for %s escapes repo root: %w", repo.Name, err)
	}
	primaryRaw, err := os.ReadFile(primaryPath)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("reading local primary index for %s: %w", repo.Name, err)
	}
	primaryDecompressed, err := rpmmeta.Decompress(primaryRaw, href)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("decompressing local primary index for %s: %w", repo.Name, err)
	}
	packages, err := rpmmeta.ParsePrimary(primaryDecompressed)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("parsing local primary index for %s: %w", repo.Name, err)
	}

	diff := e.diffPackages(repo, packages)
	return ValidationReport{
		Total:     len(packages),
		OK:        diff.skipped,
		Corrupted: diff.corrupted,
		Missing:   len(diff.needsFetch) - diff.corrupted,
	}, nil
}
