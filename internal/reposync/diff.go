package reposync

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rpmvault/rpmvault/internal/hashutil"
	"github.com/rpmvault/rpmvault/internal/rpmmeta"
	"github.com/rpmvault/rpmvault/internal/safety"
)

type diffResult struct {
	skipped    int
	corrupted  int
	needsFetch []rpmmeta.Package
}

// diffPackages classifies every package as skip or needs-fetch by
// comparing it against what's already on disk, fanning the checks out
// across up to runtime.NumCPU() workers since each check is an
// independent file read.
func (e *Engine) diffPackages(repo Descriptor, packages []rpmmeta.Package) diffResult {
	var skipped, corrupted int64
	var mu sync.Mutex
	var needsFetch []rpmmeta.Package

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	if workers > len(packages) {
		workers = len(packages)
	}
	if workers == 0 {
		return diffResult{}
	}

	jobs := make(chan rpmmeta.Package)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pkg := range jobs {
				status := classifyPackage(repo, pkg)
				switch status {
				case packageSkip:
					atomic.AddInt64(&skipped, 1)
				case packageCorrupted:
					atomic.AddInt64(&corrupted, 1)
					mu.Lock()
					needsFetch = append(needsFetch, pkg)
					mu.Unlock()
				case packageMissing:
					mu.Lock()
					needsFetch = append(needsFetch, pkg)
					mu.Unlock()
				}
			}
		}()
	}
	for _, pkg := range packages {
		jobs <- pkg
	}
	close(jobs)
	wg.Wait()

	return diffResult{
		skipped:    int(skipped),
		corrupted:  int(corrupted),
		needsFetch: needsFetch,
	}
}

type packageStatus int

const (
	packageSkip packageStatus = iota
	packageMissing
	packageCorrupted
)

func classifyPackage(repo Descriptor, pkg rpmmeta.Package) packageStatus {
	target, err := safety.SafeJoinUnder(repo.LocalRoot, pkg.LocationHref)
	if err != nil {
		return packageMissing
	}
	info, err := os.Stat(target)
	if err != nil {
		return packageMissing
	}
	if info.Size() != pkg.PackageSize {
		return packageMissing
	}
	if pkg.Checksum == "" {
		return packageSkip
	}
	digest, err := hashutil.DigestFile(target, pkg.ChecksumType)
	if err != nil {
		return packageMissing
	}
	if digest != pkg.Checksum {
		return packageCorrupted
	}
	return packageSkip
}

func shaFile(path string) (string, error) {
	return hashutil.SHA256File(path)
}
