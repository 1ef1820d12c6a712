// Package contentcache implements the cross-repository dedup cache: an
// index of locally-held package files keyed by size, backed by a bounded
// digest memo, so the sync engine can satisfy a download by copying an
// identical file already on disk instead of refetching it from upstream.
package contentcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rpmvault/rpmvault/internal/hashutil"
)

const defaultDigestCacheSize = 100_000

// Cache indexes files by size and memoizes their checksums on demand. A
// file's size is a near-free, always-available first filter: two files of
// different size can never collide for any repository checksum type in
// use, so a new download only needs its digest computed against the
// (typically small) set of locally-held files of the exact same size.
type Cache struct {
	mu     sync.Mutex
	bySize map[int64][]string

	digests *lru.Cache[digestKey, digestEntry]
}

type digestKey struct {
	checksumType string
	path         string
}

type digestEntry struct {
	size int64
	hex  string
}

// New builds an empty Cache. maxDigests bounds the number of memoized
// digests retained; least-recently-used entries are evicted once it is
// exceeded.
func New(maxDigests int) (*Cache, error) {
	if maxDigests <= 0 {
		maxDigests = defaultDigestCacheSize
	}
	digests, err := lru.New[digestKey, digestEntry](maxDigests)
	if err != nil {
		return nil, fmt.Errorf("creating digest cache: %w", err)
	}
	return &Cache{
		bySize:  make(map[int64][]string),
		digests: digests,
	}, nil
}

// IndexDirectory walks root and registers every *.rpm file it finds by
// size. Missing directories are not an error; the cache simply stays
// empty for that root.
func (c *Cache) IndexDirectory(root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(info.Name()), ".rpm") {
			c.RegisterFile(path, info.Size())
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("indexing %s: %w", root, err)
	}
	return nil
}

// RegisterFile adds path to the size index. It is safe to register the
// same path more than once; duplicates are not created.
func (c *Cache) RegisterFile(path string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.bySize[size] {
		if existing == path {
			return
		}
	}
	c.bySize[size] = append(c.bySize[size], path)
}

// FindMatch looks for a locally-held file of the given size whose digest
// (under checksumType) equals checksum, returning its path. Candidates
// that no longer exist or whose size has changed since indexing are
// skipped and their memoized digests dropped; they stay in the size index.
func (c *Cache) FindMatch(size int64, checksumType, checksum string) (string, bool) {
	for _, candidate := range c.candidatesForSize(size) {
		digest, err := c.digestFor(candidate, size, checksumType)
		if err != nil {
			continue
		}
		if strings.EqualFold(digest, checksum) {
			return candidate, true
		}
	}
	return "", false
}

func (c *Cache) candidatesForSize(size int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.bySize[size]))
	copy(out, c.bySize[size])
	return out
}

func (c *Cache) digestFor(path string, size int64, checksumType string) (string, error) {
	key := digestKey{checksumType: checksumType, path: path}

	info, err := os.Stat(path)
	if err != nil {
		c.digests.Remove(key)
		return "", err
	}
	if info.Size() != size {
		c.digests.Remove(key)
		return "", fmt.Errorf("%s changed size since indexing", path)
	}

	if entry, ok := c.digests.Get(key); ok && entry.size == size {
		return entry.hex, nil
	}

	digest, err := hashutil.DigestFile(path, checksumType)
	if err != nil {
		return "", err
	}
	c.digests.Add(key, digestEntry{size: size, hex: digest})
	return digest, nil
}
