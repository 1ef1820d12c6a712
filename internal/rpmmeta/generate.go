package rpmmeta

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rpmvault/rpmvault/internal/hashutil"
	"github.com/rpmvault/rpmvault/internal/safety"
)

// knownArches lists the package architectures a filename's final dash
// segment can resolve to; anything else is assumed to be part of the
// release and the architecture defaults to x86_64.
var knownArches = map[string]bool{
	"x86_64":  true,
	"noarch":  true,
	"i686":    true,
	"i386":    true,
	"aarch64": true,
	"ppc64le": true,
	"s390x":   true,
}

// ParseRPMFilename splits an RPM filename of the form
// name-version-release.arch.rpm into its components, stripping a trailing
// known-arch segment first and then splitting the remainder on '-'. Real
// RPM filenames carry no strict grammar, so fewer than three remaining
// segments falls back to version="0", release="0" rather than erroring.
func ParseRPMFilename(filename string) (name, version, release, arch string) {
	base := strings.TrimSuffix(filepath.Base(filename), ".rpm")

	arch = "x86_64"
	nvr := base
	if archSep := strings.LastIndex(base, "."); archSep != -1 {
		if candidate := base[archSep+1:]; knownArches[candidate] {
			arch = candidate
			nvr = base[:archSep]
		}
	}

	parts := strings.Split(nvr, "-")
	if len(parts) < 3 {
		return nvr, "0", "0", arch
	}
	release = parts[len(parts)-1]
	version = parts[len(parts)-2]
	name = strings.Join(parts[:len(parts)-2], "-")
	return name, version, release, arch
}

// EnsureMetadata verifies that repoDir has a parseable repomd.xml with at
// least one <data> entry and that every file it references exists on disk;
// it does not check that one of those entries is of type primary. If that
// isn't the case —
// missing, unparseable, or dangling — the upstream-supplied metadata is
// abandoned in favor of a rebuilt minimal repodata directory scanned from
// the *.rpm files present, per the fallback-generator contract. Upstream
// metadata is always preferred when it validates. The returned bool
// reports whether regeneration actually ran.
func EnsureMetadata(repoDir string) (bool, error) {
	if metadataIsValid(repoDir) {
		return false, nil
	}
	return true, GenerateMetadata(repoDir)
}

func metadataIsValid(repoDir string) bool {
	repomdPath := filepath.Join(repoDir, "repodata", "repomd.xml")
	data, err := os.ReadFile(repomdPath)
	if err != nil {
		return false
	}
	repomd, err := ParseRepomd(data)
	if err != nil {
		return false
	}
	if len(repomd.Data) == 0 {
		return false
	}
	for _, d := range repomd.Data {
		if d.Location.Href == "" {
			return false
		}
		target, err := safety.SafeJoinUnder(repoDir, d.Location.Href)
		if err != nil {
			return false
		}
		if _, err := os.Stat(target); err != nil {
			return false
		}
	}
	return true
}

const headerRangeEndCap = 65536

// GenerateMetadata scans repoDir for *.rpm files outside repodata/ and
// writes a fresh repodata/primary.xml.gz and repodata/repomd.xml
// describing them, per the fallback generator's known limitations:
// summary/description default to the package name, license is
// "Unknown", the remaining descriptive text fields are "Unspecified" or
// empty, times come from the file's mtime, and header-range is a
// placeholder. It omits filelists and other entirely.
func GenerateMetadata(repoDir string) error {
	rpmPaths, err := findRPMs(repoDir)
	if err != nil {
		return fmt.Errorf("scanning %s for rpms: %w", repoDir, err)
	}

	pkgs := make([]Package, 0, len(rpmPaths))
	for _, path := range rpmPaths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		digest, err := hashutil.SHA256File(path)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", path, err)
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		name, version, release, arch := ParseRPMFilename(path)

		headerEnd := info.Size()
		if headerEnd > headerRangeEndCap {
			headerEnd = headerRangeEndCap
		}
		mtime := info.ModTime().Unix()

		pkgs = append(pkgs, Package{
			Name:             name,
			Arch:             arch,
			Epoch:            "0",
			Ver:              version,
			Rel:              release,
			ChecksumType:     "sha256",
			Checksum:         digest,
			LocationHref:     filepath.ToSlash(rel),
			PackageSize:      info.Size(),
			Summary:          name,
			Description:      name,
			License:          "Unknown",
			Group:            "Unspecified",
			FileTime:         mtime,
			BuildTime:        mtime,
			InstalledSize:    info.Size(),
			ArchiveSize:      info.Size(),
			HeaderRangeStart: 0,
			HeaderRangeEnd:   headerEnd,
		})
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	primaryXMLBytes, err := marshalPrimary(pkgs)
	if err != nil {
		return fmt.Errorf("marshaling primary.xml: %w", err)
	}

	repodataDir := filepath.Join(repoDir, "repodata")
	if err := os.MkdirAll(repodataDir, 0o755); err != nil {
		return fmt.Errorf("creating repodata dir: %w", err)
	}

	gzBytes, err := gzipBytesMax(primaryXMLBytes)
	if err != nil {
		return fmt.Errorf("gzipping primary.xml: %w", err)
	}
	primaryGzPath := filepath.Join(repodataDir, "primary.xml.gz")
	if err := os.WriteFile(primaryGzPath, gzBytes, 0o644); err != nil {
		return fmt.Errorf("writing primary.xml.gz: %w", err)
	}

	openDigest := hashutil.SHA256Bytes(primaryXMLBytes)
	gzDigest := hashutil.SHA256Bytes(gzBytes)

	repomd := buildRepomd(openDigest, gzDigest, int64(len(primaryXMLBytes)), int64(len(gzBytes)))
	repomdBytes, err := xml.MarshalIndent(repomd, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling repomd.xml: %w", err)
	}
	repomdBytes = append([]byte(xml.Header), repomdBytes...)

	if err := os.WriteFile(filepath.Join(repodataDir, "repomd.xml"), repomdBytes, 0o644); err != nil {
		return fmt.Errorf("writing repomd.xml: %w", err)
	}
	return nil
}

func findRPMs(repoDir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(repoDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "repodata" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(info.Name()), ".rpm") {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func gzipBytesMax(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalPrimary(pkgs []Package) ([]byte, error) {
	raw := primaryXML{
		Xmlns:    NamespaceCommon,
		XmlnsRPM: NamespaceRPM,
		Packages: len(pkgs),
	}
	for _, p := range pkgs {
		raw.Package = append(raw.Package, packageXML{
			Name:    p.Name,
			Arch:    p.Arch,
			Version: versionXML{Epoch: p.Epoch, Ver: p.Ver, Rel: p.Rel},
			Checksum: checksumXML{
				Type:  p.ChecksumType,
				Pkgid: "YES",
				Value: p.Checksum,
			},
			Summary:     p.Summary,
			Description: p.Description,
			Packager:    p.Packager,
			URL:         p.URL,
			Time:        timeXML{File: p.FileTime, Build: p.BuildTime},
			Size:        sizeXML{Package: p.PackageSize, Installed: p.InstalledSize, Archive: p.ArchiveSize},
			Location:    Location{Href: p.LocationHref},
			Format: formatXML{
				License:     p.License,
				Vendor:      p.Vendor,
				Group:       p.Group,
				BuildHost:   p.BuildHost,
				SourceRPM:   p.SourceRPM,
				HeaderRange: headerRangeXML{Start: p.HeaderRangeStart, End: p.HeaderRangeEnd},
			},
		})
	}
	body, err := xml.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func currentRevision() int64 {
	return time.Now().Unix()
}

func buildRepomd(primaryDigest, gzDigest string, openSize, size int64) Repomd {
	return Repomd{
		Xmlns:    NamespaceRepo,
		Revision: currentRevision(),
		Data: []RepomdData{
			{
				Type:         "primary",
				Checksum:     Checksum{Type: "sha256", Value: gzDigest},
				OpenChecksum: Checksum{Type: "sha256", Value: primaryDigest},
				Location:     Location{Href: "repodata/primary.xml.gz"},
				Size:         size,
				OpenSize:     openSize,
			},
		},
	}
}
