package rpmmeta

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Package is one <package type="rpm"> entry from primary.xml, carrying
// both the fields the sync engine needs (location, size, checksum) and the
// descriptive fields the fallback generator must be able to round-trip.
type Package struct {
	Name    string
	Arch    string
	Epoch   string
	Ver     string
	Rel     string

	ChecksumType string
	Checksum     string

	LocationHref string
	PackageSize  int64

	Summary     string
	Description string
	Packager    string
	URL         string

	FileTime  int64
	BuildTime int64

	InstalledSize int64
	ArchiveSize   int64

	License          string
	Vendor           string
	Group            string
	SourceRPM        string
	BuildHost        string
	HeaderRangeStart int64
	HeaderRangeEnd   int64
}

// primaryXML mirrors the on-wire shape of primary.xml exactly so that
// encoding/xml can decode it; Package above is the ergonomic shape callers
// use. Every field here is optional per spec: missing numeric attributes
// default to 0, missing text elements to "", missing epoch to "0", and a
// missing checksum type to "sha256" — all handled in toPackage.
type primaryXML struct {
	XMLName  xml.Name     `xml:"metadata"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	XmlnsRPM string       `xml:"xmlns:rpm,attr,omitempty"`
	Packages int          `xml:"packages,attr"`
	Package  []packageXML `xml:"package"`
}

type packageXML struct {
	Name        string        `xml:"name"`
	Arch        string        `xml:"arch"`
	Version     versionXML    `xml:"version"`
	Checksum    checksumXML   `xml:"checksum"`
	Summary     string        `xml:"summary"`
	Description string        `xml:"description"`
	Packager    string        `xml:"packager"`
	URL         string        `xml:"url"`
	Time        timeXML       `xml:"time"`
	Size        sizeXML       `xml:"size"`
	Location    Location      `xml:"location"`
	Format      formatXML     `xml:"format"`
}

type versionXML struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type checksumXML struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type timeXML struct {
	File  int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

type sizeXML struct {
	Package   int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type formatXML struct {
	License      string           `xml:"license"`
	Vendor       string           `xml:"vendor"`
	Group        string           `xml:"group"`
	BuildHost    string           `xml:"buildhost"`
	SourceRPM    string           `xml:"sourcerpm"`
	HeaderRange  headerRangeXML   `xml:"header-range"`
}

type headerRangeXML struct {
	Start int64 `xml:"start,attr"`
	End   int64 `xml:"end,attr"`
}

// ParsePrimary decodes primary.xml into a list of Package records, applying
// the defensive defaults spec.md requires for every optional field.
func ParsePrimary(data []byte) ([]Package, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	dec.Strict = false

	var raw primaryXML
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing primary.xml: %w", err)
	}

	pkgs := make([]Package, 0, len(raw.Package))
	for _, p := range raw.Package {
		pkgs = append(pkgs, toPackage(p))
	}
	return pkgs, nil
}

func toPackage(p packageXML) Package {
	epoch := p.Version.Epoch
	if epoch == "" {
		epoch = "0"
	}
	checksumType := p.Checksum.Type
	if checksumType == "" {
		checksumType = "sha256"
	}
	return Package{
		Name:             p.Name,
		Arch:             p.Arch,
		Epoch:            epoch,
		Ver:              p.Version.Ver,
		Rel:              p.Version.Rel,
		ChecksumType:     checksumType,
		Checksum:         p.Checksum.Value,
		LocationHref:     p.Location.Href,
		PackageSize:      p.Size.Package,
		Summary:          p.Summary,
		Description:      p.Description,
		Packager:         p.Packager,
		URL:              p.URL,
		FileTime:         p.Time.File,
		BuildTime:        p.Time.Build,
		InstalledSize:    p.Size.Installed,
		ArchiveSize:      p.Size.Archive,
		License:          p.Format.License,
		Vendor:           p.Format.Vendor,
		Group:            p.Format.Group,
		SourceRPM:        p.Format.SourceRPM,
		BuildHost:        p.Format.BuildHost,
		HeaderRangeStart: p.Format.HeaderRange.Start,
		HeaderRangeEnd:   p.Format.HeaderRange.End,
	}
}
