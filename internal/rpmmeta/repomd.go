// Package rpmmeta parses and (for the fallback generator) emits the RPM
// repository metadata format: repomd.xml and primary.xml.
package rpmmeta

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Canonical XML namespaces used by repomd.xml and primary.xml. The parser
// relies on Go's xml.Decoder matching local names regardless of the
// declared prefix, so these constants exist for documentation and for the
// generator, which must emit them verbatim.
const (
	NamespaceRepo   = "http://linux.duke.edu/metadata/repo"
	NamespaceRPM    = "http://linux.duke.edu/metadata/rpm"
	NamespaceCommon = "http://linux.duke.edu/metadata/common"
)

// Repomd is the parsed contents of repomd.xml. Xmlns is read from and
// written back to the root element's xmlns attribute; GenerateMetadata
// sets it to NamespaceRepo so regenerated documents declare the same
// namespace a real repomd.xml does.
type Repomd struct {
	XMLName  xml.Name     `xml:"repomd"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	Revision int64        `xml:"revision"`
	Data     []RepomdData `xml:"data"`
}

// RepomdData is one <data type="..."> entry.
type RepomdData struct {
	Type         string   `xml:"type,attr"`
	Checksum     Checksum `xml:"checksum"`
	OpenChecksum Checksum `xml:"open-checksum"`
	Location     Location `xml:"location"`
	Timestamp    int64    `xml:"timestamp"`
	Size         int64    `xml:"size"`
	OpenSize     int64    `xml:"open-size"`
}

// Checksum is a <checksum type="..."> or <open-checksum type="..."> element.
type Checksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Location is a <location href="..."/> element.
type Location struct {
	Href string `xml:"href,attr"`
}

// ParseRepomd decodes a repomd.xml document.
func ParseRepomd(data []byte) (*Repomd, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	dec.Strict = false

	var r Repomd
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing repomd.xml: %w", err)
	}
	return &r, nil
}

// GetDataHref returns the href of the <data> entry with the given type,
// and whether one was found.
func (r *Repomd) GetDataHref(dataType string) (string, bool) {
	for _, d := range r.Data {
		if d.Type == dataType {
			return d.Location.Href, d.Location.Href != ""
		}
	}
	return "", false
}

// GetData returns the full <data> entry with the given type, and whether
// one was found.
func (r *Repomd) GetData(dataType string) (RepomdData, bool) {
	for _, d := range r.Data {
		if d.Type == dataType {
			return d, true
		}
	}
	return RepomdData{}, false
}
