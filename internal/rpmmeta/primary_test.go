package rpmmeta

import "testing"

const samplePrimary = `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="2">
  <package type="rpm">
    <name>bash</name>
    <arch>x86_64</arch>
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <checksum type="sha256" pkgid="YES">abc123</checksum>
    <summary>The GNU Bourne Again shell</summary>
    <description>Bash is the shell.</description>
    <packager>CentOS</packager>
    <url>https://www.gnu.org/software/bash</url>
    <time file="1700000000" build="1699999999"/>
    <size package="1234567" installed="2345678" archive="3456789"/>
    <location href="Packages/b/bash-5.1.8-6.el9.x86_64.rpm"/>
    <format>
      <rpm:license>GPLv3+</rpm:license>
      <rpm:vendor>CentOS</rpm:vendor>
      <rpm:group>System Environment/Shells</rpm:group>
      <rpm:buildhost>build.centos.org</rpm:buildhost>
      <rpm:sourcerpm>bash-5.1.8-6.el9.src.rpm</rpm:sourcerpm>
      <rpm:header-range start="280" end="16000"/>
    </format>
  </package>
  <package type="rpm">
    <name>minimal-pkg</name>
    <arch>noarch</arch>
    <version ver="1.0" rel="1"/>
    <checksum pkgid="YES">def456</checksum>
    <location href="Packages/m/minimal-pkg-1.0-1.noarch.rpm"/>
  </package>
</metadata>`

func TestParsePrimary(t *testing.T) {
	pkgs, err := ParsePrimary([]byte(samplePrimary))
	if err != nil {
		t.Fatalf("ParsePrimary returned error: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2", len(pkgs))
	}

	bash := pkgs[0]
	if bash.Name != "bash" || bash.Arch != "x86_64" {
		t.Errorf("unexpected name/arch: %+v", bash)
	}
	if bash.Epoch != "0" || bash.Ver != "5.1.8" || bash.Rel != "6.el9" {
		t.Errorf("unexpected version fields: %+v", bash)
	}
	if bash.ChecksumType != "sha256" || bash.Checksum != "abc123" {
		t.Errorf("unexpected checksum: %+v", bash)
	}
	if bash.LocationHref != "Packages/b/bash-5.1.8-6.el9.x86_64.rpm" {
		t.Errorf("unexpected location: %q", bash.LocationHref)
	}
	if bash.PackageSize != 1234567 || bash.InstalledSize != 2345678 || bash.ArchiveSize != 3456789 {
		t.Errorf("unexpected sizes: %+v", bash)
	}
	if bash.License != "GPLv3+" || bash.SourceRPM != "bash-5.1.8-6.el9.src.rpm" {
		t.Errorf("unexpected format fields: %+v", bash)
	}
	if bash.HeaderRangeStart != 280 || bash.HeaderRangeEnd != 16000 {
		t.Errorf("unexpected header range: %+v", bash)
	}

	minimal := pkgs[1]
	if minimal.Epoch != "0" {
		t.Errorf("missing epoch should default to 0, got %q", minimal.Epoch)
	}
	if minimal.ChecksumType != "sha256" {
		t.Errorf("missing checksum type should default to sha256, got %q", minimal.ChecksumType)
	}
	if minimal.Summary != "" || minimal.License != "" {
		t.Errorf("missing text fields should default to empty string: %+v", minimal)
	}
	if minimal.PackageSize != 0 || minimal.HeaderRangeStart != 0 {
		t.Errorf("missing numeric fields should default to 0: %+v", minimal)
	}
}

func TestParsePrimaryInvalidXML(t *testing.T) {
	if _, err := ParsePrimary([]byte("not xml at all <<<")); err == nil {
		t.Fatal("expected error for malformed input")
	}
}
