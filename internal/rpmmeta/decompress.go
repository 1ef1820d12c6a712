package rpmmeta

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Decompress inflates data according to href's file extension: ".gz" is
// gunzipped, ".xz" is un-xz'd, ".zst"/".zstd" is un-zstd'd (an additive
// extension beyond spec.md's gz/xz/identity set, for secondary mirrors
// that publish zstd-compressed metadata), and anything else is returned
// unchanged as already-decompressed ("identity") input. A file whose
// extension promises a format it doesn't actually contain is a parse
// error, not a silent passthrough.
func Decompress(data []byte, href string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(href)) {
	case ".gz":
		return decompressGzip(data)
	case ".xz":
		return decompressXZ(data)
	case ".zst", ".zstd":
		return decompressZstd(data)
	default:
		return data, nil
	}
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading gzip stream: %w", err)
	}
	return out, nil
}

func decompressXZ(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening xz stream: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading xz stream: %w", err)
	}
	return out, nil
}

func decompressZstd(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading zstd stream: %w", err)
	}
	return out, nil
}
