// Package hashutil provides streaming MD5/SHA-256 digests over files and
// byte strings. It has no state beyond the digest objects and never
// swallows I/O errors.
package hashutil

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// SHA256File returns the lowercase hex SHA-256 digest of the file at path.
func SHA256File(path string) (string, error) {
	return digestFile(path, sha256.New())
}

// MD5File returns the lowercase hex MD5 digest of the file at path.
func MD5File(path string) (string, error) {
	return digestFile(path, md5.New())
}

// DigestFile computes the digest of path using the checksum type named by
// checksumType ("sha256" or "md5"). Unknown types default to sha256, per
// the parser's defensive-default policy.
func DigestFile(path, checksumType string) (string, error) {
	switch checksumType {
	case "md5":
		return MD5File(path)
	default:
		return SHA256File(path)
	}
}

func digestFile(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for digest: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digesting %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Bytes returns the lowercase hex SHA-256 digest of data.
func SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MD5Bytes returns the lowercase hex MD5 digest of data.
func MD5Bytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
