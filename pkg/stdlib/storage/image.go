package storage

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// CompressedExt marks program names whose image is stored gzip-compressed.
const CompressedExt = ".gz"

// DefaultExt is appended to program names given without an extension.
const DefaultExt = ".BAS"

// NormalizeName appends DefaultExt to names without an extension. A drive prefix such as
// "LOCAL:" is kept as is.
func NormalizeName(name string) string {
	base := name
	if i := strings.LastIndexByte(base, ':'); i >= 0 {
		base = base[i+1:]
	}
	if path.Ext(base) == "" {
		return name + DefaultExt
	}
	return name
}

// Compressed reports whether the image stored under name is gzip-compressed.
func Compressed(name string) bool {
	return strings.EqualFold(path.Ext(name), CompressedExt)
}

// EncodeImage turns program text into the bytes stored under name.
func EncodeImage(name string, text []byte) ([]byte, error) {
	if !Compressed(name) {
		return append([]byte(nil), text...), nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = path.Base(strings.TrimSuffix(name, path.Ext(name)))
	if _, err := zw.Write(text); err != nil {
		return nil, fmt.Errorf("compress program: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress program: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage returns the program text stored under name. Only names ending in
// CompressedExt are decompressed, so any other image comes back byte for byte.
func DecodeImage(name string, data []byte) ([]byte, error) {
	if !Compressed(name) {
		return append([]byte(nil), data...), nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress program: %w", err)
	}
	defer zr.Close()
	text, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress program: %w", err)
	}
	return text, nil
}
