package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
)

// CodecLZ4 names the save payload encoding stored next to each blob.
const CodecLZ4 = "lz4"

// Compress encodes data as an LZ4 frame.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress decodes an LZ4 frame produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return buf.Bytes(), nil
}
