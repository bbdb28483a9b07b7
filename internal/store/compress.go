package store

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// compress returns the LZ4 block for data, or data itself when it does
// not shrink.
func compress(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return data, false
	}

	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil || n == 0 || n >= len(data) {
		return data, false
	}
	return buf[:n], true
}

// decompress reverses compress. rawSize is the original length.
func decompress(body []byte, rawSize int, compressed bool) ([]byte, error) {
	if !compressed {
		return body, nil
	}

	out := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress document: %w", err)
	}
	if n != rawSize {
		return nil, fmt.Errorf("failed to decompress document: got %d bytes, want %d", n, rawSize)
	}
	return out, nil
}
