// Package zstdcompress compresses request bodies exchanged between the
// client and the reference server.
package zstdcompress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encoding is the Content-Encoding value for zstd bodies.
const Encoding = "zstd"

// MaxDecodedSize bounds the size of a decompressed body.
const MaxDecodedSize = 32 << 20

var encoder, _ = zstd.NewWriter(nil)

var decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))

// Compress a buffer.
func Compress(src []byte) []byte {
	return encoder.EncodeAll(src, make([]byte, 0, len(src)))
}

// Decompress a buffer produced by Compress.
func Decompress(src []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
