// Package blob turns raw report payloads into content-addressed blobs:
// zstd-compressed bytes keyed by the hash of the compressed form.
package blob

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/mfbot/hofwatch/internal/hash/md5"
)

// DefaultLevel is the zstd compression level used when none is configured.
// Level 3 favors throughput over ratio; reports are small and frequent.
const DefaultLevel = 3

// Blob is a compressed payload together with its content address.
type Blob struct {
	Hash string
	Data []byte
}

// Codec compresses payloads and derives their content address. It is safe
// for concurrent use.
type Codec struct {
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	hasher *md5.Hasher
}

// NewCodec builds a Codec for the given zstd level.
func NewCodec(level int) (*Codec, error) {
	if level <= 0 {
		level = DefaultLevel
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec, hasher: md5.New()}, nil
}

// Encode compresses raw and hashes the compressed bytes. Identical input
// always yields an identical hash, which is what backs dedup.
func (c *Codec) Encode(raw []byte) Blob {
	data := c.enc.EncodeAll(raw, nil)
	return Blob{Hash: c.hasher.Hash(data), Data: data}
}

// Decode decompresses a stored blob back to its raw payload.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress blob: %w", err)
	}
	return raw, nil
}
