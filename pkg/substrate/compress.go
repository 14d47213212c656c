package substrate

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Entry payload codecs. Stored alongside each entry; changing the
// values breaks existing databases.
const (
	codecNone uint8 = 0
	codecZstd uint8 = 1
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("substrate: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("substrate: zstd decoder initialization failed: " + err.Error())
	}
}

// storedEntry is the on-disk form of an entry. Size is the length of
// the uncompressed CBOR payload.
type storedEntry struct {
	EntryType string `cbor:"t"`
	Codec     uint8  `cbor:"c"`
	Size      int    `cbor:"s"`
	Data      []byte `cbor:"d"`
}

// packEntry compresses payloads at or above threshold when that makes
// them smaller. A threshold of zero disables compression.
func packEntry(entryType string, payload []byte, threshold int) storedEntry {
	stored := storedEntry{EntryType: entryType, Codec: codecNone, Size: len(payload), Data: payload}
	if threshold <= 0 || len(payload) < threshold {
		return stored
	}
	compressed := zstdEncoder.EncodeAll(payload, nil)
	if len(compressed) >= len(payload) {
		return stored
	}
	stored.Codec = codecZstd
	stored.Data = compressed
	return stored
}

func (s storedEntry) payload() ([]byte, error) {
	switch s.Codec {
	case codecNone:
		return s.Data, nil
	case codecZstd:
		out, err := zstdDecoder.DecodeAll(s.Data, make([]byte, 0, s.Size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != s.Size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), s.Size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown entry codec %d", s.Codec)
	}
}
