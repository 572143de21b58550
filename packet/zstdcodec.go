package packet

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstd's stateless EncodeAll/DecodeAll calls are documented as safe for
// concurrent use, so a single encoder/decoder pair is shared by every
// Assembler in the process rather than pooled per call (SPEC_FULL.md §8's
// additive zstd option).
var (
	zstdEncOnce sync.Once
	zstdEnc     *zstd.Encoder

	zstdDecOnce sync.Once
	zstdDec     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	zstdEncOnce.Do(func() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			panic(err) // nil options; NewWriter only fails on invalid options
		}
		zstdEnc = enc
	})

	return zstdEnc
}

func zstdDecoder() *zstd.Decoder {
	zstdDecOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(err)
		}
		zstdDec = dec
	})

	return zstdDec
}

func zstdCompress(payload []byte) []byte {
	return zstdEncoder().EncodeAll(payload, nil)
}

func zstdDecompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	return zstdDecoder().DecodeAll(compressed, make([]byte, 0, uncompressedSize))
}
