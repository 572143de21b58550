// Package lz4stream implements the packet payload compressor of spec.md
// §4.3/§4.4: LZ4 block compression with an optional 64 KiB
// dictionary-priming window that lets STREAM_MODE files carry
// cross-packet back-references, grounded on the teacher's
// compress/lz4.go (pooled lz4.Compressor, adaptive decompress buffer
// sizing).
//
// pierrec/lz4/v4's block API has no first-class dictionary parameter, so
// dictionary priming is done by prepending the last DictSize bytes of the
// previous packet's uncompressed payload to the current payload before
// compression; the decompressor strips the same number of bytes off the
// front of its output, using the packet header's UncompressedSize to know
// exactly how many payload bytes to keep. A packet's PayloadCRC and
// UncompressedSize (section.PacketHeader) always describe the real
// payload, never the dictionary-primed buffer, so packets remain
// independently verifiable.
package lz4stream

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// DictSize is the maximum number of trailing bytes of a packet's
// uncompressed payload carried forward as compression dictionary for the
// next packet in STREAM_MODE (spec.md §4.3).
const DictSize = 64 * 1024

// oneShotThreshold bounds how large a payload may grow before dictionary
// priming is skipped; priming a multi-hundred-KB payload with another 64
// KiB buys negligible ratio improvement for real cost in CPU and a larger
// CompressBlock input, so large packets always compress standalone.
const oneShotThreshold = 128 * 1024

var compressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

// Compressor compresses one packet payload at a time, optionally priming
// each call with the tail of the previous payload. Not safe for
// concurrent use by multiple goroutines.
type Compressor struct {
	dict []byte
}

// NewCompressor returns a Compressor with no carried dictionary.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// Reset drops any carried dictionary, so the next Compress call starts a
// fresh, independently decodable packet. Called at every packet boundary
// outside STREAM_MODE (spec.md §4.2, §6.1).
func (c *Compressor) Reset() {
	c.dict = nil
}

// Compress returns the LZ4 block-compressed form of payload. When a
// dictionary is carried (STREAM_MODE, not the first packet, payload below
// oneShotThreshold), the dictionary bytes are prepended before
// compression and the compressed blob decompresses back to
// dict+payload; UpdateDict must be called with the same payload
// afterward to advance the carried dictionary.
func (c *Compressor) Compress(payload []byte) ([]byte, error) {
	input := payload
	if len(c.dict) > 0 && len(payload) <= oneShotThreshold {
		input = make([]byte, 0, len(c.dict)+len(payload))
		input = append(input, c.dict...)
		input = append(input, payload...)
	}

	dst := make([]byte, lz4.CompressBlockBound(len(input)))

	lc, _ := compressorPool.Get().(*lz4.Compressor)
	defer compressorPool.Put(lc)

	n, err := lc.CompressBlock(input, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input: CompressBlock leaves dst untouched and
		// reports 0; the caller must store the payload verbatim.
		return nil, lz4.ErrInvalidSourceShortBuffer
	}

	return dst[:n], nil
}

// UpdateDict advances the carried dictionary to the trailing DictSize
// bytes of payload (the packet just compressed). When payload is no
// longer than DictSize, the whole payload is carried.
func (c *Compressor) UpdateDict(payload []byte) {
	if len(payload) > DictSize {
		c.dict = append(c.dict[:0], payload[len(payload)-DictSize:]...)
	} else {
		c.dict = append(c.dict[:0], payload...)
	}
}

// Decompress decompresses an LZ4 block previously produced by Compressor,
// given the exact uncompressed payload size recorded in the packet header
// (section.PacketHeader.UncompressedSize). The actual decompressed buffer
// may be larger than uncompressedSize when the compressor primed the
// block with a dictionary; only the trailing uncompressedSize bytes are
// the real payload.
func Decompress(compressed []byte, uncompressedSize int) ([]byte, error) {
	if len(compressed) == 0 {
		return nil, nil
	}

	bufSize := uncompressedSize + DictSize
	if bufSize < uncompressedSize*2 {
		bufSize = uncompressedSize * 2
	}
	if bufSize <= 0 {
		bufSize = 4096
	}
	const maxSize = 128 * 1024 * 1024

	for {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(compressed, buf)
		if err != nil {
			if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) && bufSize < maxSize {
				bufSize *= 2

				continue
			}

			return nil, err
		}

		if n < uncompressedSize {
			return nil, lz4.ErrInvalidSourceShortBuffer
		}

		return buf[n-uncompressedSize : n], nil
	}
}
