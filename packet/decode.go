package packet

import (
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/lz4stream"
)

// DecodePayload reconstructs and verifies one packet's uncompressed row
// payload from raw (the bytes following its PacketHeader on disk).
// header.CompressedSize == header.UncompressedSize signals a payload
// stored verbatim by Assembler because compression proved counterproductive
// (spec.md §4.4's "stored block" escape hatch); in that case raw is
// returned as-is without invoking the compression codec.
func DecodePayload(pkt Packet, compression format.CompressionType) ([]byte, error) {
	header := pkt.Header
	var uncompressed []byte
	var err error

	switch {
	case header.CompressedSize == header.UncompressedSize:
		uncompressed = pkt.Payload
	case compression == format.CompressionZstd:
		uncompressed, err = zstdDecompress(pkt.Payload, int(header.UncompressedSize))
	default:
		uncompressed, err = lz4stream.Decompress(pkt.Payload, int(header.UncompressedSize))
	}
	if err != nil {
		return nil, err
	}

	if err := header.VerifyPayload(uncompressed); err != nil {
		return nil, err
	}

	return uncompressed, nil
}
