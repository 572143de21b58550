// Package packet implements the row-buffering packet assembler of
// spec.md §4.4 (accumulate encoded rows, flush at the block-size cap,
// checksum, compress, frame) and the batch pipeline of §4.5 (double
// buffer plus a single background worker overlapping compression with
// the caller's next packet).
package packet

import (
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/pool"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/lz4stream"
	"github.com/bcsv-go/bcsv/row"
	"github.com/bcsv-go/bcsv/rowcodec"
	"github.com/bcsv-go/bcsv/section"
)

// bufPool recycles the row-accumulation buffer every Assembler/
// BatchAssembler keeps for its in-progress packet, grounded on the
// teacher's blob/numeric_encoder.go use of a pooled working buffer across
// encoder instances.
var bufPool = pool.NewByteBufferPool(pool.BlobBufferDefaultSize, pool.BlobBufferMaxThreshold)

// Packet is one fully framed, ready-to-write packet: its header and the
// payload bytes that follow it on disk (compressed, or the raw row
// payload when compression is off or the data proved incompressible).
type Packet struct {
	Header  section.PacketHeader
	Payload []byte
}

// Assembler buffers encoded rows for a single BCSV file and flushes them
// into Packets once the accumulated payload would exceed BlockSize.
// Not safe for concurrent use; see BatchAssembler for the overlapped
// pipeline spec.md §4.5 describes.
type Assembler struct {
	layout      *layout.Layout
	codec       rowcodec.Codec
	compression format.CompressionType
	streamMode  bool
	blockSize   int

	bb             *pool.ByteBuffer
	rowCount       uint32
	firstRowNumber uint32
	nextRowNumber  uint32

	lz4c *lz4stream.Compressor
}

// NewAssembler returns an Assembler for layout, encoding rows with codec
// (already Setup against layout) and flushing packets no larger than
// blockSizeKB KiB of uncompressed payload.
func NewAssembler(l *layout.Layout, codec rowcodec.Codec, blockSizeKB uint16, compression format.CompressionType, streamMode bool) (*Assembler, error) {
	if blockSizeKB == 0 {
		return nil, errs.ErrInvalidBlockSize
	}

	return &Assembler{
		layout:      l,
		codec:       codec,
		compression: compression,
		streamMode:  streamMode,
		blockSize:   int(blockSizeKB) * 1024,
		bb:          bufPool.Get(),
		lz4c:        lz4stream.NewCompressor(),
	}, nil
}

// Close returns the Assembler's row-accumulation buffer to the shared
// pool. Safe to call more than once.
func (a *Assembler) Close() {
	if a.bb != nil {
		bufPool.Put(a.bb)
		a.bb = nil
	}
}

// AddRow encodes r and appends it to the current packet. If the encoded
// row would overflow the block-size cap, the current packet (if
// non-empty) is flushed first and returned, and r becomes the first row
// of a new packet — a row is never split across two packets.
func (a *Assembler) AddRow(r *row.Row) (*Packet, error) {
	enc, err := a.codec.Encode(nil, r)
	if err != nil {
		return nil, err
	}

	if a.rowCount > 0 && a.bb.Len()+len(enc) > a.blockSize {
		pkt, ferr := a.flush()
		if ferr != nil {
			return nil, ferr
		}

		if !a.streamMode {
			// Outside STREAM_MODE, packets must be independently
			// decodable: drop cross-row state and re-encode r relative to
			// no previous row, as the first row of the fresh packet.
			a.codec.Reset()
			enc, err = a.codec.Encode(nil, r)
			if err != nil {
				return nil, err
			}
		}
		// In STREAM_MODE the codec's cross-row state carries across the
		// packet boundary, so the enc computed above (encoded relative to
		// the true previous row, before the overflow check) is already
		// the correct wire image. Re-encoding r here would encode it
		// relative to itself, since the encode above already advanced
		// prev to r, silently zeroing every delta.

		a.startPacket(enc)

		return pkt, nil
	}

	if a.rowCount == 0 {
		a.startPacket(enc)
	} else {
		a.bb.MustWrite(enc)
		a.rowCount++
		a.nextRowNumber++
	}

	return nil, nil
}

func (a *Assembler) startPacket(enc []byte) {
	a.bb.Reset()
	a.bb.MustWrite(enc)
	a.rowCount = 1
	a.firstRowNumber = a.nextRowNumber
	a.nextRowNumber++
}

// Flush frames and returns the currently buffered packet, or nil if no
// rows are buffered. Callers must invoke Flush at Writer.Close to emit a
// final partial packet (spec.md §4.6).
func (a *Assembler) Flush() (*Packet, error) {
	pkt, err := a.flush()
	if err != nil {
		return nil, err
	}
	if !a.streamMode {
		// The next row starts a new packet, which must not depend on the
		// rows of this one.
		a.codec.Reset()
	}

	return pkt, nil
}

func (a *Assembler) flush() (*Packet, error) {
	if a.rowCount == 0 {
		return nil, nil
	}

	uncompressed := a.bb.Bytes()
	payload, err := a.compressPayload(uncompressed)
	if err != nil {
		return nil, err
	}

	header := section.NewPacketHeader(payload, uncompressed, a.rowCount, a.firstRowNumber)
	pkt := &Packet{Header: header, Payload: payload}

	a.bb.Reset()
	a.rowCount = 0

	if !a.streamMode {
		a.lz4c.Reset()
	}

	return pkt, nil
}

// compressPayload compresses uncompressed per a.compression, falling back
// to storing it verbatim (CompressedSize == UncompressedSize, no codec
// framing) when the algorithm reports the data is incompressible — the
// same "stored block" escape hatch LZ4's own frame format provides.
func (a *Assembler) compressPayload(uncompressed []byte) ([]byte, error) {
	return compressPayload(a.lz4c, a.compression, a.streamMode, uncompressed)
}

// compressPayload is the shared Assembler/BatchAssembler compression
// step; see Assembler.compressPayload.
func compressPayload(lz4c *lz4stream.Compressor, compression format.CompressionType, streamMode bool, uncompressed []byte) ([]byte, error) {
	switch compression {
	case format.CompressionNone:
		return append([]byte(nil), uncompressed...), nil

	case format.CompressionLZ4:
		compressed, err := lz4c.Compress(uncompressed)
		if err != nil {
			return append([]byte(nil), uncompressed...), nil
		}
		if streamMode {
			lz4c.UpdateDict(uncompressed)
		}

		return compressed, nil

	case format.CompressionZstd:
		return zstdCompress(uncompressed), nil

	default:
		return append([]byte(nil), uncompressed...), nil
	}
}

// ToIndexEntry builds the footer index entry for pkt once the caller
// knows the absolute byte offset pkt's header was written at.
func ToIndexEntry(pkt *Packet, offset uint64) section.PacketIndexEntry {
	return section.PacketIndexEntry{
		Offset:         offset,
		FirstRowNumber: pkt.Header.FirstRowNumber,
		RowCount:       pkt.Header.RowCount,
	}
}
