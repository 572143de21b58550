package bcsv

import (
	"os"
	"sort"

	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/options"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/packet"
	"github.com/bcsv-go/bcsv/row"
	"github.com/bcsv-go/bcsv/rowcodec"
	"github.com/bcsv-go/bcsv/section"
)

// DirectReader implements the random-access reader of spec.md §4.8: it
// parses the trailing footer index once at open time and thereafter
// decodes only the packet a given row index falls inside, caching the
// single most recently decoded packet so sequential ReadAt(i), ReadAt(i+1)
// access (the common scan pattern) avoids repeated decompression.
//
// ZoH/Delta rows cannot be decoded out of order — each depends on the
// codec's running "previous row" state — so loadPacket decodes every row
// of the target packet once, in order, and caches the fully materialized
// rows rather than byte offsets into the packet payload.
//
// Grounded on the same blob/numeric_decoder.go lineage as Reader, with
// the index-seek behavior modeled on the teacher's
// section.NumericIndexEntry random-access helpers generalized from a
// single in-memory blob to a footer read from the tail of a file.
type DirectReader struct {
	f      *os.File
	layout *layout.Layout
	codec  rowcodec.Codec
	header *section.FileHeader

	index []section.PacketIndexEntry

	cachedPacketIdx int // index into d.index of the cached decoded packet, or -1
	cachedRows      []*row.Row

	closed bool
}

// OpenDirectReader opens path and parses its footer index. Returns
// errs.ErrFooterMissing if the file was written with STREAM_MODE or
// NO_FILE_INDEX (no footer to parse).
func OpenDirectReader(path string, opts ...ReaderOption) (*DirectReader, error) {
	cfg := defaultReaderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrFileNotFound
		}

		return nil, err
	}

	header, _, err := readFileHeader(f)
	if err != nil {
		f.Close()

		return nil, err
	}
	if header.Flags.Has(format.FlagStreamMode) || header.Flags.Has(format.FlagNoFileIndex) {
		f.Close()

		return nil, errs.ErrFooterMissing
	}

	fileLayout, err := header.ToLayout()
	if err != nil {
		f.Close()

		return nil, err
	}
	if cfg.expected != nil {
		if err := fileLayout.WireCompatible(cfg.expected, cfg.strict); err != nil && cfg.strict {
			f.Close()

			return nil, err
		}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, err
	}
	size := fi.Size()
	if size < section.FooterTrailerSize {
		f.Close()

		return nil, errs.ErrFooterMissing
	}

	tail := make([]byte, section.FooterTrailerSize)
	if _, err := f.ReadAt(tail, size-section.FooterTrailerSize); err != nil {
		f.Close()

		return nil, errs.ErrFooterMissing
	}
	indexOffset, err := section.ReadIndexOffset(tail, engine)
	if err != nil {
		f.Close()

		return nil, errs.ErrFooterMissing
	}
	if int64(indexOffset) < 0 || int64(indexOffset) > size-section.FooterTrailerSize {
		f.Close()

		return nil, errs.ErrFooterMissing
	}

	footerBody := make([]byte, size-section.FooterTrailerSize-int64(indexOffset))
	if _, err := f.ReadAt(footerBody, int64(indexOffset)); err != nil {
		f.Close()

		return nil, errs.ErrFooterMissing
	}
	footer, err := section.ParseFooter(footerBody, engine)
	if err != nil {
		f.Close()

		return nil, errs.ErrFooterMissing
	}

	codec, err := rowcodec.New(header.RowCodec())
	if err != nil {
		f.Close()

		return nil, err
	}
	if err := codec.Setup(fileLayout); err != nil {
		f.Close()

		return nil, err
	}

	return &DirectReader{
		f:               f,
		layout:          fileLayout,
		codec:           codec,
		header:          header,
		index:           footer.Entries,
		cachedPacketIdx: -1,
	}, nil
}

// Layout returns the Layout reconstructed from the file header.
func (d *DirectReader) Layout() *layout.Layout {
	return d.layout
}

// RowCount returns the total number of rows recorded in the footer index.
func (d *DirectReader) RowCount() uint64 {
	var total uint64
	for _, e := range d.index {
		total += uint64(e.RowCount)
	}

	return total
}

// ReadAt decodes and returns row i (0-based, file-wide). The returned Row
// is owned by d's packet cache; callers that need to retain it past the
// next ReadAt call should copy it with row.Row.CopyFrom.
func (d *DirectReader) ReadAt(i uint64) (*row.Row, error) {
	if d.closed {
		return nil, errs.ErrClosed
	}

	pktIdx, ok := d.findPacket(i)
	if !ok {
		return nil, errs.ErrRowOutOfRange
	}

	if pktIdx != d.cachedPacketIdx {
		if err := d.loadPacket(pktIdx); err != nil {
			return nil, err
		}
	}

	entry := d.index[pktIdx]
	localIdx := int(i - uint64(entry.FirstRowNumber))
	if localIdx < 0 || localIdx >= len(d.cachedRows) {
		return nil, errs.ErrRowOutOfRange
	}

	return d.cachedRows[localIdx], nil
}

// findPacket binary-searches the index for the packet containing row i.
func (d *DirectReader) findPacket(i uint64) (int, bool) {
	n := len(d.index)
	idx := sort.Search(n, func(k int) bool {
		e := d.index[k]

		return uint64(e.FirstRowNumber)+uint64(e.RowCount) > i
	})
	if idx >= n {
		return 0, false
	}
	e := d.index[idx]
	if i < uint64(e.FirstRowNumber) || i >= uint64(e.FirstRowNumber)+uint64(e.RowCount) {
		return 0, false
	}

	return idx, true
}

// loadPacket reads, decompresses, and fully decodes every row of packet
// pktIdx in order, caching the materialized rows so ReadAt can index them
// directly. The codec is Reset before and after, since every packet
// outside STREAM_MODE starts with a full snapshot row (spec.md §4.2) and
// must not leak state into whatever packet is decoded next.
func (d *DirectReader) loadPacket(pktIdx int) error {
	entry := d.index[pktIdx]

	hdrBuf := make([]byte, section.PacketHeaderSize)
	if _, err := d.f.ReadAt(hdrBuf, int64(entry.Offset)); err != nil {
		return errs.ErrShortRead
	}
	pktHeader, err := section.ParsePacketHeader(hdrBuf, engine)
	if err != nil {
		return err
	}

	payloadBuf := make([]byte, pktHeader.CompressedSize)
	if _, err := d.f.ReadAt(payloadBuf, int64(entry.Offset)+int64(section.PacketHeaderSize)); err != nil {
		return errs.ErrShortRead
	}

	uncompressed, err := packet.DecodePayload(packet.Packet{Header: pktHeader, Payload: payloadBuf}, d.header.Compression())
	if err != nil {
		return err
	}

	d.codec.Reset()

	rows := make([]*row.Row, 0, pktHeader.RowCount)
	pos := 0
	for uint32(len(rows)) < pktHeader.RowCount {
		r := row.New(d.layout)
		n, err := d.codec.Decode(uncompressed[pos:], r)
		if err != nil {
			d.codec.Reset()

			return err
		}
		pos += n
		rows = append(rows, r)
	}

	d.codec.Reset()

	d.cachedPacketIdx = pktIdx
	d.cachedRows = rows

	return nil
}

// Close closes the underlying file and releases the structural lock. Safe
// to call more than once.
func (d *DirectReader) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.codec.Close()

	return d.f.Close()
}
