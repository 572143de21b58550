package bcsv

import (
	"errors"
	"io"
	"os"

	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/options"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/packet"
	"github.com/bcsv-go/bcsv/row"
	"github.com/bcsv-go/bcsv/rowcodec"
	"github.com/bcsv-go/bcsv/section"
)

// ReaderOption configures OpenReader/OpenDirectReader.
type ReaderOption = options.Option[*readerConfig]

type readerConfig struct {
	expected *layout.Layout
	strict   bool
}

func defaultReaderConfig() *readerConfig {
	return &readerConfig{strict: true}
}

// WithExpectedLayout validates the file's header layout against l before
// opening. Incompatibility rejects the open when strict (the default, via
// WithLooseLayout(false)); when loose it is tolerated and the file's own
// layout is used for decoding (spec.md §4.7's LayoutIncompatible handling).
func WithExpectedLayout(l *layout.Layout) ReaderOption {
	return options.NoError[*readerConfig](func(c *readerConfig) { c.expected = l })
}

// WithLooseLayout controls whether WithExpectedLayout mismatches reject
// the open (strict, default) or are tolerated (loose).
func WithLooseLayout(loose bool) ReaderOption {
	return options.NoError[*readerConfig](func(c *readerConfig) { c.strict = !loose })
}

// Reader sequentially decodes packets written by Writer, one row at a
// time. Not safe for concurrent use.
//
// Grounded on the teacher's blob/numeric_decoder.go decode loop
// (NewNumericDecoder(data) + iterate), adapted from a whole-file-in-memory
// decoder to one that streams packets from an os.File, matching spec.md
// §4.7's file-path based external interface.
type Reader struct {
	f      *os.File
	layout *layout.Layout
	codec  rowcodec.Codec
	header *section.FileHeader

	streamMode bool

	cur      *row.Row
	payload  []byte
	pos      int
	inPacket uint32 // rows decoded from the current packet so far
	pktRows  uint32

	err    error
	closed bool
	eof    bool
}

// OpenReader opens path, validates its BCSV header, and returns a Reader
// positioned at the first row.
func OpenReader(path string, opts ...ReaderOption) (*Reader, error) {
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

	header, headerSize, err := readFileHeader(f)
	if err != nil {
		f.Close()

		return nil, err
	}

	fileLayout, err := header.ToLayout()
	if err != nil {
		f.Close()

		return nil, err
	}
	if cfg.expected != nil {
		if err := fileLayout.WireCompatible(cfg.expected, cfg.strict); err != nil {
			if cfg.strict {
				f.Close()

				return nil, err
			}
		}
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

	if _, err := f.Seek(int64(headerSize), io.SeekStart); err != nil {
		codec.Close()
		f.Close()

		return nil, err
	}

	return &Reader{
		f:          f,
		layout:     fileLayout,
		codec:      codec,
		header:     header,
		streamMode: header.Flags.Has(format.FlagStreamMode),
		cur:        row.New(fileLayout),
	}, nil
}

// Layout returns the Layout reconstructed from the file header.
func (r *Reader) Layout() *layout.Layout {
	return r.layout
}

// Row returns the Reader's internal row, valid until the next ReadNext or
// Close call.
func (r *Reader) Row() *row.Row {
	return r.cur
}

// Err returns the terminal error that stopped iteration, if any; nil on
// clean end-of-file.
func (r *Reader) Err() error {
	return r.err
}

// ReadNext decodes the next row into the row returned by Row, reading and
// decompressing a new packet from the file as needed. Returns false at a
// clean end of file (check Err to distinguish from a read/codec error) or
// once the Reader has been closed or failed.
func (r *Reader) ReadNext() bool {
	if r.closed || r.err != nil || r.eof {
		return false
	}

	for r.inPacket >= r.pktRows {
		if !r.loadNextPacket() {
			return false
		}
	}

	n, err := r.codec.Decode(r.payload[r.pos:], r.cur)
	if err != nil {
		r.fail(err)

		return false
	}
	r.pos += n
	r.inPacket++

	return true
}

// loadNextPacket reads and decodes one packet from the file, returning
// false at clean EOF or on failure (Err distinguishes the two).
func (r *Reader) loadNextPacket() bool {
	hdrBuf := make([]byte, section.PacketHeaderSize)
	n, err := io.ReadFull(r.f, hdrBuf)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			r.eof = true

			return false
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			r.fail(errs.ErrShortRead)

			return false
		}

		r.fail(err)

		return false
	}

	pktHeader, err := section.ParsePacketHeader(hdrBuf, engine)
	if err != nil {
		r.fail(err)

		return false
	}

	payloadBuf := make([]byte, pktHeader.CompressedSize)
	if _, err := io.ReadFull(r.f, payloadBuf); err != nil {
		r.fail(errs.ErrShortRead)

		return false
	}

	uncompressed, err := packet.DecodePayload(packet.Packet{Header: pktHeader, Payload: payloadBuf}, r.header.Compression())
	if err != nil {
		r.fail(err)

		return false
	}

	if !r.streamMode {
		r.codec.Reset()
	}

	r.payload = uncompressed
	r.pos = 0
	r.inPacket = 0
	r.pktRows = pktHeader.RowCount

	return true
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Close releases the structural lock and closes the underlying file. Safe
// to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.codec.Close()

	return r.f.Close()
}

// readFileHeader reads a growing prefix of f until section.ParseFileHeader
// succeeds or the whole file has been tried, since the header's length
// depends on its variable-width column name list.
func readFileHeader(f *os.File) (*section.FileHeader, int, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := fi.Size()

	capBytes := int64(8192)
	for {
		n := capBytes
		if n > size {
			n = size
		}
		buf := make([]byte, n)
		if _, err := f.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, err
		}

		h, consumed, err := section.ParseFileHeader(buf, engine)
		if err == nil {
			return h, consumed, nil
		}
		if !errors.Is(err, errs.ErrShortRead) || n >= size {
			return nil, 0, err
		}
		capBytes *= 2
	}
}
