package bcsv

import (
	"os"

	"github.com/bcsv-go/bcsv/endian"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/options"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/packet"
	"github.com/bcsv-go/bcsv/row"
	"github.com/bcsv-go/bcsv/rowcodec"
	"github.com/bcsv-go/bcsv/section"
)

// Writer implements the Created->Open->Writing->Closed state machine of
// spec.md §4.6. A Writer owns a structural lock on its Layout for its
// entire lifetime, so no column may be added/removed/retyped while a file
// is being written.
//
// Grounded on the teacher's blob/numeric_encoder.go encoder lifecycle
// (Setup once, append many, Close releases resources), adapted from that
// encoder's in-memory-blob target to an os.File the Writer appends
// packets to as they're produced, since spec.md's external interface
// (§4.6) is explicitly file-path based rather than blob-based.
type Writer struct {
	f      *os.File
	layout *layout.Layout
	codec  rowcodec.Codec
	cfg    *writerConfig

	asm      *packet.Assembler
	batchAsm *packet.BatchAssembler

	stagingRow *row.Row
	offset     uint64 // next write offset into f
	rowCount   uint64
	index      []section.PacketIndexEntry

	err    error
	closed bool
}

// OpenWriter creates path and prepares it for writing rows conforming to
// l. l is structurally locked for the duration of the Writer's life.
func OpenWriter(path string, l *layout.Layout, opts ...WriterOption) (*Writer, error) {
	if path == "" {
		return nil, errs.ErrEmptyPath
	}
	if l.ColumnCount() == 0 {
		return nil, errs.ErrEmptyLayout
	}

	cfg := defaultWriterConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !cfg.overwrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errs.ErrFileExists
		}

		return nil, err
	}

	codec, err := rowcodec.New(cfg.rowCodec)
	if err != nil {
		f.Close()

		return nil, err
	}
	if err := codec.Setup(l); err != nil {
		f.Close()

		return nil, err
	}

	header := section.NewFileHeader(l, cfg.rowCodec, cfg.flags, cfg.compressionLevel, cfg.blockSizeKB)
	headerBytes := header.Bytes(engine)
	if _, err := f.Write(headerBytes); err != nil {
		codec.Close()
		f.Close()

		return nil, err
	}

	compression := cfg.flags.Compression(cfg.compressionLevel)
	streamMode := cfg.flags.Has(format.FlagStreamMode)

	w := &Writer{
		f:          f,
		layout:     l,
		codec:      codec,
		cfg:        cfg,
		stagingRow: row.New(l),
		offset:     uint64(len(headerBytes)),
	}

	if cfg.batchCompress {
		batchAsm, err := packet.NewBatchAssembler(l, codec, cfg.blockSizeKB, compression, streamMode)
		if err != nil {
			codec.Close()
			f.Close()

			return nil, err
		}
		w.batchAsm = batchAsm
	} else {
		asm, err := packet.NewAssembler(l, codec, cfg.blockSizeKB, compression, streamMode)
		if err != nil {
			codec.Close()
			f.Close()

			return nil, err
		}
		w.asm = asm
	}

	return w, nil
}

// Row returns the Writer's reusable staging row. Callers set values on it
// and call WriteRow to encode it, or construct their own *row.Row and pass
// it to Write.
func (w *Writer) Row() *row.Row {
	return w.stagingRow
}

// WriteRow encodes the staging row returned by Row and clears it for
// reuse.
func (w *Writer) WriteRow() error {
	if err := w.Write(w.stagingRow); err != nil {
		return err
	}
	w.stagingRow.Clear()

	return nil
}

// Write encodes r. Any I/O or codec error transitions the Writer to
// Closed; subsequent calls return the stored terminal error (spec.md
// §4.6).
func (w *Writer) Write(r *row.Row) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	var pkt *packet.Packet
	var err error
	if w.batchAsm != nil {
		err = w.batchAsm.AddRow(r)
	} else {
		pkt, err = w.asm.AddRow(r)
	}
	if err != nil {
		return w.fail(err)
	}

	w.rowCount++

	if pkt != nil {
		if err := w.writePacket(pkt); err != nil {
			return w.fail(err)
		}
	}
	if w.batchAsm != nil {
		if err := w.drainBatch(); err != nil {
			return w.fail(err)
		}
	}

	return nil
}

func (w *Writer) drainBatch() error {
	ready, err := w.batchAsm.TakeReady()
	if err != nil {
		return err
	}
	for _, pkt := range ready {
		if err := w.writePacket(pkt); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) writePacket(pkt *packet.Packet) error {
	headerBytes := pkt.Header.Bytes(engine)
	entry := packet.ToIndexEntry(pkt, w.offset)

	if _, err := w.f.Write(headerBytes); err != nil {
		return err
	}
	if _, err := w.f.Write(pkt.Payload); err != nil {
		return err
	}

	w.offset += uint64(len(headerBytes) + len(pkt.Payload))
	w.index = append(w.index, entry)

	return nil
}

// Flush forces the current in-progress packet to close and be written,
// without ending the Writer. Safe to call at any point (spec.md §4.6).
func (w *Writer) Flush() error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	if w.batchAsm != nil {
		ready, err := w.batchAsm.Flush()
		if err != nil {
			return w.fail(err)
		}
		for _, pkt := range ready {
			if err := w.writePacket(pkt); err != nil {
				return w.fail(err)
			}
		}

		return nil
	}

	pkt, err := w.asm.Flush()
	if err != nil {
		return w.fail(err)
	}
	if pkt != nil {
		if err := w.writePacket(pkt); err != nil {
			return w.fail(err)
		}
	}

	return nil
}

// Close flushes any remaining buffered rows, writes the footer index
// (unless STREAM_MODE or NO_FILE_INDEX is set), releases the structural
// lock, and closes the underlying file. Safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}

	flushErr := w.flushFinal()
	footerErr := w.writeFooter()

	if w.asm != nil {
		w.asm.Close()
	}
	w.codec.Close()
	closeErr := w.f.Close()
	w.closed = true

	for _, e := range []error{flushErr, footerErr, closeErr} {
		if e != nil {
			if w.err == nil {
				w.err = e
			}

			return w.err
		}
	}

	return w.err
}

func (w *Writer) flushFinal() error {
	if w.batchAsm != nil {
		packets, err := w.batchAsm.Close()
		if err != nil {
			return err
		}
		for _, pkt := range packets {
			if err := w.writePacket(pkt); err != nil {
				return err
			}
		}

		return nil
	}

	pkt, err := w.asm.Flush()
	if err != nil {
		return err
	}
	if pkt != nil {
		return w.writePacket(pkt)
	}

	return nil
}

func (w *Writer) writeFooter() error {
	if w.cfg.flags.Has(format.FlagStreamMode) || w.cfg.flags.Has(format.FlagNoFileIndex) {
		return nil
	}

	footer := &section.Footer{Entries: w.index}
	footerBytes := footer.Bytes(engine, w.offset)
	_, err := w.f.Write(footerBytes)

	return err
}

// RowCount returns the number of rows written so far.
func (w *Writer) RowCount() uint64 {
	return w.rowCount
}

// Err returns the terminal error that closed the Writer, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) checkOpen() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errs.ErrClosed
	}

	return nil
}

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	w.closed = true
	if w.batchAsm != nil {
		w.batchAsm.Close() // stop the worker goroutine; ignore its result
	}
	if w.asm != nil {
		w.asm.Close()
	}
	w.codec.Close()
	w.f.Close()

	return err
}

var engine = endian.GetLittleEndianEngine()
