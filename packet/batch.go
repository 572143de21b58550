package packet

import (
	"sync"

	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/pool"
	"github.com/bcsv-go/bcsv/layout"
	"github.com/bcsv-go/bcsv/lz4stream"
	"github.com/bcsv-go/bcsv/row"
	"github.com/bcsv-go/bcsv/rowcodec"
	"github.com/bcsv-go/bcsv/section"
)

// BatchAssembler has the same row-accumulation contract as Assembler but
// overlaps each packet's compression with the caller encoding the next
// packet's rows: a single background worker goroutine compresses one
// flushed packet while AddRow keeps filling a second buffer, and a
// single-slot job queue applies backpressure if the caller outpaces the
// worker (spec.md §4.5). Packets are produced in submission order (P6:
// batch mode and non-batch mode encode the same row sequence into the
// same sequence of packets), since exactly one worker goroutine drains
// the job queue.
//
// Not safe for concurrent calls to AddRow/TakeReady/Close from multiple
// goroutines; the overlap is strictly between the caller and the single
// internal worker.
type BatchAssembler struct {
	layout      *layout.Layout
	codec       rowcodec.Codec
	compression format.CompressionType
	streamMode  bool
	blockSize   int

	bb             *pool.ByteBuffer
	rowCount       uint32
	firstRowNumber uint32
	nextRowNumber  uint32

	lz4c *lz4stream.Compressor // owned by the worker goroutine only

	jobs chan batchJob

	mu      sync.Mutex
	ready   []*Packet
	err     error
	wg      sync.WaitGroup
	pending sync.WaitGroup // outstanding jobs, for Flush to wait on
}

type batchJob struct {
	uncompressed   []byte
	rowCount       uint32
	firstRowNumber uint32
}

// NewBatchAssembler starts the background worker and returns a ready
// BatchAssembler.
func NewBatchAssembler(l *layout.Layout, codec rowcodec.Codec, blockSizeKB uint16, compression format.CompressionType, streamMode bool) (*BatchAssembler, error) {
	if blockSizeKB == 0 {
		return nil, errs.ErrInvalidBlockSize
	}

	b := &BatchAssembler{
		layout:      l,
		codec:       codec,
		compression: compression,
		streamMode:  streamMode,
		blockSize:   int(blockSizeKB) * 1024,
		bb:          bufPool.Get(),
		lz4c:        lz4stream.NewCompressor(),
		jobs:        make(chan batchJob, 1),
	}

	b.wg.Add(1)
	go b.worker()

	return b, nil
}

func (b *BatchAssembler) worker() {
	defer b.wg.Done()

	for j := range b.jobs {
		payload, err := compressPayload(b.lz4c, b.compression, b.streamMode, j.uncompressed)

		b.mu.Lock()
		if err != nil {
			if b.err == nil {
				b.err = err
			}
		} else {
			header := section.NewPacketHeader(payload, j.uncompressed, j.rowCount, j.firstRowNumber)
			b.ready = append(b.ready, &Packet{Header: header, Payload: payload})
		}
		b.mu.Unlock()
		b.pending.Done()
	}
}

// AddRow encodes r and appends it to the current in-progress packet,
// submitting the previous packet to the worker first if r would overflow
// it. Submission blocks only if the worker hasn't yet dequeued the prior
// flushed packet (the single-slot backpressure point).
func (b *BatchAssembler) AddRow(r *row.Row) error {
	enc, err := b.codec.Encode(nil, r)
	if err != nil {
		return err
	}

	if b.rowCount > 0 && b.bb.Len()+len(enc) > b.blockSize {
		b.submit()

		if !b.streamMode {
			// Outside STREAM_MODE, packets must be independently
			// decodable: drop cross-row state and re-encode r relative to
			// no previous row, as the first row of the fresh packet.
			b.codec.Reset()
			enc, err = b.codec.Encode(nil, r)
			if err != nil {
				return err
			}
		}
		// In STREAM_MODE the codec's cross-row state carries across the
		// packet boundary, so the enc computed above (encoded relative to
		// the true previous row, before the overflow check) is already
		// the correct wire image. Re-encoding r here would encode it
		// relative to itself, since the encode above already advanced
		// prev to r, silently zeroing every delta.

		b.startPacket(enc)

		return nil
	}

	if b.rowCount == 0 {
		b.startPacket(enc)
	} else {
		b.bb.MustWrite(enc)
		b.rowCount++
		b.nextRowNumber++
	}

	return nil
}

func (b *BatchAssembler) startPacket(enc []byte) {
	b.bb.Reset()
	b.bb.MustWrite(enc)
	b.rowCount = 1
	b.firstRowNumber = b.nextRowNumber
	b.nextRowNumber++
}

// submit hands the currently buffered packet to the worker, blocking if
// the job queue's single slot is still occupied.
func (b *BatchAssembler) submit() {
	if b.rowCount == 0 {
		return
	}

	b.pending.Add(1)
	b.jobs <- batchJob{
		uncompressed:   append([]byte(nil), b.bb.Bytes()...),
		rowCount:       b.rowCount,
		firstRowNumber: b.firstRowNumber,
	}
	b.bb.Reset()
	b.rowCount = 0
}

// Flush forces the currently buffered packet to submit for compression and
// blocks until the worker has finished every job submitted so far, without
// stopping the worker goroutine. Safe to call at any point; a subsequent
// AddRow starts a fresh packet.
func (b *BatchAssembler) Flush() ([]*Packet, error) {
	b.submit()
	if !b.streamMode {
		// The next row starts a new packet, which must not depend on the
		// rows of the one just submitted.
		b.codec.Reset()
	}
	b.pending.Wait()

	return b.TakeReady()
}

// TakeReady returns and clears every packet the worker has finished
// compressing since the last call, in submission order, along with the
// first error (if any) the worker has encountered.
func (b *BatchAssembler) TakeReady() ([]*Packet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.ready
	b.ready = nil

	return out, b.err
}

// Close submits any remaining buffered rows as a final packet, waits for
// the worker to finish every queued job, and returns every packet
// produced since the last TakeReady call (including the final one).
func (b *BatchAssembler) Close() ([]*Packet, error) {
	b.submit()
	close(b.jobs)
	b.wg.Wait()

	if b.bb != nil {
		bufPool.Put(b.bb)
		b.bb = nil
	}

	return b.TakeReady()
}
