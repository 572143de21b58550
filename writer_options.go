package bcsv

import (
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
	"github.com/bcsv-go/bcsv/internal/options"
)

// WriterOption configures OpenWriter, built on the teacher's generic
// functional-option plumbing (internal/options).
type WriterOption = options.Option[*writerConfig]

type writerConfig struct {
	overwrite        bool
	compressionLevel uint8
	blockSizeKB      uint16
	flags            format.FileFlags
	rowCodec         format.RowCodecType
	batchCompress    bool
}

func defaultWriterConfig() *writerConfig {
	return &writerConfig{
		overwrite:        false,
		compressionLevel: 0,
		blockSizeKB:      64,
		rowCodec:         format.RowCodecFlat001,
	}
}

// WithOverwrite controls whether OpenWriter may replace an existing file
// at the target path (spec.md §4.6's AlreadyExists rejection otherwise).
func WithOverwrite(v bool) WriterOption {
	return options.NoError[*writerConfig](func(c *writerConfig) { c.overwrite = v })
}

// WithCompressionLevel sets the file header's compression_lvl byte: 0
// disables compression, 1-9 enable LZ4 (or Zstd, with WithZstd). The
// value within 1-9 is recorded in the header only; it does not change the
// LZ4 or Zstd compressor settings.
func WithCompressionLevel(level uint8) WriterOption {
	return options.New(func(c *writerConfig) error {
		if level > 9 {
			return errs.ErrInvalidCompressionLevel
		}
		c.compressionLevel = level

		return nil
	})
}

// WithBlockSizeKB sets the packet flush threshold in KiB of uncompressed
// payload. Must be in [4, 4096] (spec.md §3.4).
func WithBlockSizeKB(kb uint16) WriterOption {
	return options.New(func(c *writerConfig) error {
		if kb < 4 || kb > 4096 {
			return errs.ErrInvalidBlockSize
		}
		c.blockSizeKB = kb

		return nil
	})
}

// WithRowCodec selects Flat (default), ZoH, or Delta row encoding.
func WithRowCodec(t format.RowCodecType) WriterOption {
	return options.NoError[*writerConfig](func(c *writerConfig) { c.rowCodec = t })
}

// WithZstd selects klauspost/compress/zstd instead of LZ4 for packet
// payload compression (SPEC_FULL.md §8's additive domain-stack wiring;
// ignored unless WithCompressionLevel also selects a nonzero level).
func WithZstd(v bool) WriterOption {
	return options.NoError[*writerConfig](func(c *writerConfig) {
		if v {
			c.flags |= format.FlagZstdCompression
		} else {
			c.flags &^= format.FlagZstdCompression
		}
	})
}

// WithStreamMode enables STREAM_MODE: the LZ4 dictionary and row codec
// state carry across packet boundaries, the footer is omitted, and
// packets are not independently decodable (spec.md §4.3, §6.1).
func WithStreamMode(v bool) WriterOption {
	return options.NoError[*writerConfig](func(c *writerConfig) {
		if v {
			c.flags |= format.FlagStreamMode
		} else {
			c.flags &^= format.FlagStreamMode
		}
	})
}

// WithNoFileIndex omits the footer even outside STREAM_MODE, trading
// DirectReader support for a smaller file (spec.md §6.1).
func WithNoFileIndex(v bool) WriterOption {
	return options.NoError[*writerConfig](func(c *writerConfig) {
		if v {
			c.flags |= format.FlagNoFileIndex
		} else {
			c.flags &^= format.FlagNoFileIndex
		}
	})
}

// WithBatchCompress enables the double-buffer background-worker pipeline
// of spec.md §4.5.
func WithBatchCompress(v bool) WriterOption {
	return options.NoError[*writerConfig](func(c *writerConfig) { c.batchCompress = v })
}
