// Package bcsv provides a binary columnar file format for typed tabular
// data, with pluggable row encodings trading row-reconstruction cost for
// on-disk size and optional LZ4/Zstd packet compression.
//
// # Core Features
//
//   - Typed Layout shared by many Rows: fixed-width scalar columns plus
//     out-of-line strings, with a reference-counted structural lock
//     preventing schema mutation while codecs/Readers/Writers depend on it
//   - Three row codecs: Flat (every column, every row), ZoH (only changed
//     columns, reconstructed via zero-order hold), and Delta (ZoH framing
//     plus arithmetic deltas for numeric columns)
//   - Packetized on-disk layout with a footer index for O(log n) random
//     access via DirectReader
//   - Optional LZ4 dictionary-priming across packets in STREAM_MODE, or
//     Zstd, for packet payload compression
//   - Optional batch pipeline overlapping compression with row encoding
//
// # Basic Usage
//
// Writing a file:
//
//	import "github.com/bcsv-go/bcsv"
//	import "github.com/bcsv-go/bcsv/layout"
//	import "github.com/bcsv-go/bcsv/format"
//
//	l := layout.New()
//	l.AddColumn("id", format.ColumnTypeI32)
//	l.AddColumn("name", format.ColumnTypeString)
//
//	w, _ := bcsv.OpenWriter("out.bcsv", l, bcsv.WithOverwrite(true))
//	r := w.Row()
//	r.SetI32(0, 1)
//	r.SetString(1, "Alice")
//	w.WriteRow()
//	w.Close()
//
// Reading a file sequentially:
//
//	rd, _ := bcsv.OpenReader("out.bcsv")
//	for rd.ReadNext() {
//	    row := rd.Row()
//	    fmt.Println(row.GetI32(0), row.GetString(1))
//	}
//	rd.Close()
//
// # Package Structure
//
// This package provides the Writer/Reader/DirectReader orchestration
// layer. The typed Layout/Row model lives in the layout and row packages,
// the wire encodings in rowcodec, the on-disk wire structs in section,
// and LZ4 streaming compression in lz4stream.
package bcsv
