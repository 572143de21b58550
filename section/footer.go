package section

import (
	"github.com/bcsv-go/bcsv/endian"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/internal/digest"
)

// FooterMagic is the 4-byte magic terminating the index block (spec.md
// §6.1).
var FooterMagic = [4]byte{'B', 'I', 'D', 'X'}

// PacketIndexEntry locates one packet within the file for DirectReader's
// random access (spec.md §4.8).
type PacketIndexEntry struct {
	Offset         uint64
	FirstRowNumber uint32
	RowCount       uint32
}

func (e PacketIndexEntry) appendTo(dst []byte, eng endian.EndianEngine) []byte {
	dst = eng.AppendUint64(dst, e.Offset)
	dst = eng.AppendUint32(dst, e.FirstRowNumber)
	dst = eng.AppendUint32(dst, e.RowCount)

	return dst
}

const indexEntrySize = 8 + 4 + 4

func parsePacketIndexEntry(data []byte, e endian.EndianEngine) (PacketIndexEntry, error) {
	if len(data) < indexEntrySize {
		return PacketIndexEntry{}, errs.ErrShortRead
	}

	return PacketIndexEntry{
		Offset:         e.Uint64(data[0:8]),
		FirstRowNumber: e.Uint32(data[8:12]),
		RowCount:       e.Uint32(data[12:16]),
	}, nil
}

// Footer is the optional trailer written when neither STREAM_MODE nor
// NO_FILE_INDEX is set: the full packet index plus a magic/CRC/self-offset
// trailer a DirectReader seeks to from the end of the file (spec.md §4.8,
// §6.1).
type Footer struct {
	Entries []PacketIndexEntry
}

// Bytes serializes the footer, including the leading index_entry_count,
// the magic, the CRC over everything preceding it, and the trailing
// absolute offset of the footer's own start (indexOffset).
func (f *Footer) Bytes(e endian.EndianEngine, indexOffset uint64) []byte {
	body := make([]byte, 0, 4+len(f.Entries)*indexEntrySize)
	body = e.AppendUint32(body, uint32(len(f.Entries)))
	for _, entry := range f.Entries {
		body = entry.appendTo(body, e)
	}
	body = append(body, FooterMagic[:]...)

	crc := digest.Checksum32(body)
	body = e.AppendUint32(body, crc)
	body = e.AppendUint64(body, indexOffset)

	return body
}

// ParseFooter parses a Footer previously written at the end of data (the
// entire tail of the file from indexOffset onward, not counting the
// trailing 8-byte indexOffset field itself which the caller already used
// to locate this slice).
func ParseFooter(data []byte, e endian.EndianEngine) (*Footer, error) {
	if len(data) < 4 {
		return nil, errs.ErrShortRead
	}
	count := int(e.Uint32(data[0:4]))
	pos := 4

	entries := make([]PacketIndexEntry, count)
	for i := 0; i < count; i++ {
		entry, err := parsePacketIndexEntry(data[pos:], e)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
		pos += indexEntrySize
	}

	if len(data) < pos+4+4 {
		return nil, errs.ErrShortRead
	}
	if [4]byte(data[pos:pos+4]) != FooterMagic {
		return nil, errs.ErrFooterMagic
	}
	pos += 4

	wantCRC := e.Uint32(data[pos : pos+4])
	gotCRC := digest.Checksum32(data[:pos])
	if wantCRC != gotCRC {
		return nil, errs.ErrFooterCRC
	}

	return &Footer{Entries: entries}, nil
}

// FooterTrailerSize is the fixed 8-byte indexOffset field written after
// footer_crc, used by a DirectReader to find the footer's start by
// seeking to the last 8 bytes of the file.
const FooterTrailerSize = 8

// ReadIndexOffset decodes the final 8 bytes of a file (the indexOffset
// field) into the absolute byte offset where the footer begins.
func ReadIndexOffset(tail []byte, e endian.EndianEngine) (uint64, error) {
	if len(tail) < FooterTrailerSize {
		return 0, errs.ErrShortRead
	}

	return e.Uint64(tail[len(tail)-FooterTrailerSize:]), nil
}
