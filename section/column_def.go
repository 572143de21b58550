// Package section implements the on-disk wire structs of spec.md §6.1:
// FileHeader, ColumnDef, PacketHeader, and the Footer/PacketIndexEntry
// pair, each with Bytes()/Parse() pairs modeled on the teacher's
// section.NumericHeader (fixed layout, explicit byte offsets, CRC over the
// serialized form).
package section

import (
	"github.com/bcsv-go/bcsv/endian"
	"github.com/bcsv-go/bcsv/errs"
	"github.com/bcsv-go/bcsv/format"
)

// ColumnDef is one entry of the FileHeader's columns array.
type ColumnDef struct {
	Type format.ColumnType
	Name string
}

// byteLen returns the number of bytes appendTo appends.
func (c ColumnDef) byteLen() int {
	return 1 + 2 + len(c.Name)
}

func (c ColumnDef) appendTo(dst []byte, e endian.EndianEngine) []byte {
	dst = append(dst, byte(c.Type))
	dst = e.AppendUint16(dst, uint16(len(c.Name)))
	dst = append(dst, c.Name...)

	return dst
}

// parseColumnDef reads one ColumnDef from the front of data and returns it
// along with the number of bytes consumed.
func parseColumnDef(data []byte, e endian.EndianEngine) (ColumnDef, int, error) {
	if len(data) < 3 {
		return ColumnDef{}, 0, errs.ErrShortRead
	}
	t := format.ColumnType(data[0])
	if !t.IsValid() {
		return ColumnDef{}, 0, errs.ErrInvalidColumnType
	}
	nameLen := int(e.Uint16(data[1:3]))
	if len(data) < 3+nameLen {
		return ColumnDef{}, 0, errs.ErrShortRead
	}

	return ColumnDef{Type: t, Name: string(data[3 : 3+nameLen])}, 3 + nameLen, nil
}
