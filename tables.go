package winmd

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Heap size flags of the #~ stream header.
const (
	HeapSizeStrings = 0x01
	HeapSizeGUID    = 0x02
	HeapSizeBlob    = 0x04
)

// TablesHeader is the fixed part of the #~ stream (ECMA-335 II.24.2.6).
type TablesHeader struct {
	Reserved     uint32
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Reserved2    uint8
	Valid        uint64
	Sorted       uint64
}

// TablesStream is the encoded table set. Valid has bit n set when table n
// has rows; Sorted marks tables whose rows are in key order. RowCounts and
// Rows carry one entry per set bit of Valid in ascending table order.
type TablesStream struct {
	HeapSizes uint8
	Valid     uint64
	Sorted    uint64
	RowCounts []uint32
	Rows      [][]byte
}

// HeapSizeFlags picks the index width of each heap: 2 bytes while the heap
// is smaller than 2^16 bytes, 4 bytes otherwise. Row widths depend on the
// result, so it has to be resolved before any row is encoded.
func HeapSizeFlags(stringsLen, guidLen, blobLen int) uint8 {
	var flags uint8
	if stringsLen >= largeHeapThreshold {
		flags |= HeapSizeStrings
	}
	if guidLen >= largeHeapThreshold {
		flags |= HeapSizeGUID
	}
	if blobLen >= largeHeapThreshold {
		flags |= HeapSizeBlob
	}
	return flags
}

// Tables returns the numbers of the present tables in ascending order.
func (t *TablesStream) Tables() []int {
	tables := make([]int, 0, popCount(t.Valid))
	for v := t.Valid; v != 0; v &= v - 1 {
		tables = append(tables, bits.TrailingZeros64(v))
	}
	return tables
}

// Validate checks the stream against the heaps it indexes.
func (t *TablesStream) Validate(stringsLen, guidLen, blobLen int) error {
	present := popCount(t.Valid)
	if len(t.RowCounts) != present {
		return errors.Wrapf(ErrContractViolation, "%s stream: %d row counts for %d tables in valid vector 0x%x",
			StreamTables, len(t.RowCounts), present, t.Valid)
	}
	if len(t.Rows) != present {
		return errors.Wrapf(ErrContractViolation, "%s stream: %d row blocks for %d tables in valid vector 0x%x",
			StreamTables, len(t.Rows), present, t.Valid)
	}
	for i, table := range t.Tables() {
		if t.RowCounts[i] == 0 {
			return errors.Wrapf(ErrContractViolation, "%s stream: table 0x%02x is marked valid with zero rows", StreamTables, table)
		}
		if len(t.Rows[i]) == 0 {
			return errors.Wrapf(ErrContractViolation, "%s stream: table 0x%02x has %d rows and no row bytes", StreamTables, table, t.RowCounts[i])
		}
		if len(t.Rows[i])%int(t.RowCounts[i]) != 0 {
			return errors.Wrapf(ErrContractViolation, "%s stream: table 0x%02x row bytes (%d) are not a whole number of %d rows",
				StreamTables, table, len(t.Rows[i]), t.RowCounts[i])
		}
	}

	need := HeapSizeFlags(stringsLen, guidLen, blobLen)
	for _, h := range []struct {
		flag uint8
		name string
		size int
	}{
		{HeapSizeStrings, StreamStrings, stringsLen},
		{HeapSizeGUID, StreamGUID, guidLen},
		{HeapSizeBlob, StreamBlob, blobLen},
	} {
		if need&h.flag != 0 && t.HeapSizes&h.flag == 0 {
			return errors.Wrapf(ErrInconsistentLayout, "%s stream: heap sizes 0x%02x use 2-byte indexes but %s heap is %d bytes",
				StreamTables, t.HeapSizes, h.name, h.size)
		}
	}
	return nil
}

// Bytes validates and encodes the stream, padded to four bytes.
func (t *TablesStream) Bytes(stringsLen, guidLen, blobLen int) ([]byte, error) {
	if err := t.Validate(stringsLen, guidLen, blobLen); err != nil {
		return nil, err
	}
	var e encoder
	e.record(&TablesHeader{
		MajorVersion: 2,
		HeapSizes:    t.HeapSizes,
		Reserved2:    1,
		Valid:        t.Valid,
		Sorted:       t.Sorted,
	})
	for _, n := range t.RowCounts {
		e.u32(n)
	}
	for _, rows := range t.Rows {
		e.raw(rows)
	}
	e.align(4)
	return e.bytes()
}
