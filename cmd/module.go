package main

import (
	"bytes"
	"crypto/md5"
	"path/filepath"
	"strings"

	winmd "github.com/wanglei-coder/winmd"
)

const (
	tableModule  = 0x00
	tableTypeDef = 0x02
)

// Tables a loader expects in key order; this is the sorted vector emitted by
// the Windows metadata tools.
const sortedTables = 0x000016003325FA00

// Row layouts with 2-byte heap and table indexes.
type moduleRow struct {
	Generation uint16
	Name       uint16
	Mvid       uint16
	EncID      uint16
	EncBaseID  uint16
}

type typeDefRow struct {
	Flags         uint32
	TypeName      uint16
	TypeNamespace uint16
	Extends       uint16
	FieldList     uint16
	MethodList    uint16
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type stringHeap struct {
	buf     bytes.Buffer
	offsets map[string]uint16
}

func newStringHeap() *stringHeap {
	h := &stringHeap{offsets: map[string]uint16{"": 0}}
	h.buf.WriteByte(0)
	return h
}

func (h *stringHeap) add(s string) uint16 {
	if off, ok := h.offsets[s]; ok {
		return off
	}
	off := uint16(h.buf.Len())
	h.buf.WriteString(s)
	h.buf.WriteByte(0)
	h.offsets[s] = off
	return off
}

// minimalMetadata describes a module with nothing but its Module row and
// the <Module> type. All heaps stay small, so every index is 2 bytes wide.
func minimalMetadata(name string) (*winmd.Metadata, error) {
	strs := newStringHeap()
	moduleNameIdx := strs.add(name + ".winmd")
	typeNameIdx := strs.add("<Module>")

	mvid := md5.Sum([]byte(name))

	module, err := winmd.Encode(&moduleRow{Name: moduleNameIdx, Mvid: 1})
	if err != nil {
		return nil, err
	}
	typeDef, err := winmd.Encode(&typeDefRow{TypeName: typeNameIdx, FieldList: 1, MethodList: 1})
	if err != nil {
		return nil, err
	}

	md := &winmd.Metadata{
		Strings: strs.buf.Bytes(),
		GUID:    mvid[:],
		Tables: winmd.TablesStream{
			Valid:     1<<tableModule | 1<<tableTypeDef,
			Sorted:    sortedTables,
			RowCounts: []uint32{1, 1},
			Rows:      [][]byte{module, typeDef},
		},
	}
	md.Tables.HeapSizes = winmd.HeapSizeFlags(len(md.Strings), len(md.GUID), len(md.Blob))
	return md, nil
}
