package winmd

import (
	"bytes"
	"encoding/binary"
	"reflect"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var codecOptions = &struc.Options{Order: binary.LittleEndian}

// Encode packs a fixed-layout record into its little-endian byte form.
// Fields are written in declaration order with no padding.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, v, codecOptions); err != nil {
		return nil, errors.Wrapf(err, "encoding %T", v)
	}
	return buf.Bytes(), nil
}

// Decode unpacks data into the fixed-layout record v.
func Decode(data []byte, v any) error {
	if err := struc.UnpackWithOptions(bytes.NewReader(data), v, codecOptions); err != nil {
		return errors.Wrapf(err, "decoding %T", v)
	}
	return nil
}

// recordSize returns the encoded width of a fixed-layout record.
func recordSize(v any) uint32 {
	n, err := struc.Sizeof(v)
	if err != nil {
		panic(errors.Wrapf(err, "sizing %T", v))
	}
	return uint32(n)
}

// fieldOffset returns the encoded offset of the named field within record v,
// the sum of the widths of the fields declared before it.
func fieldOffset(v any, name string) uint32 {
	rv := reflect.Indirect(reflect.ValueOf(v))
	off := 0
	for i := 0; i < rv.NumField(); i++ {
		if rv.Type().Field(i).Name == name {
			return uint32(off)
		}
		off += binary.Size(rv.Field(i).Interface())
	}
	panic(errors.Errorf("%T has no field %s", v, name))
}

// encoder accumulates records and raw bytes. The first error sticks and
// every later call becomes a no-op.
type encoder struct {
	buf bytes.Buffer
	err error
}

func (e *encoder) record(v any) {
	if e.err != nil {
		return
	}
	if err := struc.PackWithOptions(&e.buf, v, codecOptions); err != nil {
		e.err = errors.Wrapf(err, "encoding %T", v)
	}
}

func (e *encoder) raw(b []byte) {
	if e.err != nil {
		return
	}
	e.buf.Write(b)
}

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.raw(b[:])
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.raw(b[:])
}

func (e *encoder) zeros(n int) {
	if e.err != nil || n <= 0 {
		return
	}
	e.buf.Write(make([]byte, n))
}

// align pads with zeros up to the next multiple of n.
func (e *encoder) align(n uint32) {
	l := uint32(e.buf.Len())
	e.zeros(int(alignUp(l, n) - l))
}

// padTo pads with zeros until the buffer is exactly size bytes long.
func (e *encoder) padTo(size uint32, what string) {
	if e.err != nil {
		return
	}
	l := uint32(e.buf.Len())
	if l > size {
		e.err = errors.Wrapf(ErrInconsistentLayout, "%s: %d bytes written past expected end 0x%x", what, l-size, size)
		return
	}
	e.zeros(int(size - l))
}

func (e *encoder) len() uint32 {
	return uint32(e.buf.Len())
}

func (e *encoder) bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}
