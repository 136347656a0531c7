package winmd

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const maxStreamNameLength = 32

// Metadata is what the metadata model hands over: the four finished heaps
// and the encoded tables.
type Metadata struct {
	Strings     []byte
	UserStrings []byte
	GUID        []byte
	Blob        []byte
	Tables      TablesStream
}

// MetadataRootHeader is the fixed part of the metadata root that precedes
// the version string.
type MetadataRootHeader struct {
	Signature    uint32
	MajorVersion uint16
	MinorVersion uint16
	Reserved     uint32
	Length       uint32
}

// MetadataRootTrailer follows the padded version string.
type MetadataRootTrailer struct {
	Flags   uint16
	Streams uint16
}

// StreamHeaderRecord is the fixed part of a stream header; the padded name
// follows it.
type StreamHeaderRecord struct {
	Offset uint32
	Size   uint32
}

// StreamHeader locates one stream relative to the metadata root.
type StreamHeader struct {
	Offset uint32
	Size   uint32
	Name   string
}

// Stream is a named stream body.
type Stream struct {
	Name string
	Data []byte
}

// MetadataRoot is the laid-out metadata root.
type MetadataRoot struct {
	Version string
	Streams []StreamHeader
}

func validateVersion(version string) error {
	switch {
	case version == "":
		return errors.Wrap(ErrInvalidConfig, "metadata root: version string is empty")
	case !isASCII(version):
		return errors.Wrapf(ErrInvalidConfig, "metadata root: version string %q is not ASCII", version)
	case strings.IndexByte(version, 0) >= 0:
		return errors.Wrapf(ErrInvalidConfig, "metadata root: version string %q contains NUL", version)
	case len(version)+1 > maxVersionLength:
		return errors.Wrapf(ErrInvalidConfig, "metadata root: version string is %d bytes, limit is %d", len(version), maxVersionLength-1)
	}
	return nil
}

func validateStreamName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidConfig, "stream header: name is empty")
	case !isASCII(name):
		return errors.Wrapf(ErrInvalidConfig, "stream header: name %q is not ASCII", name)
	case strings.IndexByte(name, 0) >= 0:
		return errors.Wrapf(ErrInvalidConfig, "stream header: name %q contains NUL", name)
	case len(name)+1 > maxStreamNameLength:
		return errors.Wrapf(ErrInvalidConfig, "stream header: name %q is longer than %d bytes", name, maxStreamNameLength-1)
	}
	return nil
}

// rootSize is the length of the root up to and including the last stream
// header, which is also the offset of the first stream body.
func rootSize(version string, names []string) uint32 {
	size := recordSize(&MetadataRootHeader{}) + uint32(len(nulPadded(version))) + recordSize(&MetadataRootTrailer{})
	for _, name := range names {
		size += recordSize(&StreamHeaderRecord{}) + uint32(len(nulPadded(name)))
	}
	return size
}

// LayoutMetadataRoot places the streams one after another behind the root.
// Every body is accounted at its length rounded up to four bytes so each
// stream starts 4-byte aligned.
func LayoutMetadataRoot(version string, streams []Stream) (*MetadataRoot, error) {
	err := validateVersion(version)
	names := make([]string, len(streams))
	for i, s := range streams {
		err = multierr.Append(err, validateStreamName(s.Name))
		names[i] = s.Name
	}
	if err != nil {
		return nil, err
	}

	root := &MetadataRoot{Version: version, Streams: make([]StreamHeader, len(streams))}
	offset := uint64(rootSize(version, names))
	for i, s := range streams {
		size := alignUp64(uint64(len(s.Data)), 4)
		if !fitsUint32(offset + size) {
			return nil, errors.Wrapf(ErrInconsistentLayout, "stream %s: end offset 0x%x exceeds 32 bits", s.Name, offset+size)
		}
		root.Streams[i] = StreamHeader{Offset: uint32(offset), Size: uint32(size), Name: s.Name}
		offset += size
	}
	return root, nil
}

// HeaderSize is the size of the root including the stream directory.
func (r *MetadataRoot) HeaderSize() uint32 {
	names := make([]string, len(r.Streams))
	for i, s := range r.Streams {
		names[i] = s.Name
	}
	return rootSize(r.Version, names)
}

// Size is the length of the root plus every stream body.
func (r *MetadataRoot) Size() uint32 {
	if len(r.Streams) == 0 {
		return r.HeaderSize()
	}
	last := r.Streams[len(r.Streams)-1]
	return last.Offset + last.Size
}

// Stream returns the header of the named stream, or nil.
func (r *MetadataRoot) Stream(name string) *StreamHeader {
	for i := range r.Streams {
		if r.Streams[i].Name == name {
			return &r.Streams[i]
		}
	}
	return nil
}

// metadataRoot writes the root, the stream directory and the stream bodies.
func (e *encoder) metadataRoot(root *MetadataRoot, streams []Stream) {
	start := e.len()
	version := nulPadded(root.Version)
	e.record(&MetadataRootHeader{
		Signature:    MetadataSignature,
		MajorVersion: 1,
		MinorVersion: 1,
		Length:       uint32(len(version)),
	})
	e.raw(version)
	e.record(&MetadataRootTrailer{Streams: uint16(len(root.Streams))})
	for _, sh := range root.Streams {
		e.record(&StreamHeaderRecord{Offset: sh.Offset, Size: sh.Size})
		e.raw(nulPadded(sh.Name))
	}
	for i, s := range streams {
		sh := root.Streams[i]
		e.padTo(start+sh.Offset, "stream "+sh.Name)
		e.raw(s.Data)
		e.align(4)
	}
	e.padTo(start+root.Size(), "metadata")
}

// streams returns the five metadata streams in directory order. Empty
// string, user string and blob heaps get their mandatory leading zero byte.
func (md *Metadata) streams() ([]Stream, error) {
	if len(md.GUID)%16 != 0 {
		return nil, errors.Wrapf(ErrContractViolation, "%s heap: length %d is not a multiple of 16", StreamGUID, len(md.GUID))
	}
	tables, err := md.Tables.Bytes(len(md.Strings), len(md.GUID), len(md.Blob))
	if err != nil {
		return nil, err
	}
	return []Stream{
		{Name: StreamTables, Data: tables},
		{Name: StreamStrings, Data: heapOrEmpty(md.Strings)},
		{Name: StreamUserStrings, Data: heapOrEmpty(md.UserStrings)},
		{Name: StreamGUID, Data: md.GUID},
		{Name: StreamBlob, Data: heapOrEmpty(md.Blob)},
	}, nil
}

func heapOrEmpty(heap []byte) []byte {
	if len(heap) == 0 {
		return []byte{0}
	}
	return heap
}
