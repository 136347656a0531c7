package winmd

import (
	"bytes"

	"github.com/pkg/errors"
)

// cString converts ASCII byte sequence b to string.
// It stops once it finds 0 or reaches end of b.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		i = len(b)
	}
	return string(b[:i])
}

// SectionName returns the section name without its NUL padding.
func (sh *SectionHeader32) SectionName() string {
	return cString(sh.Name[:])
}

// readStreamHeaders decodes the stream directory of the metadata root at the
// start of data. It is the inverse of the root encoder and returns the
// version string alongside the headers.
func readStreamHeaders(data []byte) (string, []StreamHeader, error) {
	size := uint64(len(data))
	truncated := func(what string, end uint64) error {
		return errors.Wrapf(ErrInconsistentLayout, "metadata root: %s ends at 0x%x past the data end 0x%x", what, end, size)
	}

	var rh MetadataRootHeader
	off := uint64(recordSize(&rh))
	if off > size {
		return "", nil, truncated("header", off)
	}
	if err := Decode(data, &rh); err != nil {
		return "", nil, err
	}
	if rh.Signature != MetadataSignature {
		return "", nil, errors.Wrapf(ErrInconsistentLayout, "metadata root: signature 0x%x", rh.Signature)
	}
	if end := off + uint64(rh.Length); end > size {
		return "", nil, truncated("version string", end)
	}
	version := cString(data[off : off+uint64(rh.Length)])
	off += uint64(rh.Length)

	var tr MetadataRootTrailer
	if end := off + uint64(recordSize(&tr)); end > size {
		return "", nil, truncated("stream count", end)
	}
	if err := Decode(data[off:], &tr); err != nil {
		return "", nil, err
	}
	off += uint64(recordSize(&tr))

	headers := make([]StreamHeader, 0, tr.Streams)
	for i := 0; i < int(tr.Streams); i++ {
		var rec StreamHeaderRecord
		if end := off + uint64(recordSize(&rec)); end > size {
			return "", nil, truncated("stream header", end)
		}
		if err := Decode(data[off:], &rec); err != nil {
			return "", nil, err
		}
		off += uint64(recordSize(&rec))
		nul := bytes.IndexByte(data[off:], 0)
		if nul < 0 {
			return "", nil, truncated("stream name", size+1)
		}
		name := string(data[off : off+uint64(nul)])
		if end := off + uint64(len(nulPadded(name))); end > size {
			return "", nil, truncated("stream name "+name, end)
		}
		off += uint64(len(nulPadded(name)))
		headers = append(headers, StreamHeader{Offset: rec.Offset, Size: rec.Size, Name: name})
	}
	return version, headers, nil
}
