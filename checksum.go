package winmd

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// optionalHeaderOffset is the file offset of the optional header.
func optionalHeaderOffset() uint32 {
	return dosStubSize + fieldOffset(&NtHeader{}, "OptionalHeader")
}

// checksumOffset is the file offset of the optional header's CheckSum field.
func checksumOffset() uint32 {
	return optionalHeaderOffset() + fieldOffset(&OptionalHeader32{}, "CheckSum")
}

// certTableEntryOffset is the file offset of the certificate table data
// directory entry.
func certTableEntryOffset() uint32 {
	return optionalHeaderOffset() + fieldOffset(&OptionalHeader32{}, "DataDirectory") +
		ImageDirectoryEntrySecurity*recordSize(&DataDirectory{})
}

// peChecksum computes the image checksum of data, treating the CheckSum
// field at offset as zero.
func peChecksum(data []byte, offset uint32) uint32 {
	var sum uint64
	fold := func() {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	for i := uint32(0); i+1 < uint32(len(data)); i += 2 {
		if i == offset || i == offset+2 {
			continue
		}
		sum += uint64(binary.LittleEndian.Uint16(data[i:]))
		fold()
	}
	if len(data)%2 == 1 {
		sum += uint64(data[len(data)-1])
		fold()
	}
	fold()
	return uint32(sum) + uint32(len(data))
}

// setChecksum stores the image checksum in the optional header.
func (img *Image) setChecksum() {
	off := checksumOffset()
	img.OptionalHeader.CheckSum = peChecksum(img.data, off)
	binary.LittleEndian.PutUint32(img.data[off:], img.OptionalHeader.CheckSum)
}

func (img *Image) AuthentihashSha256() []byte {
	return img.authentihash(sha256.New())
}

func (img *Image) AuthentihashSha1() []byte {
	return img.authentihash(sha1.New())
}

func (img *Image) AuthentihashMd5() []byte {
	return img.authentihash(md5.New())
}

// Authentihash is the SHA-256 Authenticode digest a signing tool would sign.
func (img *Image) Authentihash() []byte {
	return img.authentihash(sha256.New())
}

// authentihash hashes the image while skipping the CheckSum field and the
// certificate table entry. This writer never appends a certificate table.
func (img *Image) authentihash(hasher hash.Hash) []byte {
	skip := []Range{
		{Start: checksumOffset(), End: checksumOffset() + 4},
		{Start: certTableEntryOffset(), End: certTableEntryOffset() + 8},
	}
	start := uint32(0)
	for _, r := range skip {
		hasher.Write(img.data[start:r.Start])
		start = r.End
	}
	hasher.Write(img.data[start:])
	return hasher.Sum(nil)
}

type Range struct {
	Start uint32
	End   uint32
}
