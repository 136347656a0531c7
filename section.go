package winmd

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type SectionHeader32 struct {
	Name                 [8]uint8
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

var sectionHeaderSize = recordSize(&SectionHeader32{})

// SectionRequest describes a section before layout: its name, flags and the
// length of its content.
type SectionRequest struct {
	Name            string
	Characteristics uint32
	Size            uint32
}

// SectionHeader is a planned section. Size and Offset are the raw size and
// file pointer; VirtualSize is the unpadded content length.
type SectionHeader struct {
	Name            string
	VirtualSize     uint32
	VirtualAddress  uint32
	Size            uint32
	Offset          uint32
	Characteristics uint32
}

func (sh *SectionHeader) header32() SectionHeader32 {
	h := SectionHeader32{
		VirtualSize:      sh.VirtualSize,
		VirtualAddress:   sh.VirtualAddress,
		SizeOfRawData:    sh.Size,
		PointerToRawData: sh.Offset,
		Characteristics:  sh.Characteristics,
	}
	copy(h.Name[:], sh.Name)
	return h
}

// Contains reports whether rva falls inside the section's virtual range.
func (sh *SectionHeader) Contains(rva uint32) bool {
	return sh.VirtualAddress <= rva && rva < sh.VirtualAddress+Max(sh.VirtualSize, sh.Size)
}

// Flags is a short rwx summary of the section characteristics.
func (sh *SectionHeader) Flags() (flags string) {
	if (ImageScnMemRead & sh.Characteristics) == ImageScnMemRead {
		flags += "r"
	}
	if (ImageScnMemExecute & sh.Characteristics) == ImageScnMemExecute {
		flags += "x"
	}
	if (ImageScnMemWrite & sh.Characteristics) == ImageScnMemWrite {
		flags += "w"
	}
	return flags
}

// Layout is the offset/RVA map of an image.
type Layout struct {
	SectionAlignment uint32
	FileAlignment    uint32
	SizeOfHeaders    uint32
	SizeOfImage      uint32
	Sections         []*SectionHeader
}

// Section returns the planned section with the given name, or nil.
func (l *Layout) Section(name string) *SectionHeader {
	for _, s := range l.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (l *Layout) SectionByRVA(rva uint32) *SectionHeader {
	for _, s := range l.Sections {
		if s.Contains(rva) {
			return s
		}
	}
	return nil
}

// OffsetFromRVA translates rva into a file offset through its owning section.
func (l *Layout) OffsetFromRVA(rva uint32) (uint32, error) {
	s := l.SectionByRVA(rva)
	if s == nil {
		return 0, errors.Wrapf(ErrInconsistentLayout, "RVA 0x%x is outside every section", rva)
	}
	return rva - s.VirtualAddress + s.Offset, nil
}

func validateAlignment(sectionAlignment, fileAlignment uint32) error {
	var err error
	if !isPowerOfTwo(fileAlignment) || fileAlignment < minFileAlignment || fileAlignment > maxFileAlignment {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig,
			"file alignment 0x%x must be a power of two in [0x%x, 0x%x]", fileAlignment, minFileAlignment, maxFileAlignment))
	}
	if !isPowerOfTwo(sectionAlignment) || sectionAlignment < fileAlignment {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig,
			"section alignment 0x%x must be a power of two no smaller than file alignment 0x%x", sectionAlignment, fileAlignment))
	}
	return err
}

func validateSectionRequests(reqs []SectionRequest) error {
	var err error
	if len(reqs) > maxSections {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "%d sections exceed the limit of %d", len(reqs), maxSections))
	}
	seen := make(map[string]bool, len(reqs))
	for i, r := range reqs {
		switch {
		case r.Name == "":
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "section %d: name is empty", i))
		case !isASCII(r.Name):
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "section %d: name %q is not ASCII", i, r.Name))
		case len(r.Name) > maxSectionNameLength:
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "section %d: name %q is longer than %d bytes", i, r.Name, maxSectionNameLength))
		case seen[r.Name]:
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "section %d: duplicate name %q", i, r.Name))
		}
		seen[r.Name] = true
	}
	return err
}

// PlanSections lays the requested sections out in order. Sections are packed
// contiguously, each starting at the previous one's end rounded up to the
// section alignment in virtual space and the file alignment on disk. The
// first section starts right after the header region.
//
// A zero-length section still occupies one file-alignment unit; callers
// should leave out sections that have no content.
func PlanSections(reqs []SectionRequest, sectionAlignment, fileAlignment uint32) (*Layout, error) {
	if err := multierr.Append(validateAlignment(sectionAlignment, fileAlignment), validateSectionRequests(reqs)); err != nil {
		return nil, err
	}

	sa, fa := uint64(sectionAlignment), uint64(fileAlignment)
	headers := alignUp64(headerRegionSize(len(reqs)), fa)

	l := &Layout{
		SectionAlignment: sectionAlignment,
		FileAlignment:    fileAlignment,
		SizeOfHeaders:    uint32(headers),
		Sections:         make([]*SectionHeader, 0, len(reqs)),
	}

	va := alignUp64(headers, sa)
	offset := headers
	for _, r := range reqs {
		raw := alignUp64(uint64(r.Size), fa)
		if raw == 0 {
			raw = fa
		}
		if !fitsUint32(va) || !fitsUint32(offset+raw) {
			return nil, errors.Wrapf(ErrInconsistentLayout, "section %s: placement at VA 0x%x, offset 0x%x exceeds 32 bits", r.Name, va, offset)
		}
		l.Sections = append(l.Sections, &SectionHeader{
			Name:            r.Name,
			VirtualSize:     r.Size,
			VirtualAddress:  uint32(va),
			Size:            uint32(raw),
			Offset:          uint32(offset),
			Characteristics: r.Characteristics,
		})
		span := uint64(r.Size)
		if raw > span {
			span = raw
		}
		va = alignUp64(va+span, sa)
		offset += raw
	}

	if !fitsUint32(va) {
		return nil, errors.Wrapf(ErrInconsistentLayout, "optional header: SizeOfImage 0x%x exceeds 32 bits", va)
	}
	l.SizeOfImage = uint32(va)
	return l, nil
}

// FileSize is the total length of the serialized image.
func (l *Layout) FileSize() uint32 {
	if len(l.Sections) == 0 {
		return l.SizeOfHeaders
	}
	last := l.Sections[len(l.Sections)-1]
	return last.Offset + last.Size
}
