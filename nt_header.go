package winmd

import (
	"github.com/pkg/errors"
)

type NtHeader struct {
	Signature      uint32
	FileHeader     FileHeader
	OptionalHeader OptionalHeader32
}

type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

type OptionalHeader32 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
	DataDirectory               [numDataDirectories]DataDirectory
}

var (
	fileHeaderSize     = recordSize(&FileHeader{})
	optionalHeaderSize = recordSize(&OptionalHeader32{})
	peSignatureSize    = uint32(4)
)

// headerRegionSize is the unaligned size of everything before the first
// section's raw data: DOS stub, PE signature, COFF header, optional header
// and n section headers.
func headerRegionSize(n int) uint64 {
	return uint64(dosStubSize) + uint64(peSignatureSize) + uint64(fileHeaderSize) +
		uint64(optionalHeaderSize) + uint64(n)*uint64(sectionHeaderSize)
}

func newFileHeader(layout *Layout, cfg *Config) FileHeader {
	characteristics := uint16(ImageFileDLL | ImageFileExecutableImage)
	// IMAGE_FILE_32BIT_MACHINE must only be set together with
	// COMIMAGE_FLAGS_32BITREQUIRED in the CLI header.
	if cfg.Flags&ComImageFlags32BitRequired != 0 {
		characteristics |= ImageFile32BitMachine
	}
	return FileHeader{
		Machine:              ImageFileMachineI386,
		NumberOfSections:     uint16(len(layout.Sections)),
		TimeDateStamp:        cfg.TimeDateStamp,
		SizeOfOptionalHeader: uint16(optionalHeaderSize),
		Characteristics:      characteristics,
	}
}

func newOptionalHeader(layout *Layout, cfg *Config, entryPoint uint32, dirs [numDataDirectories]DataDirectory) OptionalHeader32 {
	oh := OptionalHeader32{
		Magic:                       ImageNTOptionalHeader32Magic,
		MajorLinkerVersion:          11,
		AddressOfEntryPoint:         entryPoint,
		ImageBase:                   cfg.ImageBase,
		SectionAlignment:            layout.SectionAlignment,
		FileAlignment:               layout.FileAlignment,
		MajorOperatingSystemVersion: 4,
		MajorSubsystemVersion:       4,
		SizeOfImage:                 layout.SizeOfImage,
		SizeOfHeaders:               layout.SizeOfHeaders,
		Subsystem:                   ImageSubsystemWindowsCUI,
		DllCharacteristics: ImageDllCharacteristicsDynamicBase | ImageDllCharacteristicsNXCompat |
			ImageDllCharacteristicsNoSEH | ImageDllCharacteristicsTerminalServerAware,
		SizeOfStackReserve:  0x00100000,
		SizeOfStackCommit:   0x00001000,
		SizeOfHeapReserve:   0x00100000,
		SizeOfHeapCommit:    0x00001000,
		NumberOfRvaAndSizes: numDataDirectories,
		DataDirectory:       dirs,
	}

	for _, s := range layout.Sections {
		switch {
		case s.Characteristics&ImageScnCntCode != 0:
			oh.SizeOfCode += s.Size
			if oh.BaseOfCode == 0 {
				oh.BaseOfCode = s.VirtualAddress
			}
		case s.Characteristics&ImageScnCntInitializedData != 0:
			oh.SizeOfInitializedData += s.Size
			if oh.BaseOfData == 0 {
				oh.BaseOfData = s.VirtualAddress
			}
		case s.Characteristics&ImageScnCntUninitializedData != 0:
			oh.SizeOfUninitializedData += s.VirtualSize
			if oh.BaseOfData == 0 {
				oh.BaseOfData = s.VirtualAddress
			}
		}
	}
	return oh
}

// checkDataDirectories verifies that every present directory lies inside a
// single planned section.
// checkImageBase verifies the mapped image ends within the 32-bit address
// space. An image ending exactly at 4 GiB is still addressable.
func checkImageBase(imageBase, sizeOfImage uint32) error {
	if uint64(imageBase)+uint64(sizeOfImage) > 1<<32 {
		return errors.Wrapf(ErrInconsistentLayout, "optional header: image base 0x%x + SizeOfImage 0x%x exceeds 32 bits", imageBase, sizeOfImage)
	}
	return nil
}

func checkDataDirectories(layout *Layout, dirs [numDataDirectories]DataDirectory) error {
	for i, dd := range dirs {
		if dd.VirtualAddress == 0 && dd.Size == 0 {
			continue
		}
		s := layout.SectionByRVA(dd.VirtualAddress)
		if s == nil {
			return errors.Wrapf(ErrInconsistentLayout, "data directory %d: RVA 0x%x is outside every section", i, dd.VirtualAddress)
		}
		if uint64(dd.VirtualAddress)+uint64(dd.Size) > uint64(s.VirtualAddress)+uint64(s.VirtualSize) {
			return errors.Wrapf(ErrInconsistentLayout, "data directory %d: [0x%x, +0x%x) overruns section %s", i, dd.VirtualAddress, dd.Size, s.Name)
		}
	}
	return nil
}

// headers encodes the DOS stub, NT headers and section headers and pads
// the result to SizeOfHeaders.
func (e *encoder) headers(layout *Layout, nt *NtHeader) {
	e.dosStub()
	e.record(nt)
	for _, s := range layout.Sections {
		sh := s.header32()
		e.record(&sh)
	}
	e.padTo(layout.SizeOfHeaders, "header region")
}
