package winmd

type ImageImportDirectory struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

type ImageThunkData32 struct {
	AddressOfData uint32
}

// jmp dword ptr [addr]
var entryStubOpcode = []byte{0xFF, 0x25}

// textLayout holds the offsets of everything inside .text, relative to the
// start of the section.
type textLayout struct {
	IAT               uint32
	CLIHeader         uint32
	Metadata          uint32
	MetadataSize      uint32
	ImportDirectory   uint32
	ImportLookupTable uint32
	HintName          uint32
	DLLName           uint32
	EntryStub         uint32
	Size              uint32
}

var (
	thunkSize           = recordSize(&ImageThunkData32{})
	importDirectorySize = recordSize(&ImageImportDirectory{})
)

// planText lays out .text: the IAT, the CLI header, the metadata, the
// import table for mscoree.dll!_CorDllMain and finally the entry stub.
func planText(metadataSize uint32) textLayout {
	var tl textLayout
	off := uint32(0)

	tl.IAT = off
	off += 2 * thunkSize

	tl.CLIHeader = off
	off += cliHeaderSize

	tl.Metadata = off
	tl.MetadataSize = metadataSize
	off = alignUp(off+metadataSize, 4)

	tl.ImportDirectory = off
	off += 2 * importDirectorySize

	tl.ImportLookupTable = off
	off += 2 * thunkSize

	tl.HintName = off
	off = alignUp(off+2+uint32(len(importFunctionName)+1), 2)

	tl.DLLName = off
	off += uint32(len(importDLLName) + 1)

	// The stub's absolute operand follows the two opcode bytes and has to
	// be 4-byte aligned.
	off = alignUp(off+uint32(len(entryStubOpcode)), 4) - uint32(len(entryStubOpcode))
	tl.EntryStub = off
	off += uint32(len(entryStubOpcode)) + 4

	tl.Size = off
	return tl
}

// importSize is the extent of the import directory data directory.
func (tl *textLayout) importSize() uint32 {
	return tl.DLLName + uint32(len(importDLLName)+1) - tl.ImportDirectory
}

// entryOperand is the offset of the stub's absolute IAT address.
func (tl *textLayout) entryOperand() uint32 {
	return tl.EntryStub + uint32(len(entryStubOpcode))
}

func (tl *textLayout) dataDirectories(textRVA uint32) [numDataDirectories]DataDirectory {
	var dirs [numDataDirectories]DataDirectory
	dirs[ImageDirectoryEntryImport] = DataDirectory{
		VirtualAddress: textRVA + tl.ImportDirectory,
		Size:           tl.importSize(),
	}
	dirs[ImageDirectoryEntryIat] = DataDirectory{
		VirtualAddress: textRVA + tl.IAT,
		Size:           2 * thunkSize,
	}
	dirs[ImageDirectoryEntryComDescriptor] = DataDirectory{
		VirtualAddress: textRVA + tl.CLIHeader,
		Size:           cliHeaderSize,
	}
	return dirs
}

// text writes the .text section content. The encoder must be positioned at
// the section's first byte.
func (e *encoder) text(tl *textLayout, textRVA, imageBase uint32, cli *CLIHeader, root *MetadataRoot, streams []Stream) {
	start := e.len()
	hintNameRVA := textRVA + tl.HintName

	e.record(&ImageThunkData32{AddressOfData: hintNameRVA})
	e.record(&ImageThunkData32{})

	e.padTo(start+tl.CLIHeader, "CLI header")
	e.record(cli)

	e.padTo(start+tl.Metadata, "metadata root")
	e.metadataRoot(root, streams)

	e.padTo(start+tl.ImportDirectory, "import directory")
	e.record(&ImageImportDirectory{
		OriginalFirstThunk: textRVA + tl.ImportLookupTable,
		Name:               textRVA + tl.DLLName,
		FirstThunk:         textRVA + tl.IAT,
	})
	e.record(&ImageImportDirectory{})

	e.padTo(start+tl.ImportLookupTable, "import lookup table")
	e.record(&ImageThunkData32{AddressOfData: hintNameRVA})
	e.record(&ImageThunkData32{})

	e.padTo(start+tl.HintName, "hint/name table")
	e.u16(0)
	e.raw([]byte(importFunctionName))
	e.zeros(1)

	e.padTo(start+tl.DLLName, "import DLL name")
	e.raw([]byte(importDLLName))
	e.zeros(1)

	e.padTo(start+tl.EntryStub, "entry stub")
	e.raw(entryStubOpcode)
	e.u32(imageBase + textRVA + tl.IAT)

	e.padTo(start+tl.Size, SectionText)
}
