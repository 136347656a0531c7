package winmd

type DOSHeader struct {
	Magic                    uint16
	BytesOnLastPageOfFile    uint16
	PagesInFile              uint16
	Relocations              uint16
	SizeOfHeader             uint16
	MinExtraParagraphsNeeded uint16
	MaxExtraParagraphsNeeded uint16
	InitialSS                uint16
	InitialSP                uint16
	Checksum                 uint16
	InitialIP                uint16
	InitialCS                uint16
	AddressOfRelocationTable uint16
	OverlayNumber            uint16
	ReservedWords1           [4]uint16
	OEMIdentifier            uint16
	OEMInformation           uint16
	ReservedWords2           [10]uint16
	AddressOfNewEXEHeader    uint32
}

// Real-mode program run by DOS: print the message at ds:dx, then exit.
var dosStubProgram = []byte{
	0x0E,             // push cs
	0x1F,             // pop ds
	0xBA, 0x0E, 0x00, // mov dx, 0x0e
	0xB4, 0x09, // mov ah, 9
	0xCD, 0x21, // int 0x21
	0xB8, 0x01, 0x4C, // mov ax, 0x4c01
	0xCD, 0x21, // int 0x21
}

const dosStubMessage = "This program cannot be run in DOS mode.\r\r\n$"

// dosStubSize is where the PE signature starts (e_lfanew).
var dosStubSize = alignUp(recordSize(&DOSHeader{})+uint32(len(dosStubProgram)+len(dosStubMessage)), 8)

func newDOSHeader() DOSHeader {
	return DOSHeader{
		Magic:                    ImageDOSSignature,
		BytesOnLastPageOfFile:    0x90,
		PagesInFile:              3,
		SizeOfHeader:             4,
		MaxExtraParagraphsNeeded: 0xFFFF,
		InitialSP:                0xB8,
		AddressOfRelocationTable: 0x40,
		AddressOfNewEXEHeader:    dosStubSize,
	}
}

func (e *encoder) dosStub() {
	dh := newDOSHeader()
	e.record(&dh)
	e.raw(dosStubProgram)
	e.raw([]byte(dosStubMessage))
	e.padTo(dosStubSize, "DOS stub")
}
