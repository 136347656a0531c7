package winmd

// BaseRelocationBlock heads one page worth of base relocation entries.
type BaseRelocationBlock struct {
	VirtualAddress uint32
	SizeOfBlock    uint32
}

// A block carries the one HIGHLOW fixup of the entry stub plus one
// IMAGE_REL_BASED_ABSOLUTE entry that keeps the block 4-byte sized.
var relocSectionSize = recordSize(&BaseRelocationBlock{}) + 2*2

// relocations writes a base relocation block for the absolute address
// stored at rva.
func (e *encoder) relocations(rva uint32) {
	page := rva &^ (basePageSize - 1)
	e.record(&BaseRelocationBlock{
		VirtualAddress: page,
		SizeOfBlock:    relocSectionSize,
	})
	e.u16(uint16(ImageRelBasedHighLow<<12 | (rva - page)))
	e.u16(0)
}
