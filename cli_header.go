package winmd

// CLIHeader is the ECMA-335 II.25.3.3 runtime header that the COM
// descriptor data directory points at.
type CLIHeader struct {
	Cb                      uint32
	MajorRuntimeVersion     uint16
	MinorRuntimeVersion     uint16
	MetaData                DataDirectory
	Flags                   uint32
	EntryPointToken         uint32
	Resources               DataDirectory
	StrongNameSignature     DataDirectory
	CodeManagerTable        DataDirectory
	VTableFixups            DataDirectory
	ExportAddressTableJumps DataDirectory
	ManagedNativeHeader     DataDirectory
}

var cliHeaderSize = recordSize(&CLIHeader{})

// newCLIHeader points the header at a metadata block of the given size
// starting at metadataRVA. Resources, strong name signature, vtable fixups
// and the native header are left empty.
func newCLIHeader(cfg *Config, metadataRVA, metadataSize uint32) CLIHeader {
	return CLIHeader{
		Cb:                  cliHeaderSize,
		MajorRuntimeVersion: cfg.MajorRuntimeVersion,
		MinorRuntimeVersion: cfg.MinorRuntimeVersion,
		MetaData: DataDirectory{
			VirtualAddress: metadataRVA,
			Size:           metadataSize,
		},
		Flags: cfg.Flags,
	}
}
