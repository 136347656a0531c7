package winmd

const (
	ImageDOSSignature      = 0x5A4D     // MZ
	ImageNTHeaderSignature = 0x00004550 // PE\0\0

	ImageFileMachineI386         = 0x014C
	ImageNTOptionalHeader32Magic = 0x010B

	// MetadataSignature is "BSJB" read as a little-endian uint32.
	MetadataSignature = 0x424A5342
)

// IMAGE_DIRECTORY_ENTRY constants
const (
	ImageDirectoryEntryExport        = 0
	ImageDirectoryEntryImport        = 1
	ImageDirectoryEntryResource      = 2
	ImageDirectoryEntryException     = 3
	ImageDirectoryEntrySecurity      = 4
	ImageDirectoryEntryBaseReLoc     = 5
	ImageDirectoryEntryDebug         = 6
	ImageDirectoryEntryArchitecture  = 7
	ImageDirectoryEntryGlobalPtr     = 8
	ImageDirectoryEntryTls           = 9
	ImageDirectoryEntryLoadConfig    = 10
	ImageDirectoryEntryBoundImport   = 11
	ImageDirectoryEntryIat           = 12
	ImageDirectoryEntryDelayImport   = 13
	ImageDirectoryEntryComDescriptor = 14
)

// IMAGE_FILE characteristics
const (
	ImageFileExecutableImage = 0x0002
	ImageFile32BitMachine    = 0x0100
	ImageFileDLL             = 0x2000
)

// IMAGE_SCN characteristics
const (
	ImageScnCntCode              = 0x00000020
	ImageScnCntInitializedData   = 0x00000040
	ImageScnCntUninitializedData = 0x00000080
	ImageScnMemDiscardable       = 0x02000000
	ImageScnMemExecute           = 0x20000000
	ImageScnMemRead              = 0x40000000
	ImageScnMemWrite             = 0x80000000
)

const (
	ImageSubsystemWindowsCUI = 3

	ImageDllCharacteristicsDynamicBase         = 0x0040
	ImageDllCharacteristicsNXCompat            = 0x0100
	ImageDllCharacteristicsNoSEH               = 0x0400
	ImageDllCharacteristicsTerminalServerAware = 0x8000
)

// COMIMAGE_FLAGS values of the CLI header.
const (
	ComImageFlagsILOnly           = 0x00000001
	ComImageFlags32BitRequired    = 0x00000002
	ComImageFlagsStrongNameSigned = 0x00000008
	ComImageFlagsNativeEntryPoint = 0x00000010
	ComImageFlags32BitPreferred   = 0x00020000
)

const ImageRelBasedHighLow = 3

const (
	DefaultSectionAlignment    = 0x2000
	DefaultFileAlignment       = 0x200
	DefaultImageBase           = 0x00400000
	DefaultMetadataVersion     = "WindowsRuntime 1.2"
	DefaultMajorRuntimeVersion = 2
	DefaultMinorRuntimeVersion = 5
)

const (
	SectionText  = ".text"
	SectionReloc = ".reloc"
)

// Stream names, in the order they appear in the stream directory.
const (
	StreamTables      = "#~"
	StreamStrings     = "#Strings"
	StreamUserStrings = "#US"
	StreamGUID        = "#GUID"
	StreamBlob        = "#Blob"
)

const (
	numDataDirectories   = 16
	maxSectionNameLength = 8
	maxSections          = 96
	maxVersionLength     = 255
	minFileAlignment     = 0x200
	maxFileAlignment     = 0x10000
	basePageSize         = 0x1000
	largeHeapThreshold   = 1 << 16
)

const (
	importDLLName      = "mscoree.dll"
	importFunctionName = "_CorDllMain"
)
