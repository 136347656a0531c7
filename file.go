package winmd

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config holds the options of an image. Everything else is derived from the
// metadata and the layout.
type Config struct {
	// MetadataVersion is the runtime version string of the metadata root.
	MetadataVersion string

	MajorRuntimeVersion uint16
	MinorRuntimeVersion uint16

	// Flags are the COMIMAGE_FLAGS of the CLI header.
	Flags uint32

	// TimeDateStamp is written to the COFF header as is. Zero keeps the
	// output reproducible.
	TimeDateStamp uint32

	// Checksum fills in the optional header's image checksum.
	Checksum bool

	ImageBase        uint32
	SectionAlignment uint32
	FileAlignment    uint32
}

func DefaultConfig() Config {
	return Config{
		MetadataVersion:     DefaultMetadataVersion,
		MajorRuntimeVersion: DefaultMajorRuntimeVersion,
		MinorRuntimeVersion: DefaultMinorRuntimeVersion,
		Flags:               ComImageFlagsILOnly,
		ImageBase:           DefaultImageBase,
		SectionAlignment:    DefaultSectionAlignment,
		FileAlignment:       DefaultFileAlignment,
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	err := multierr.Combine(
		validateVersion(c.MetadataVersion),
		validateAlignment(c.SectionAlignment, c.FileAlignment),
	)
	if c.ImageBase == 0 || c.ImageBase%0x10000 != 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "optional header: image base 0x%x is not a non-zero multiple of 64K", c.ImageBase))
	}
	if c.Flags&ComImageFlagsNativeEntryPoint != 0 {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "CLI header: native entry point flag is not supported"))
	}
	if c.Flags&ComImageFlags32BitPreferred != 0 && c.Flags&ComImageFlags32BitRequired == 0 {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "CLI header: 32BITPREFERRED requires 32BITREQUIRED"))
	}
	return err
}

// Image is a fully laid out winmd file.
type Image struct {
	NtHeader
	Layout       *Layout
	CLIHeader    CLIHeader
	MetadataRoot *MetadataRoot

	metadataOffset uint32
	data           []byte
}

// NewImage lays out and serializes a winmd image for md. Every size is known
// before layout starts, so the image is produced in a single forward pass:
// metadata, section sizes, layout, headers, bytes.
func NewImage(md *Metadata, cfg Config) (*Image, error) {
	if md == nil {
		return nil, errors.Wrap(ErrContractViolation, "metadata is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := Logger()

	streams, err := md.streams()
	if err != nil {
		return nil, err
	}
	root, err := LayoutMetadataRoot(cfg.MetadataVersion, streams)
	if err != nil {
		return nil, err
	}
	for _, sh := range root.Streams {
		log.Debug("placed stream",
			zap.String("stream", sh.Name),
			zap.Uint32("offset", sh.Offset),
			zap.Uint32("size", sh.Size))
	}

	tl := planText(root.Size())
	layout, err := PlanSections([]SectionRequest{
		{Name: SectionText, Characteristics: ImageScnCntCode | ImageScnMemExecute | ImageScnMemRead, Size: tl.Size},
		{Name: SectionReloc, Characteristics: ImageScnCntInitializedData | ImageScnMemDiscardable | ImageScnMemRead, Size: relocSectionSize},
	}, cfg.SectionAlignment, cfg.FileAlignment)
	if err != nil {
		return nil, err
	}
	if err := checkImageBase(cfg.ImageBase, layout.SizeOfImage); err != nil {
		return nil, err
	}
	for _, s := range layout.Sections {
		log.Debug("planned section",
			zap.String("section", s.Name),
			zap.Uint32("virtual_address", s.VirtualAddress),
			zap.Uint32("virtual_size", s.VirtualSize),
			zap.Uint32("offset", s.Offset),
			zap.Uint32("size", s.Size),
			zap.String("flags", s.Flags()))
	}

	text := layout.Section(SectionText)
	reloc := layout.Section(SectionReloc)

	dirs := tl.dataDirectories(text.VirtualAddress)
	dirs[ImageDirectoryEntryBaseReLoc] = DataDirectory{
		VirtualAddress: reloc.VirtualAddress,
		Size:           relocSectionSize,
	}
	if err := checkDataDirectories(layout, dirs); err != nil {
		return nil, err
	}

	img := &Image{
		NtHeader: NtHeader{
			Signature:      ImageNTHeaderSignature,
			FileHeader:     newFileHeader(layout, &cfg),
			OptionalHeader: newOptionalHeader(layout, &cfg, text.VirtualAddress+tl.EntryStub, dirs),
		},
		Layout:         layout,
		CLIHeader:      newCLIHeader(&cfg, text.VirtualAddress+tl.Metadata, root.Size()),
		MetadataRoot:   root,
		metadataOffset: text.Offset + tl.Metadata,
	}

	var e encoder
	e.headers(layout, &img.NtHeader)

	e.padTo(text.Offset, SectionText)
	e.text(&tl, text.VirtualAddress, cfg.ImageBase, &img.CLIHeader, root, streams)

	e.padTo(reloc.Offset, SectionReloc)
	e.relocations(text.VirtualAddress + tl.entryOperand())

	e.padTo(layout.FileSize(), "image")
	if img.data, err = e.bytes(); err != nil {
		return nil, err
	}
	if cfg.Checksum {
		img.setChecksum()
	}

	log.Debug("built image",
		zap.Int("size", len(img.data)),
		zap.Uint32("metadata_offset", img.metadataOffset),
		zap.Uint32("metadata_size", root.Size()))
	return img, nil
}

// Bytes returns the serialized image. The slice must not be modified.
func (img *Image) Bytes() []byte {
	return img.data
}

func (img *Image) Size() int {
	return len(img.data)
}

// MetadataOffset is the file offset of the metadata root.
func (img *Image) MetadataOffset() uint32 {
	return img.metadataOffset
}

// Streams returns the stream directory of the metadata root.
func (img *Image) Streams() []StreamHeader {
	return img.MetadataRoot.Streams
}

// Stream returns the body of the named stream, including its padding.
func (img *Image) Stream(name string) []byte {
	sh := img.MetadataRoot.Stream(name)
	if sh == nil {
		return nil
	}
	start := img.metadataOffset + sh.Offset
	return img.data[start : start+sh.Size]
}

func (img *Image) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(img.data)
	if err != nil {
		return int64(n), errors.WithMessage(err, "failure to write image")
	}
	return int64(n), nil
}
