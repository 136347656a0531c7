package main

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/h2non/filetype"
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"

	winmd "github.com/wanglei-coder/winmd"
)

var (
	filename   string
	moduleName string
	version    string
	timestamp  uint
	stampNow   bool
	require32  bool
	checksum   bool
	verbose    bool
)

func init() {
	flag.StringVar(&filename, "out", env.Str("WINMD_OUTPUT", "out.winmd"), "Path of the winmd file to write")
	flag.StringVar(&moduleName, "name", "", "Module name (defaults to the output file name)")
	flag.StringVar(&version, "version", env.Str("WINMD_VERSION", winmd.DefaultMetadataVersion), "Metadata version string")
	flag.UintVar(&timestamp, "timestamp", 0, "COFF header time stamp")
	flag.BoolVar(&stampNow, "now", false, "Use the current time as COFF header time stamp")
	flag.BoolVar(&require32, "32bit", env.Bool("WINMD_32BIT"), "Mark the image as requiring a 32-bit process")
	flag.BoolVar(&checksum, "checksum", false, "Fill in the PE image checksum")
	flag.BoolVar(&verbose, "v", env.Bool("WINMD_VERBOSE"), "Verbose logging")
}

type Info struct {
	Size            int
	MetadataOffset  uint32
	Characteristics uint16
	CheckSum        uint32
	Authentihash    string
	FileType        string
	Sections        []*Section
	Streams         []winmd.StreamHeader
}

type Section struct {
	Name           string
	MD5            string
	Flags          string
	RawSize        uint32
	Offset         uint32
	VirtualAddress uint32
	VirtualSize    uint32
	Entropy        float64
}

func getSections(img *winmd.Image) []*Section {
	data := img.Bytes()
	sections := make([]*Section, 0, len(img.Layout.Sections))
	for _, s := range img.Layout.Sections {
		raw := data[s.Offset : s.Offset+s.Size]
		sections = append(sections, &Section{
			Name:           s.Name,
			MD5:            fmt.Sprintf("%x", md5.Sum(raw)),
			Flags:          s.Flags(),
			RawSize:        s.Size,
			Offset:         s.Offset,
			VirtualAddress: s.VirtualAddress,
			VirtualSize:    s.VirtualSize,
			Entropy:        CalculateEntropy(raw),
		})
	}
	return sections
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	return l
}

func main() {
	flag.Parse()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	winmd.SetLogger(logger)

	if moduleName == "" {
		moduleName = baseName(filename)
	}

	cfg := winmd.DefaultConfig()
	cfg.MetadataVersion = version
	cfg.TimeDateStamp = uint32(timestamp)
	if stampNow {
		cfg.TimeDateStamp = uint32(time.Now().Unix())
	}
	if require32 {
		cfg.Flags |= winmd.ComImageFlags32BitRequired
	}
	cfg.Checksum = checksum

	md, err := minimalMetadata(moduleName)
	if err != nil {
		log.Fatal(err)
	}
	img, err := winmd.NewImage(md, cfg)
	if err != nil {
		log.Fatal(err)
	}

	if !filetype.Is(img.Bytes(), "exe") {
		log.Fatalf("generated image is not recognized as a PE file: %s", GetFileType(img.Bytes()))
	}

	f, err := os.Create(filename)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := img.WriteTo(f); err != nil {
		_ = f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	logger.Info("wrote winmd", zap.String("file", filename), zap.Int("size", img.Size()))

	info := Info{
		Size:            img.Size(),
		MetadataOffset:  img.MetadataOffset(),
		Characteristics: img.FileHeader.Characteristics,
		CheckSum:        img.OptionalHeader.CheckSum,
		Authentihash:    hex.EncodeToString(img.Authentihash()),
		FileType:        GetFileType(img.Bytes()),
		Sections:        getSections(img),
		Streams:         img.Streams(),
	}
	data, _ := json.MarshalIndent(&info, "", "    ")
	fmt.Printf("%s\n", data)
}

func GetFileType(data []byte) string {
	kind, _ := filetype.Match(data)
	if kind == filetype.Unknown {
		return "Data"
	}
	return kind.MIME.Value
}

func CalculateEntropy(data []byte) float64 {
	size := float64(len(data))
	if size == 0.0 {
		return 0.0
	}

	var frequencies [256]uint64
	for _, v := range data {
		frequencies[v]++
	}

	var entropy float64
	for _, p := range frequencies {
		if p > 0 {
			freq := float64(p) / size
			entropy += freq * math.Log2(freq)
		}
	}

	return -entropy
}
