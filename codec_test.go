package winmd

import (
	"bytes"
	"testing"
)

func TestRecordSize(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want uint32
	}{
		{name: "DOSHeader", v: &DOSHeader{}, want: 64},
		{name: "FileHeader", v: &FileHeader{}, want: 20},
		{name: "OptionalHeader32", v: &OptionalHeader32{}, want: 224},
		{name: "SectionHeader32", v: &SectionHeader32{}, want: 40},
		{name: "DataDirectory", v: &DataDirectory{}, want: 8},
		{name: "CLIHeader", v: &CLIHeader{}, want: 72},
		{name: "MetadataRootHeader", v: &MetadataRootHeader{}, want: 16},
		{name: "TablesHeader", v: &TablesHeader{}, want: 24},
		{name: "ImageImportDirectory", v: &ImageImportDirectory{}, want: 20},
		{name: "BaseRelocationBlock", v: &BaseRelocationBlock{}, want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordSize(tt.v); got != tt.want {
				t.Errorf("recordSize(%s) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	got, err := Encode(&FileHeader{
		Machine:              ImageFileMachineI386,
		NumberOfSections:     2,
		TimeDateStamp:        0x5E9DCF09,
		SizeOfOptionalHeader: 0xE0,
		Characteristics:      ImageFileDLL | ImageFileExecutableImage,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x4C, 0x01,
		0x02, 0x00,
		0x09, 0xCF, 0x9D, 0x5E,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0xE0, 0x00,
		0x02, 0x20,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode(FileHeader) = % x, want % x", got, want)
	}
}

func TestDecode(t *testing.T) {
	in := CLIHeader{
		Cb:                  72,
		MajorRuntimeVersion: 2,
		MinorRuntimeVersion: 5,
		MetaData:            DataDirectory{VirtualAddress: 0x2050, Size: 0xDC},
		Flags:               ComImageFlagsILOnly,
	}
	data, err := Encode(&in)
	if err != nil {
		t.Fatal(err)
	}
	var out CLIHeader
	if err := Decode(data, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("Decode(Encode(h)) = %+v, want %+v", out, in)
	}
}

func TestEncoderPadTo(t *testing.T) {
	var e encoder
	e.raw([]byte{1, 2, 3})
	e.align(4)
	if e.len() != 4 {
		t.Fatalf("len after align(4) = %d, want 4", e.len())
	}
	e.padTo(8, "test")
	e.padTo(6, "test")
	if _, err := e.bytes(); !isErr(err, ErrInconsistentLayout) {
		t.Errorf("padTo behind the write position: err = %v, want %v", err, ErrInconsistentLayout)
	}
}
