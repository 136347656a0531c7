package winmd

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

func defaultStreams(sizes [5]int) []Stream {
	names := []string{StreamTables, StreamStrings, StreamUserStrings, StreamGUID, StreamBlob}
	streams := make([]Stream, len(names))
	for i, name := range names {
		streams[i] = Stream{Name: name, Data: make([]byte, sizes[i])}
	}
	return streams
}

func TestLayoutMetadataRoot(t *testing.T) {
	root, err := LayoutMetadataRoot(DefaultMetadataVersion, defaultStreams([5]int{0x4C, 0x20, 0x08, 0x10, 0x08}))
	if err != nil {
		t.Fatal(err)
	}
	want := []StreamHeader{
		{Offset: 0x74, Size: 0x4C, Name: StreamTables},
		{Offset: 0xC0, Size: 0x20, Name: StreamStrings},
		{Offset: 0xE0, Size: 0x08, Name: StreamUserStrings},
		{Offset: 0xE8, Size: 0x10, Name: StreamGUID},
		{Offset: 0xF8, Size: 0x08, Name: StreamBlob},
	}
	if !reflect.DeepEqual(root.Streams, want) {
		t.Errorf("Streams = %+v, want %+v", root.Streams, want)
	}
	if got := root.HeaderSize(); got != 0x74 {
		t.Errorf("HeaderSize() = 0x%x, want 0x74", got)
	}
	if got := root.Size(); got != 0x100 {
		t.Errorf("Size() = 0x%x, want 0x100", got)
	}
}

func TestLayoutMetadataRoot_Unaligned(t *testing.T) {
	root, err := LayoutMetadataRoot("v4.0.30319", defaultStreams([5]int{5, 1, 1, 0, 3}))
	if err != nil {
		t.Fatal(err)
	}
	for i, sh := range root.Streams {
		if sh.Offset%4 != 0 || sh.Size%4 != 0 {
			t.Errorf("%s: offset 0x%x size 0x%x not 4-byte aligned", sh.Name, sh.Offset, sh.Size)
		}
		if i > 0 {
			prev := root.Streams[i-1]
			if sh.Offset != prev.Offset+prev.Size {
				t.Errorf("%s: offset 0x%x, want 0x%x", sh.Name, sh.Offset, prev.Offset+prev.Size)
			}
		}
	}
	if root.Stream(StreamGUID).Size != 0 {
		t.Errorf("empty %s stream size = %d", StreamGUID, root.Stream(StreamGUID).Size)
	}
}

func TestMetadataRootEncoding(t *testing.T) {
	streams := defaultStreams([5]int{0x4C, 0x20, 0x08, 0x10, 0x05})
	for i := range streams {
		for j := range streams[i].Data {
			streams[i].Data[j] = byte(i + 1)
		}
	}
	root, err := LayoutMetadataRoot(DefaultMetadataVersion, streams)
	if err != nil {
		t.Fatal(err)
	}
	var e encoder
	e.metadataRoot(root, streams)
	data, err := e.bytes()
	if err != nil {
		t.Fatal(err)
	}

	if uint32(len(data)) != root.Size() {
		t.Fatalf("encoded %d bytes, want %d", len(data), root.Size())
	}
	if !bytes.HasPrefix(data, []byte("BSJB")) {
		t.Errorf("signature = % x", data[:4])
	}
	if major, minor := binary.LittleEndian.Uint16(data[4:]), binary.LittleEndian.Uint16(data[6:]); major != 1 || minor != 1 {
		t.Errorf("version = %d.%d, want 1.1", major, minor)
	}
	// len("WindowsRuntime 1.2") + NUL = 19, padded to 20.
	if got := binary.LittleEndian.Uint32(data[12:]); got != 20 {
		t.Errorf("version length = %d, want 20", got)
	}

	version, headers, err := readStreamHeaders(data)
	if err != nil {
		t.Fatal(err)
	}
	if version != DefaultMetadataVersion {
		t.Errorf("version = %q, want %q", version, DefaultMetadataVersion)
	}
	if !reflect.DeepEqual(headers, root.Streams) {
		t.Errorf("decoded headers = %+v, want %+v", headers, root.Streams)
	}
	for i, sh := range headers {
		body := data[sh.Offset : sh.Offset+sh.Size]
		if !bytes.Equal(body[:len(streams[i].Data)], streams[i].Data) {
			t.Errorf("%s: body mismatch", sh.Name)
		}
		for _, b := range body[len(streams[i].Data):] {
			if b != 0 {
				t.Errorf("%s: non-zero padding", sh.Name)
				break
			}
		}
	}
}

func TestLayoutMetadataRoot_Errors(t *testing.T) {
	long := string(bytes.Repeat([]byte{'v'}, maxVersionLength))
	tests := []struct {
		name    string
		version string
		stream  string
	}{
		{name: "empty version", version: "", stream: StreamTables},
		{name: "non-ASCII version", version: "Windows Runtime 1.2 ©", stream: StreamTables},
		{name: "NUL in version", version: "Windows\x00Runtime", stream: StreamTables},
		{name: "long version", version: long, stream: StreamTables},
		{name: "empty stream name", version: DefaultMetadataVersion, stream: ""},
		{name: "non-ASCII stream name", version: DefaultMetadataVersion, stream: "#Strïngs"},
		{name: "long stream name", version: DefaultMetadataVersion, stream: "#" + string(bytes.Repeat([]byte{'s'}, 31))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LayoutMetadataRoot(tt.version, []Stream{{Name: tt.stream}})
			if !isErr(err, ErrInvalidConfig) {
				t.Errorf("LayoutMetadataRoot() error = %v, want %v", err, ErrInvalidConfig)
			}
		})
	}
}

func TestLayoutMetadataRoot_VersionLength(t *testing.T) {
	tests := []struct {
		length     int
		wantErr    bool
		wantLength uint32
	}{
		{length: 251, wantLength: 252},
		{length: 252, wantLength: 256},
		{length: 254, wantLength: 256},
		{length: 255, wantErr: true},
	}
	for _, tt := range tests {
		version := string(bytes.Repeat([]byte{'v'}, tt.length))
		streams := defaultStreams([5]int{4, 4, 4, 0, 4})
		root, err := LayoutMetadataRoot(version, streams)
		if tt.wantErr {
			if !isErr(err, ErrInvalidConfig) {
				t.Errorf("%d bytes: error = %v, want %v", tt.length, err, ErrInvalidConfig)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%d bytes: %v", tt.length, err)
		}

		var e encoder
		e.metadataRoot(root, streams)
		data, err := e.bytes()
		if err != nil {
			t.Fatal(err)
		}
		var rh MetadataRootHeader
		if err := Decode(data, &rh); err != nil {
			t.Fatal(err)
		}
		if rh.Length != tt.wantLength {
			t.Errorf("%d bytes: Length = %d, want %d", tt.length, rh.Length, tt.wantLength)
		}
		got, _, err := readStreamHeaders(data)
		if err != nil {
			t.Fatal(err)
		}
		if got != version {
			t.Errorf("%d bytes: version read back as %d bytes", tt.length, len(got))
		}
	}
}

func TestReadStreamHeaders_Truncated(t *testing.T) {
	streams := defaultStreams([5]int{8, 4, 4, 16, 4})
	root, err := LayoutMetadataRoot(DefaultMetadataVersion, streams)
	if err != nil {
		t.Fatal(err)
	}
	var e encoder
	e.metadataRoot(root, streams)
	data, err := e.bytes()
	if err != nil {
		t.Fatal(err)
	}

	if _, headers, err := readStreamHeaders(data[:root.HeaderSize()]); err != nil || len(headers) != 5 {
		t.Fatalf("directory alone: %d headers, error %v", len(headers), err)
	}
	for n := uint32(0); n < root.HeaderSize(); n++ {
		if _, _, err := readStreamHeaders(data[:n]); !isErr(err, ErrInconsistentLayout) {
			t.Errorf("%d bytes: error = %v, want %v", n, err, ErrInconsistentLayout)
		}
	}

	bad := append([]byte(nil), data...)
	bad[0] = 'X'
	if _, _, err := readStreamHeaders(bad); !isErr(err, ErrInconsistentLayout) {
		t.Errorf("bad signature: error = %v, want %v", err, ErrInconsistentLayout)
	}
}

func TestMetadata_Streams(t *testing.T) {
	md := testMetadata()
	streams, err := md.streams()
	if err != nil {
		t.Fatal(err)
	}
	wantNames := []string{"#~", "#Strings", "#US", "#GUID", "#Blob"}
	for i, s := range streams {
		if s.Name != wantNames[i] {
			t.Errorf("stream %d = %q, want %q", i, s.Name, wantNames[i])
		}
	}
	// Empty #US and #Blob heaps still hold the empty entry.
	if !bytes.Equal(streams[2].Data, []byte{0}) || !bytes.Equal(streams[4].Data, []byte{0}) {
		t.Errorf("#US = % x, #Blob = % x, want a single zero byte", streams[2].Data, streams[4].Data)
	}

	md.GUID = md.GUID[:15]
	if _, err := md.streams(); !isErr(err, ErrContractViolation) {
		t.Errorf("streams() with a truncated GUID heap: error = %v, want %v", err, ErrContractViolation)
	}
}
