package winmd

import (
	"bytes"

	"github.com/pkg/errors"
)

func isErr(err, target error) bool {
	return err != nil && errors.Is(err, target)
}

// testMetadata is a module with its Module row and the <Module> type.
func testMetadata() *Metadata {
	module := []byte{
		0x00, 0x00, // Generation
		0x0A, 0x00, // Name "Test.winmd"
		0x01, 0x00, // Mvid
		0x00, 0x00, // EncId
		0x00, 0x00, // EncBaseId
	}
	typeDef := []byte{
		0x00, 0x00, 0x00, 0x00, // Flags
		0x01, 0x00, // TypeName "<Module>"
		0x00, 0x00, // TypeNamespace
		0x00, 0x00, // Extends
		0x01, 0x00, // FieldList
		0x01, 0x00, // MethodList
	}
	return &Metadata{
		Strings: []byte("\x00<Module>\x00Test.winmd\x00"),
		GUID:    bytes.Repeat([]byte{0xAB}, 16),
		Tables: TablesStream{
			Valid:     0x05,
			Sorted:    0x000016003325FA00,
			RowCounts: []uint32{1, 1},
			Rows:      [][]byte{module, typeDef},
		},
	}
}
