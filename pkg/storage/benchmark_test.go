// ABOUTME: Performance benchmarks for the composite key codec
// ABOUTME: Measures encoding and decoding of link index keys

package storage

import (
	"bytes"
	"testing"
)

func linkKeyValues() []Value {
	return []Value{
		NewBytesValue(bytes.Repeat([]byte{0xab}, 32)),
		NewStringValue("unit"),
		NewStringValue("_alive-vidx1"),
		NewInt64Value(1_700_000_000_000_000_000),
	}
}

func BenchmarkEncodeKey(b *testing.B) {
	values := linkKeyValues()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeKey(1002, values)
	}
}

func BenchmarkDecodeValues(b *testing.B) {
	encoded := EncodeValues(linkKeyValues())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeValues(encoded); err != nil {
			b.Fatal(err)
		}
	}
}
