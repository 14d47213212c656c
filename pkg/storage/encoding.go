// ABOUTME: Order-preserving encoding for composite substrate keys
// ABOUTME: Every record kind gets a numeric prefix followed by typed key columns

package storage

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Value types for composite keys
const (
	TYPE_BYTES  = 1
	TYPE_INT64  = 2
	TYPE_UINT64 = 3
	TYPE_TIME   = 4 // Stored as int64 Unix nanoseconds
)

// Value represents a single value in a composite key
type Value struct {
	Type uint8
	Str  []byte
	I64  int64
	U64  uint64
	Time time.Time
}

// NewBytesValue creates a bytes value
func NewBytesValue(data []byte) Value {
	return Value{Type: TYPE_BYTES, Str: data}
}

// NewStringValue creates a bytes value from a string
func NewStringValue(s string) Value {
	return Value{Type: TYPE_BYTES, Str: []byte(s)}
}

// NewInt64Value creates an int64 value
func NewInt64Value(i int64) Value {
	return Value{Type: TYPE_INT64, I64: i}
}

// NewUint64Value creates a uint64 value
func NewUint64Value(u uint64) Value {
	return Value{Type: TYPE_UINT64, U64: u}
}

// NewTimeValue creates a time value
func NewTimeValue(t time.Time) Value {
	return Value{Type: TYPE_TIME, Time: t}
}

// EncodeValues encodes multiple values in order-preserving format.
// Byte strings are escaped so that the 0x00 terminator never occurs
// inside an encoded column; binary content such as hashes is safe.
func EncodeValues(vals []Value) []byte {
	out := make([]byte, 0, 256)
	for _, v := range vals {
		out = append(out, byte(v.Type))

		switch v.Type {
		case TYPE_INT64:
			// Flip sign bit for proper ordering
			var buf [8]byte
			u := uint64(v.I64) + (1 << 63)
			binary.BigEndian.PutUint64(buf[:], u)
			out = append(out, buf[:]...)

		case TYPE_UINT64:
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], v.U64)
			out = append(out, buf[:]...)

		case TYPE_TIME:
			var buf [8]byte
			u := uint64(v.Time.UnixNano()) + (1 << 63)
			binary.BigEndian.PutUint64(buf[:], u)
			out = append(out, buf[:]...)

		case TYPE_BYTES:
			out = append(out, escapeString(v.Str)...)
			out = append(out, 0)

		default:
			panic(fmt.Sprintf("unknown type: %d", v.Type))
		}
	}
	return out
}

// escapeString rewrites 0x00 as 0x01 0x01 and 0x01 as 0x01 0x02.
// The mapping keeps byte-wise ordering of the original strings.
func escapeString(s []byte) []byte {
	escapes := 0
	for _, b := range s {
		if b <= 1 {
			escapes++
		}
	}

	if escapes == 0 {
		return s
	}

	out := make([]byte, 0, len(s)+escapes)
	for _, b := range s {
		if b <= 1 {
			out = append(out, 0x01, b+1)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// unescapeString reverses escapeString
func unescapeString(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x01 && i+1 < len(s) {
			out = append(out, s[i+1]-1)
			i++
		} else {
			out = append(out, s[i])
		}
	}
	return out
}

// DecodeValues decodes values from encoded format
func DecodeValues(data []byte) ([]Value, error) {
	vals := make([]Value, 0, 4)
	pos := 0

	for pos < len(data) {
		typ := data[pos]
		pos++

		switch typ {
		case TYPE_INT64:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("incomplete int64 at pos %d", pos)
			}
			u := binary.BigEndian.Uint64(data[pos : pos+8])
			vals = append(vals, NewInt64Value(int64(u-(1<<63))))
			pos += 8

		case TYPE_UINT64:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("incomplete uint64 at pos %d", pos)
			}
			vals = append(vals, NewUint64Value(binary.BigEndian.Uint64(data[pos:pos+8])))
			pos += 8

		case TYPE_TIME:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("incomplete time at pos %d", pos)
			}
			u := binary.BigEndian.Uint64(data[pos : pos+8])
			vals = append(vals, NewTimeValue(time.Unix(0, int64(u-(1<<63)))))
			pos += 8

		case TYPE_BYTES:
			end := pos
			for end < len(data) && data[end] != 0 {
				end++
			}
			if end >= len(data) {
				return nil, fmt.Errorf("unterminated string at pos %d", pos)
			}
			vals = append(vals, NewBytesValue(unescapeString(data[pos:end])))
			pos = end + 1

		default:
			return nil, fmt.Errorf("unknown type: %d at pos %d", typ, pos-1)
		}
	}

	return vals, nil
}

// EncodeKey encodes a composite key with prefix. Because every column
// is self-delimiting, the key for a leading subset of columns is a
// byte prefix of every full key that starts with those columns.
func EncodeKey(prefix uint32, vals []Value) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], prefix)
	out := append([]byte{}, buf[:]...)
	return append(out, EncodeValues(vals)...)
}

// ExtractPrefix extracts the prefix from an encoded key
func ExtractPrefix(key []byte) uint32 {
	if len(key) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(key[:4])
}

// ExtractValues extracts and decodes values from an encoded key
func ExtractValues(key []byte) ([]Value, error) {
	if len(key) < 4 {
		return nil, fmt.Errorf("key too short")
	}
	return DecodeValues(key[4:])
}
