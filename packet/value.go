// Package packet implements the CompressedVector packet codec: the
// binary layout of data and index packets, and the per-field bitstream
// encoders/decoders that pack a prototype's terminal fields into (and
// out of) those packets.
//
// Fields are encoded columnar-style: each prototype field gets its own
// bytestream within a packet, so a reader that only wants one field
// need not touch the others, and repeated values within a field pack
// tightly regardless of what the neighboring fields look like.
package packet

import "fmt"

// FieldKind identifies which per-field codec a Prototype field uses.
type FieldKind int

const (
	FieldInteger FieldKind = iota
	FieldScaledInteger
	FieldFloat32
	FieldFloat64
	FieldString
)

func (k FieldKind) String() string {
	switch k {
	case FieldInteger:
		return "integer"
	case FieldScaledInteger:
		return "scaledInteger"
	case FieldFloat32:
		return "float32"
	case FieldFloat64:
		return "float64"
	case FieldString:
		return "string"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Value is a single field value flowing into an Encoder or out of a
// Decoder. Exactly one of the typed members is meaningful, selected by
// Kind, matching the field's FieldSpec.Kind.
type Value struct {
	Kind FieldKind
	I    int64   // FieldInteger, FieldScaledInteger (raw value)
	F32  float32 // FieldFloat32
	F64  float64 // FieldFloat64
	S    string  // FieldString
}
