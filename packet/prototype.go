package packet

import (
	"fmt"

	"github.com/rtlab-ims-pub/libE57Format/ints"
)

// FieldSpec describes one terminal field of a CompressedVector's
// prototype: its codec, and whatever static parameters that codec
// needs to size and pack values.
type FieldSpec struct {
	Path string // '/'-separated path from the prototype root

	Kind FieldKind

	// Integer / ScaledInteger bounds, in the raw (stored) domain.
	Min, Max int64

	// ScaledInteger only: scaled = raw*Scale + Offset.
	Scale, Offset float64

	// FMin, FMax: Float field bounds, in the precision's own domain.
	FMin, FMax float64
}

// BitWidth returns the number of bits used to pack one raw value of
// an Integer or ScaledInteger field.
func (f FieldSpec) BitWidth() int {
	return ints.BitsForRange(uint64(f.Max - f.Min))
}

// Prototype is the ordered list of terminal fields making up one
// CompressedVector record, in prototype tree order.
type Prototype struct {
	Fields []FieldSpec
}

// Index returns the position of path within the prototype, or -1.
func (p Prototype) Index(path string) int {
	for i := range p.Fields {
		if p.Fields[i].Path == path {
			return i
		}
	}
	return -1
}

func (p Prototype) String() string {
	return fmt.Sprintf("Prototype(%d fields)", len(p.Fields))
}
