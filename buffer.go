package e57

import (
	"github.com/rtlab-ims-pub/libE57Format/ints"
	"github.com/rtlab-ims-pub/libE57Format/packet"
)

// SourceDestBuffer binds one prototype field path to a contiguous,
// caller-owned typed array. Exactly one of the typed slices is used,
// selected by Kind; the others must be left nil.
type SourceDestBuffer struct {
	Path string
	Kind ElementKind

	I8  []int8
	I16 []int16
	I32 []int32
	I64 []int64
	F32 []float32
	F64 []float64
	Str []string

	// DoConversion allows narrowing/widening numeric coercions between
	// the field's stored type and Kind.
	DoConversion bool
	// DoScaling applies a ScaledInteger field's scale/offset when Kind
	// is a floating-point kind.
	DoScaling bool
}

// Capacity returns the length of whichever typed slice is active.
func (b SourceDestBuffer) Capacity() int {
	switch b.Kind {
	case KindI8:
		return len(b.I8)
	case KindI16:
		return len(b.I16)
	case KindI32:
		return len(b.I32)
	case KindI64:
		return len(b.I64)
	case KindF32:
		return len(b.F32)
	case KindF64:
		return len(b.F64)
	case KindUString:
		return len(b.Str)
	default:
		return 0
	}
}

// bindBuffers validates buffers against proto per the binding contract
// in SPEC_FULL.md/spec.md §4.2 and returns them reordered to match
// proto.Fields exactly.
func bindBuffers(op string, proto packet.Prototype, buffers []SourceDestBuffer) ([]SourceDestBuffer, error) {
	n := len(proto.Fields)
	if n == 0 {
		return nil, nil
	}
	seen := make([]uint64, ints.ChunkCount(uint(n), 64))
	ordered := make([]SourceDestBuffer, n)

	if len(buffers) > 0 {
		cap0 := buffers[0].Capacity()
		for _, b := range buffers {
			if b.Capacity() != cap0 {
				return nil, newErr(op, BufferSizeMismatch)
			}
		}
	}

	for _, b := range buffers {
		idx := proto.Index(b.Path)
		if idx < 0 {
			return nil, newErr(op, PathUndefined)
		}
		if ints.TestBit(seen, uint(idx)) {
			return nil, newErr(op, BufferDuplicatePathName)
		}
		ints.SetBit(seen, uint(idx))
		ordered[idx] = b
	}
	for i := 0; i < n; i++ {
		if !ints.TestBit(seen, uint(i)) {
			return nil, newErr(op, BufferSizeMismatch)
		}
	}
	return ordered, nil
}

// validateRebind enforces spec.md §4.2's rebinding rule: a later
// WriteBuffers/ReadBuffers call may replace a buffer's backing slice
// (its "base", "stride_bytes", and "capacity") but not which field it
// binds to, its element kind, or its coercion flags. prev and next
// must both already be ordered to match the same prototype.
func validateRebind(op string, prev, next []SourceDestBuffer) error {
	if prev == nil {
		return nil
	}
	if len(prev) != len(next) {
		return newErr(op, BadAPIArgument)
	}
	for i := range prev {
		p, n := prev[i], next[i]
		if p.Path != n.Path || p.Kind != n.Kind || p.DoConversion != n.DoConversion || p.DoScaling != n.DoScaling {
			return newErr(op, BadAPIArgument)
		}
	}
	return nil
}

// buildPrototype walks a Structure node's terminal descendants in
// attachment order and produces the packet-level prototype the codec
// operates on.
func buildPrototype(root *Node) (packet.Prototype, error) {
	var proto packet.Prototype
	if err := collectFields(root, "", &proto); err != nil {
		return packet.Prototype{}, err
	}
	return proto, nil
}

func collectFields(n *Node, prefix string, proto *packet.Prototype) error {
	switch n.typ {
	case TypeStructure:
		for i, c := range n.children {
			path := prefix + "/" + n.childNames[i]
			if err := collectFields(c, path, proto); err != nil {
				return err
			}
		}
		return nil
	case TypeInteger:
		proto.Fields = append(proto.Fields, packet.FieldSpec{
			Path: prefix, Kind: packet.FieldInteger, Min: n.intMin, Max: n.intMax,
		})
		return nil
	case TypeScaledInteger:
		proto.Fields = append(proto.Fields, packet.FieldSpec{
			Path: prefix, Kind: packet.FieldScaledInteger, Min: n.intMin, Max: n.intMax,
			Scale: n.scale, Offset: n.offset,
		})
		return nil
	case TypeFloat:
		kind := packet.FieldFloat64
		if n.precision == Single {
			kind = packet.FieldFloat32
		}
		proto.Fields = append(proto.Fields, packet.FieldSpec{
			Path: prefix, Kind: kind, FMin: n.floatMin, FMax: n.floatMax,
		})
		return nil
	case TypeString:
		proto.Fields = append(proto.Fields, packet.FieldSpec{Path: prefix, Kind: packet.FieldString})
		return nil
	default:
		return newErr("buildPrototype", BadAPIArgument)
	}
}
