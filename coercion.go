package e57

import (
	"math"

	"github.com/rtlab-ims-pub/libE57Format/packet"
)

// valueFromBuffer reads element i out of b and produces the
// packet.Value the encoder should validate and store, per spec.md
// §4.4. Only encode-time coercions are needed here; encode never
// leaves the writer sick, so failures surface as plain
// ExpectingNumeric/ExpectingUString/ConversionRequired/Real64TooLarge
// errors. Bounds are not checked here: the encoder rejects
// out-of-range values afterwards (ValueOutOfBounds, via Write).
func valueFromBuffer(op string, spec packet.FieldSpec, b SourceDestBuffer, i int) (packet.Value, error) {
	switch spec.Kind {
	case packet.FieldInteger, packet.FieldScaledInteger:
		if b.Kind == KindUString {
			return packet.Value{}, newErr(op, ExpectingNumeric)
		}
		if spec.Kind == packet.FieldScaledInteger && b.DoScaling && isFloatKind(b.Kind) {
			scaled := floatAt(b, i)
			raw := int64(math.Round((scaled - spec.Offset) / spec.Scale))
			return packet.Value{Kind: spec.Kind, I: raw}, nil
		}
		if isFloatKind(b.Kind) {
			if !b.DoConversion {
				return packet.Value{}, newErr(op, ConversionRequired)
			}
			f := math.Trunc(floatAt(b, i))
			if f > 9.223372036854775e18 || f < -9.223372036854775e18 {
				return packet.Value{}, newErr(op, Real64TooLarge)
			}
			return packet.Value{Kind: spec.Kind, I: int64(f)}, nil
		}
		return packet.Value{Kind: spec.Kind, I: intAt(b, i)}, nil
	case packet.FieldFloat32:
		if b.Kind == KindUString {
			return packet.Value{}, newErr(op, ExpectingNumeric)
		}
		return packet.Value{Kind: spec.Kind, F32: float32(floatAt(b, i))}, nil
	case packet.FieldFloat64:
		if b.Kind == KindUString {
			return packet.Value{}, newErr(op, ExpectingNumeric)
		}
		return packet.Value{Kind: spec.Kind, F64: floatAt(b, i)}, nil
	case packet.FieldString:
		if b.Kind != KindUString {
			return packet.Value{}, newErr(op, ExpectingUString)
		}
		return packet.Value{Kind: spec.Kind, S: b.Str[i]}, nil
	default:
		return packet.Value{}, newErr(op, InternalError)
	}
}

// valueToBuffer delivers a decoded packet.Value into element i of b,
// applying the type-coercion rules of spec.md §4.4. Errors from this
// function put the reader into the sick state.
func valueToBuffer(op string, spec packet.FieldSpec, v packet.Value, b SourceDestBuffer, i int) error {
	switch v.Kind {
	case packet.FieldInteger, packet.FieldScaledInteger:
		if b.Kind == KindUString {
			return newErr(op, ExpectingUString)
		}
		if v.Kind == packet.FieldScaledInteger && b.DoScaling && isFloatKind(b.Kind) {
			scaled := float64(v.I)*spec.Scale + spec.Offset
			return setFloatAt(b, i, scaled)
		}
		if isFloatKind(b.Kind) {
			f := float64(v.I)
			exact := int64(f) == v.I
			if b.Kind == KindF32 {
				exact = int64(float32(f)) == v.I
			}
			if !exact {
				return newErr(op, ScaledValueNotRepresentable)
			}
			return setFloatAt(b, i, f)
		}
		return setIntAt(op, b, i, v.I)
	case packet.FieldFloat32, packet.FieldFloat64:
		if b.Kind == KindUString {
			return newErr(op, ExpectingUString)
		}
		f := v.F64
		if v.Kind == packet.FieldFloat32 {
			f = float64(v.F32)
		}
		if isFloatKind(b.Kind) {
			return setFloatAt(b, i, f)
		}
		if !b.DoConversion {
			return newErr(op, ConversionRequired)
		}
		if f != math.Trunc(f) {
			// rounds toward zero per spec.md §4.4
			f = math.Trunc(f)
		}
		if f > 9.223372036854775e18 || f < -9.223372036854775e18 {
			return newErr(op, Real64TooLarge)
		}
		return setIntAt(op, b, i, int64(f))
	case packet.FieldString:
		if b.Kind != KindUString {
			return newErr(op, ExpectingNumeric)
		}
		b.Str[i] = v.S
		return nil
	default:
		return newErr(op, InternalError)
	}
}

func isFloatKind(k ElementKind) bool { return k == KindF32 || k == KindF64 }

func intAt(b SourceDestBuffer, i int) int64 {
	switch b.Kind {
	case KindI8:
		return int64(b.I8[i])
	case KindI16:
		return int64(b.I16[i])
	case KindI32:
		return int64(b.I32[i])
	case KindI64:
		return b.I64[i]
	default:
		return 0
	}
}

func floatAt(b SourceDestBuffer, i int) float64 {
	switch b.Kind {
	case KindF32:
		return float64(b.F32[i])
	case KindF64:
		return b.F64[i]
	case KindI8:
		return float64(b.I8[i])
	case KindI16:
		return float64(b.I16[i])
	case KindI32:
		return float64(b.I32[i])
	case KindI64:
		return float64(b.I64[i])
	default:
		return 0
	}
}

func setFloatAt(b SourceDestBuffer, i int, v float64) error {
	switch b.Kind {
	case KindF32:
		b.F32[i] = float32(v)
	case KindF64:
		b.F64[i] = v
	default:
		return newErr("setFloatAt", InternalError)
	}
	return nil
}

// setIntAt range-checks v against b's element width before storing,
// per spec.md §4.4's Integer -> Integer coercion rule.
func setIntAt(op string, b SourceDestBuffer, i int, v int64) error {
	switch b.Kind {
	case KindI8:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return newErr(op, ValueNotRepresentable)
		}
		b.I8[i] = int8(v)
	case KindI16:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return newErr(op, ValueNotRepresentable)
		}
		b.I16[i] = int16(v)
	case KindI32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return newErr(op, ValueNotRepresentable)
		}
		b.I32[i] = int32(v)
	case KindI64:
		b.I64[i] = v
	default:
		return newErr(op, InternalError)
	}
	return nil
}
