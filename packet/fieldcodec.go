package packet

import (
	"encoding/binary"
	"math"
)

// fieldEncoder accumulates one prototype field's values across many
// PutRecord calls and hands back whole bytes as data packets are cut.
type fieldEncoder interface {
	validate(v Value) error
	put(v Value)
	pendingLen() int
	hasLeftoverBits() bool
	flush() []byte
	finish() []byte
}

func newFieldEncoder(spec FieldSpec) fieldEncoder {
	switch spec.Kind {
	case FieldInteger, FieldScaledInteger:
		return &intFieldEncoder{spec: spec, width: spec.BitWidth()}
	case FieldFloat32:
		return &floatFieldEncoder{spec: spec, width: 4}
	case FieldFloat64:
		return &floatFieldEncoder{spec: spec, width: 8}
	case FieldString:
		return &stringFieldEncoder{}
	default:
		panic("packet: unknown field kind")
	}
}

// -- Integer / ScaledInteger -------------------------------------------------

type intFieldEncoder struct {
	spec  FieldSpec
	width int
	bw    bitWriter
}

func (e *intFieldEncoder) validate(v Value) error {
	if v.I < e.spec.Min || v.I > e.spec.Max {
		return &OutOfBoundsError{Path: e.spec.Path, Value: float64(v.I), Min: float64(e.spec.Min), Max: float64(e.spec.Max)}
	}
	return nil
}

func (e *intFieldEncoder) put(v Value) {
	e.bw.writeBits(uint64(v.I-e.spec.Min), e.width)
}

func (e *intFieldEncoder) pendingLen() int      { return len(e.bw.out) }
func (e *intFieldEncoder) hasLeftoverBits() bool { return e.bw.accBits > 0 }
func (e *intFieldEncoder) flush() []byte         { return e.bw.takeBytes() }
func (e *intFieldEncoder) finish() []byte        { return e.bw.finish() }

// -- Float32 / Float64 -------------------------------------------------------

type floatFieldEncoder struct {
	spec  FieldSpec
	width int
	buf   []byte
}

func (e *floatFieldEncoder) validate(v Value) error {
	var f float64
	if e.width == 4 {
		f = float64(v.F32)
	} else {
		f = v.F64
	}
	if f < e.spec.FMin || f > e.spec.FMax {
		return &OutOfBoundsError{Path: e.spec.Path, Value: f, Min: e.spec.FMin, Max: e.spec.FMax}
	}
	return nil
}

func (e *floatFieldEncoder) put(v Value) {
	if e.width == 4 {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v.F32))
		e.buf = append(e.buf, b[:]...)
	} else {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.F64))
		e.buf = append(e.buf, b[:]...)
	}
}

func (e *floatFieldEncoder) pendingLen() int      { return len(e.buf) }
func (e *floatFieldEncoder) hasLeftoverBits() bool { return false }
func (e *floatFieldEncoder) flush() []byte {
	out := e.buf
	e.buf = nil
	return out
}
func (e *floatFieldEncoder) finish() []byte { return e.flush() }

// -- String -------------------------------------------------------------

// stringFieldEncoder groups all record lengths (as uvarints) ahead of
// the concatenated UTF-8 payload, per record batch, so a scan that
// only needs lengths need not touch the string bytes.
type stringFieldEncoder struct {
	lens []byte
	data []byte
}

func (e *stringFieldEncoder) validate(v Value) error { return nil }

func (e *stringFieldEncoder) put(v Value) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(v.S)))
	e.lens = append(e.lens, tmp[:n]...)
	e.data = append(e.data, v.S...)
}

func (e *stringFieldEncoder) pendingLen() int      { return len(e.lens) + len(e.data) }
func (e *stringFieldEncoder) hasLeftoverBits() bool { return false }
func (e *stringFieldEncoder) flush() []byte {
	out := make([]byte, 0, len(e.lens)+len(e.data))
	out = append(out, e.lens...)
	out = append(out, e.data...)
	e.lens, e.data = nil, nil
	return out
}
func (e *stringFieldEncoder) finish() []byte { return e.flush() }
