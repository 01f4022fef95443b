package e57

import (
	"testing"

	"github.com/rtlab-ims-pub/libE57Format/packet"
)

func TestValueFromBufferScaling(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldScaledInteger, Min: -1000, Max: 1000, Scale: 0.01, Offset: 0}
	b := SourceDestBuffer{Kind: KindF64, F64: []float64{2.5}, DoScaling: true}
	v, err := valueFromBuffer("test", spec, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.I != 250 {
		t.Fatalf("raw = %d, want 250", v.I)
	}
}

func TestValueToBufferRequiresConversionForFloatToInt(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldFloat64}
	v := packet.Value{Kind: packet.FieldFloat64, F64: 3.9}
	b := SourceDestBuffer{Kind: KindI32, I32: make([]int32, 1)}
	if err := valueToBuffer("test", spec, v, b, 0); err == nil {
		t.Fatal("expected ConversionRequired without DoConversion")
	}
	b.DoConversion = true
	if err := valueToBuffer("test", spec, v, b, 0); err != nil {
		t.Fatal(err)
	}
	if b.I32[0] != 3 {
		t.Fatalf("truncated value = %d, want 3 (toward zero)", b.I32[0])
	}
}

func TestValueToBufferTruncatesNegativeTowardZero(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldFloat64}
	v := packet.Value{Kind: packet.FieldFloat64, F64: -3.9}
	b := SourceDestBuffer{Kind: KindI32, I32: make([]int32, 1), DoConversion: true}
	if err := valueToBuffer("test", spec, v, b, 0); err != nil {
		t.Fatal(err)
	}
	if b.I32[0] != -3 {
		t.Fatalf("truncated value = %d, want -3", b.I32[0])
	}
}

func TestValueToBufferRejectsUnrepresentableInt(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger}
	v := packet.Value{Kind: packet.FieldInteger, I: 1000}
	b := SourceDestBuffer{Kind: KindI8, I8: make([]int8, 1)}
	if err := valueToBuffer("test", spec, v, b, 0); err == nil {
		t.Fatal("expected ValueNotRepresentable for 1000 into an int8 buffer")
	}
}

func TestValueToBufferStringMismatch(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldString}
	v := packet.Value{Kind: packet.FieldString, S: "hi"}
	b := SourceDestBuffer{Kind: KindI32, I32: make([]int32, 1)}
	if err := valueToBuffer("test", spec, v, b, 0); err == nil {
		t.Fatal("expected ExpectingNumeric for a string value into a numeric buffer")
	}
}

func TestValueToBufferRejectsUnrepresentableIntToFloat64(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger}
	// 2^53+1 has no exact float64 representation.
	v := packet.Value{Kind: packet.FieldInteger, I: (1 << 53) + 1}
	b := SourceDestBuffer{Kind: KindF64, F64: make([]float64, 1)}
	err := valueToBuffer("test", spec, v, b, 0)
	if err == nil {
		t.Fatal("expected ScaledValueNotRepresentable")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ScaledValueNotRepresentable {
		t.Fatalf("got %v, want ScaledValueNotRepresentable", err)
	}
}

func TestValueToBufferRejectsUnrepresentableIntToFloat32(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger}
	// 2^24+1 has no exact float32 representation.
	v := packet.Value{Kind: packet.FieldInteger, I: (1 << 24) + 1}
	b := SourceDestBuffer{Kind: KindF32, F32: make([]float32, 1)}
	err := valueToBuffer("test", spec, v, b, 0)
	if err == nil {
		t.Fatal("expected ScaledValueNotRepresentable")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ScaledValueNotRepresentable {
		t.Fatalf("got %v, want ScaledValueNotRepresentable", err)
	}
}

func TestValueToBufferAllowsExactIntToFloat(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger}
	v := packet.Value{Kind: packet.FieldInteger, I: 12345}
	b := SourceDestBuffer{Kind: KindF64, F64: make([]float64, 1)}
	if err := valueToBuffer("test", spec, v, b, 0); err != nil {
		t.Fatal(err)
	}
	if b.F64[0] != 12345 {
		t.Fatalf("got %v, want 12345", b.F64[0])
	}
}

func TestValueFromBufferRequiresConversionForFloatToInt(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger, Min: 0, Max: 100}
	b := SourceDestBuffer{Kind: KindF64, F64: []float64{3.9}}
	if _, err := valueFromBuffer("test", spec, b, 0); err == nil {
		t.Fatal("expected ConversionRequired without DoConversion")
	}
	b.DoConversion = true
	v, err := valueFromBuffer("test", spec, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.I != 3 {
		t.Fatalf("truncated value = %d, want 3 (toward zero)", v.I)
	}
}

func TestValueFromBufferTruncatesNegativeFloatTowardZero(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger, Min: -100, Max: 100}
	b := SourceDestBuffer{Kind: KindF32, F32: []float32{-3.9}, DoConversion: true}
	v, err := valueFromBuffer("test", spec, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.I != -3 {
		t.Fatalf("truncated value = %d, want -3", v.I)
	}
}

func TestValueFromBufferConvertsFloatToScaledIntegerWithoutScaling(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldScaledInteger, Min: 0, Max: 100, Scale: 0.01}
	b := SourceDestBuffer{Kind: KindF64, F64: []float64{7.0}, DoConversion: true}
	v, err := valueFromBuffer("test", spec, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.I != 7 {
		t.Fatalf("raw value = %d, want 7 (DoScaling unset, plain conversion)", v.I)
	}
}

func TestValueFromBufferRejectsStringForNumericField(t *testing.T) {
	spec := packet.FieldSpec{Kind: packet.FieldInteger, Min: 0, Max: 10}
	b := SourceDestBuffer{Kind: KindUString, Str: []string{"x"}}
	if _, err := valueFromBuffer("test", spec, b, 0); err == nil {
		t.Fatal("expected ExpectingNumeric")
	}
}
