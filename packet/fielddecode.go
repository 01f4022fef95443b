package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// fieldDecoder is the read-side dual of fieldEncoder. feed supplies the
// next data packet's bytestream for this field; next extracts one
// record's value. Integer-kind decoders carry bit-level state across
// feed calls; float and string decoders are self-contained per packet
// because the writer never splits one of their records across packets.
type fieldDecoder interface {
	// feed supplies the next packet's raw bytestream for this field,
	// along with the number of records it encodes. count matters only
	// to the string decoder, which cannot otherwise tell where its
	// length table ends and its payload begins.
	feed(b []byte, count int)
	next() (Value, error)
}

func newFieldDecoder(spec FieldSpec) fieldDecoder {
	switch spec.Kind {
	case FieldInteger, FieldScaledInteger:
		return &intFieldDecoder{spec: spec, width: spec.BitWidth()}
	case FieldFloat32:
		return &floatFieldDecoder{width: 4}
	case FieldFloat64:
		return &floatFieldDecoder{width: 8}
	case FieldString:
		return &stringFieldDecoder{}
	default:
		panic("packet: unknown field kind")
	}
}

type intFieldDecoder struct {
	spec  FieldSpec
	width int
	br    bitReader
}

func (d *intFieldDecoder) feed(b []byte, count int) { d.br.feed(b) }

func (d *intFieldDecoder) next() (Value, error) {
	if d.br.available() < d.width {
		return Value{}, fmt.Errorf("packet: field %q starved of bits", d.spec.Path)
	}
	raw := int64(d.br.readBits(d.width)) + d.spec.Min
	return Value{Kind: d.spec.Kind, I: raw}, nil
}

type floatFieldDecoder struct {
	width int
	buf   []byte
	off   int
}

func (d *floatFieldDecoder) feed(b []byte, count int) {
	if d.off > 0 {
		d.buf = append(d.buf[:0], d.buf[d.off:]...)
		d.off = 0
	}
	d.buf = append(d.buf, b...)
}

func (d *floatFieldDecoder) next() (Value, error) {
	if len(d.buf)-d.off < d.width {
		return Value{}, fmt.Errorf("packet: float field starved of bytes")
	}
	chunk := d.buf[d.off : d.off+d.width]
	d.off += d.width
	if d.width == 4 {
		return Value{Kind: FieldFloat32, F32: math.Float32frombits(binary.LittleEndian.Uint32(chunk))}, nil
	}
	return Value{Kind: FieldFloat64, F64: math.Float64frombits(binary.LittleEndian.Uint64(chunk))}, nil
}

// stringFieldDecoder mirrors stringFieldEncoder's layout: all record
// lengths as uvarints, immediately followed by the concatenated
// payload bytes, once per fed packet.
type stringFieldDecoder struct {
	lens []int
	data []byte
	i    int
	off  int
}

func (d *stringFieldDecoder) feed(b []byte, count int) {
	ls := make([]int, count)
	off := 0
	for i := 0; i < count; i++ {
		l, n := binary.Uvarint(b[off:])
		if n <= 0 {
			ls = ls[:i]
			break
		}
		off += n
		ls[i] = int(l)
	}
	d.lens = ls
	d.data = b[off:]
	d.i = 0
	d.off = 0
}

func (d *stringFieldDecoder) next() (Value, error) {
	if d.i >= len(d.lens) {
		return Value{}, fmt.Errorf("packet: string field starved of records")
	}
	l := d.lens[d.i]
	if d.off+l > len(d.data) {
		return Value{}, fmt.Errorf("packet: string field bytestream truncated")
	}
	s := string(d.data[d.off : d.off+l])
	d.off += l
	d.i++
	return Value{Kind: FieldString, S: s}, nil
}
