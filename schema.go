package e57

import (
	"encoding/binary"
	"fmt"
	"math"
)

// The real ASTM E57 XML schema section is an external collaborator's
// job (see SPEC_FULL.md); this file implements a private, compact TLV
// encoding of the attached node tree that occupies the same logical
// byte range, purely so a container built and closed by this package
// can be reopened and its tree walked again in tests and by callers
// that don't need standards-compliant XML interchange.

func encodeSchema(root *Node) []byte {
	return encodeNode(nil, root)
}

func encodeNode(buf []byte, n *Node) []byte {
	buf = append(buf, byte(n.typ))
	switch n.typ {
	case TypeInteger:
		buf = putVarint(buf, n.intValue)
		buf = putVarint(buf, n.intMin)
		buf = putVarint(buf, n.intMax)
	case TypeScaledInteger:
		buf = putVarint(buf, n.intValue)
		buf = putVarint(buf, n.intMin)
		buf = putVarint(buf, n.intMax)
		buf = putFloat64(buf, n.scale)
		buf = putFloat64(buf, n.offset)
	case TypeFloat:
		buf = append(buf, byte(n.precision))
		buf = putFloat64(buf, n.floatValue)
		buf = putFloat64(buf, n.floatMin)
		buf = putFloat64(buf, n.floatMax)
	case TypeString:
		buf = putString(buf, n.strValue)
	case TypeBlob:
		buf = putVarint(buf, n.blobLength)
		buf = putVarint(buf, n.blobOffset)
	case TypeVector:
		buf = append(buf, boolByte(n.allowHetero))
		buf = putUvarint(buf, uint64(len(n.children)))
		for _, c := range n.children {
			buf = encodeNode(buf, c)
		}
	case TypeStructure:
		buf = putUvarint(buf, uint64(len(n.children)))
		for i, c := range n.children {
			buf = putString(buf, n.childNames[i])
			buf = encodeNode(buf, c)
		}
	case TypeCompressedVector:
		buf = putVarint(buf, n.recordCount)
		buf = putVarint(buf, n.dataPacketOffset)
		buf = putVarint(buf, n.indexOffset)
		buf = encodeNode(buf, n.prototype)
		hasCodecs := n.codecs != nil
		buf = append(buf, boolByte(hasCodecs))
		if hasCodecs {
			buf = encodeNode(buf, n.codecs)
		}
	}
	return buf
}

func decodeSchema(c *Container, buf []byte) (*Node, error) {
	d := &schemaCursor{buf: buf}
	root, err := decodeNode(c, d)
	if err != nil {
		return nil, err
	}
	attachSubtree(root)
	root.attached = true
	return root, nil
}

func decodeNode(c *Container, d *schemaCursor) (*Node, error) {
	if d.err != nil {
		return nil, d.err
	}
	typ := NodeType(d.readByte())
	n := &Node{typ: typ, container: c}
	switch typ {
	case TypeInteger:
		n.intValue = d.readVarint()
		n.intMin = d.readVarint()
		n.intMax = d.readVarint()
	case TypeScaledInteger:
		n.intValue = d.readVarint()
		n.intMin = d.readVarint()
		n.intMax = d.readVarint()
		n.scale = d.readFloat64()
		n.offset = d.readFloat64()
	case TypeFloat:
		n.precision = FloatPrecision(d.readByte())
		n.floatValue = d.readFloat64()
		n.floatMin = d.readFloat64()
		n.floatMax = d.readFloat64()
	case TypeString:
		n.strValue = d.readString()
	case TypeBlob:
		n.blobLength = d.readVarint()
		n.blobOffset = d.readVarint()
	case TypeVector:
		n.allowHetero = d.readByte() != 0
		count := d.readUvarint()
		for i := uint64(0); i < count; i++ {
			child, err := decodeNode(c, d)
			if err != nil {
				return nil, err
			}
			child.parent = n
			child.elementName = fmt.Sprint(i)
			n.children = append(n.children, child)
		}
	case TypeStructure:
		count := d.readUvarint()
		for i := uint64(0); i < count; i++ {
			name := d.readString()
			child, err := decodeNode(c, d)
			if err != nil {
				return nil, err
			}
			child.parent = n
			child.elementName = name
			n.children = append(n.children, child)
			n.childNames = append(n.childNames, name)
		}
	case TypeCompressedVector:
		n.recordCount = d.readVarint()
		n.dataPacketOffset = d.readVarint()
		n.indexOffset = d.readVarint()
		proto, err := decodeNode(c, d)
		if err != nil {
			return nil, err
		}
		proto.parent = n
		n.prototype = proto
		if d.readByte() != 0 {
			codecs, err := decodeNode(c, d)
			if err != nil {
				return nil, err
			}
			codecs.parent = n
			n.codecs = codecs
		}
	default:
		return nil, fmt.Errorf("e57: unknown node tag %d in schema section", typ)
	}
	if d.err != nil {
		return nil, d.err
	}
	return n, nil
}

type schemaCursor struct {
	buf []byte
	off int
	err error
}

func (d *schemaCursor) readByte() byte {
	if d.err != nil || d.off >= len(d.buf) {
		d.fail()
		return 0
	}
	b := d.buf[d.off]
	d.off++
	return b
}

func (d *schemaCursor) readVarint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf[d.off:])
	if n <= 0 {
		d.fail()
		return 0
	}
	d.off += n
	return v
}

func (d *schemaCursor) readUvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.fail()
		return 0
	}
	d.off += n
	return v
}

func (d *schemaCursor) readFloat64() float64 {
	if d.err != nil || d.off+8 > len(d.buf) {
		d.fail()
		return 0
	}
	bits := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return math.Float64frombits(bits)
}

func (d *schemaCursor) readString() string {
	l := d.readUvarint()
	if d.err != nil || d.off+int(l) > len(d.buf) {
		d.fail()
		return ""
	}
	s := string(d.buf[d.off : d.off+int(l)])
	d.off += int(l)
	return s
}

func (d *schemaCursor) fail() {
	if d.err == nil {
		d.err = fmt.Errorf("e57: truncated schema section")
	}
}

func putVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func putUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func putFloat64(buf []byte, f float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	return append(buf, tmp[:]...)
}

func putString(buf []byte, s string) []byte {
	buf = putUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
