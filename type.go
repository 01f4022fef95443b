package e57

// NodeType tags which variant of the E57 node union a Node holds.
type NodeType int

const (
	TypeInteger NodeType = iota
	TypeScaledInteger
	TypeFloat
	TypeString
	TypeBlob
	TypeVector
	TypeStructure
	TypeCompressedVector
)

func (t NodeType) String() string {
	switch t {
	case TypeInteger:
		return "Integer"
	case TypeScaledInteger:
		return "ScaledInteger"
	case TypeFloat:
		return "Float"
	case TypeString:
		return "String"
	case TypeBlob:
		return "Blob"
	case TypeVector:
		return "Vector"
	case TypeStructure:
		return "Structure"
	case TypeCompressedVector:
		return "CompressedVector"
	default:
		return "Unknown"
	}
}

// FloatPrecision selects the storage width of a Float node.
type FloatPrecision int

const (
	Single FloatPrecision = iota
	Double
)

// ElementKind names the in-memory element type of a SourceDestBuffer.
type ElementKind int

const (
	KindI8 ElementKind = iota
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindUString
)
