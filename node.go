package e57

import (
	"strconv"
	"strings"
)

// Node is the tagged union of every E57 node variant. It doubles as
// its own handle: a *Node is shared freely between callers the way a
// reference-counted handle would be in the source ecosystem, and Go's
// garbage collector reclaims it (and any cycle it might be part of)
// once nothing references it, so no weak back-reference is needed for
// the child->parent link the way the original design called for.
type Node struct {
	typ         NodeType
	container   *Container
	parent      *Node
	elementName string
	attached    bool

	// Integer / ScaledInteger (raw domain)
	intValue, intMin, intMax int64
	scale, offset            float64 // ScaledInteger only

	// Float
	floatValue, floatMin, floatMax float64
	precision                      FloatPrecision

	// String
	strValue string

	// Blob
	blobLength int64
	blobOffset int64

	// Vector / Structure
	children    []*Node
	childNames  []string // Structure only, parallel to children
	allowHetero bool     // Vector only

	// CompressedVector
	prototype        *Node
	codecs           *Node
	recordCount      int64
	dataPacketOffset int64
	indexOffset      int64
}

// NewIntegerNode creates a detached Integer node against container.
func NewIntegerNode(c *Container, value, min, max int64) (*Node, error) {
	const op = "NewIntegerNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	if value < min || value > max {
		return nil, newErr(op, ValueOutOfBounds)
	}
	return &Node{typ: TypeInteger, container: c, intValue: value, intMin: min, intMax: max}, nil
}

// NewScaledIntegerNode creates a detached ScaledInteger node.
func NewScaledIntegerNode(c *Container, raw, min, max int64, scale, offset float64) (*Node, error) {
	const op = "NewScaledIntegerNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	if raw < min || raw > max {
		return nil, newErr(op, ValueOutOfBounds)
	}
	return &Node{typ: TypeScaledInteger, container: c, intValue: raw, intMin: min, intMax: max, scale: scale, offset: offset}, nil
}

// NewFloatNode creates a detached Float node.
func NewFloatNode(c *Container, value float64, precision FloatPrecision, min, max float64) (*Node, error) {
	const op = "NewFloatNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	if value < min || value > max {
		return nil, newErr(op, ValueOutOfBounds)
	}
	return &Node{typ: TypeFloat, container: c, floatValue: value, precision: precision, floatMin: min, floatMax: max}, nil
}

// NewStringNode creates a detached String node.
func NewStringNode(c *Container, value string) (*Node, error) {
	const op = "NewStringNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	return &Node{typ: TypeString, container: c, strValue: value}, nil
}

// NewBlobNode creates a detached Blob node of the given declared length.
// Only the declared length is recorded (see ByteCount); no byte range is
// allocated in the container for the blob's contents, and there is no
// operation to write or read them.
func NewBlobNode(c *Container, length int64) (*Node, error) {
	const op = "NewBlobNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, newErr(op, BadAPIArgument)
	}
	return &Node{typ: TypeBlob, container: c, blobLength: length}, nil
}

// NewVectorNode creates a detached Vector node.
func NewVectorNode(c *Container, allowHeteroChildren bool) (*Node, error) {
	const op = "NewVectorNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	return &Node{typ: TypeVector, container: c, allowHetero: allowHeteroChildren}, nil
}

// NewStructureNode creates a detached Structure node.
func NewStructureNode(c *Container) (*Node, error) {
	const op = "NewStructureNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	return &Node{typ: TypeStructure, container: c}, nil
}

// NewCompressedVectorNode creates a detached CompressedVector node.
// prototype must be a detached Structure of terminal typed nodes
// declared against the same container.
func NewCompressedVectorNode(c *Container, prototype, codecs *Node) (*Node, error) {
	const op = "NewCompressedVectorNode"
	if err := c.checkWritable(op); err != nil {
		return nil, err
	}
	if prototype == nil || prototype.typ != TypeStructure || prototype.container != c {
		return nil, newErr(op, BadAPIArgument)
	}
	if prototype.attached {
		return nil, newErr(op, AlreadyHasParent)
	}
	n := &Node{typ: TypeCompressedVector, container: c, prototype: prototype, codecs: codecs}
	prototype.parent = n
	return n, nil
}

// IsRoot reports whether n is its container's root node.
func (n *Node) IsRoot() bool { return n.container != nil && n.container.root == n }

// Parent returns n's parent, or n itself if n is the root.
func (n *Node) Parent() *Node {
	if n.IsRoot() || n.parent == nil {
		return n
	}
	return n.parent
}

// ElementName returns the name n was attached under, or "" if detached
// or root.
func (n *Node) ElementName() string { return n.elementName }

// DestImageFile returns the container this node was declared against.
func (n *Node) DestImageFile() *Container { return n.container }

// IsAttached reports whether n is reachable from its container's root.
func (n *Node) IsAttached() bool { return n.attached || n.IsRoot() }

// Type returns n's variant tag.
func (n *Node) Type() NodeType { return n.typ }

// PathName returns the absolute, '/'-separated path from the root to n.
// It is only meaningful once n is attached.
func (n *Node) PathName() string {
	if n.IsRoot() {
		return "/"
	}
	var parts []string
	cur := n
	for cur != nil && !cur.IsRoot() {
		parts = append([]string{cur.elementName}, parts...)
		cur = cur.parent
	}
	return "/" + strings.Join(parts, "/")
}

// Value returns an Integer, ScaledInteger (raw), or Float node's value.
func (n *Node) Value() (float64, error) {
	switch n.typ {
	case TypeInteger, TypeScaledInteger:
		return float64(n.intValue), nil
	case TypeFloat:
		return n.floatValue, nil
	default:
		return 0, newErr("Value", BadNodeDowncast)
	}
}

// Minimum returns an Integer/ScaledInteger/Float node's declared minimum.
func (n *Node) Minimum() (float64, error) {
	switch n.typ {
	case TypeInteger, TypeScaledInteger:
		return float64(n.intMin), nil
	case TypeFloat:
		return n.floatMin, nil
	default:
		return 0, newErr("Minimum", BadNodeDowncast)
	}
}

// Maximum returns an Integer/ScaledInteger/Float node's declared maximum.
func (n *Node) Maximum() (float64, error) {
	switch n.typ {
	case TypeInteger, TypeScaledInteger:
		return float64(n.intMax), nil
	case TypeFloat:
		return n.floatMax, nil
	default:
		return 0, newErr("Maximum", BadNodeDowncast)
	}
}

// Scale returns a ScaledInteger node's scale factor.
func (n *Node) Scale() (float64, error) {
	if n.typ != TypeScaledInteger {
		return 0, newErr("Scale", BadNodeDowncast)
	}
	return n.scale, nil
}

// Offset returns a ScaledInteger node's offset.
func (n *Node) Offset() (float64, error) {
	if n.typ != TypeScaledInteger {
		return 0, newErr("Offset", BadNodeDowncast)
	}
	return n.offset, nil
}

// ByteCount returns a Blob or String node's length in bytes.
func (n *Node) ByteCount() (int64, error) {
	switch n.typ {
	case TypeBlob:
		return n.blobLength, nil
	case TypeString:
		return int64(len(n.strValue)), nil
	default:
		return 0, newErr("ByteCount", BadNodeDowncast)
	}
}

// StringValue returns a String node's value.
func (n *Node) StringValue() (string, error) {
	if n.typ != TypeString {
		return "", newErr("StringValue", BadNodeDowncast)
	}
	return n.strValue, nil
}

// Children returns a Vector or Structure node's children, in
// attachment order.
func (n *Node) Children() ([]*Node, error) {
	switch n.typ {
	case TypeVector, TypeStructure:
		return n.children, nil
	default:
		return nil, newErr("Children", BadNodeDowncast)
	}
}

// Get resolves a child by path (Structure) or index (Vector), relative
// to n. A leading "/" is treated as relative to n's own subtree.
func (n *Node) Get(path string) (*Node, error) {
	const op = "Get"
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return n, nil
	}
	head, rest, hasRest := strings.Cut(path, "/")
	var child *Node
	switch n.typ {
	case TypeStructure:
		idx := indexOfName(n.childNames, head)
		if idx < 0 {
			return nil, newErr(op, PathUndefined)
		}
		child = n.children[idx]
	case TypeVector:
		i, err := strconv.Atoi(head)
		if err != nil || i < 0 || i >= len(n.children) {
			return nil, newErr(op, PathUndefined)
		}
		child = n.children[i]
	case TypeCompressedVector:
		if head != "prototype" {
			return nil, newErr(op, PathUndefined)
		}
		child = n.prototype
	default:
		return nil, newErr(op, PathUndefined)
	}
	if !hasRest {
		return child, nil
	}
	return child.Get(rest)
}

// Set attaches child under name (Structure) or at index (Vector).
func (n *Node) Set(name string, child *Node) error {
	const op = "Set"
	if child.container != n.container {
		return newErr(op, BadAPIArgument)
	}
	if child.attached {
		return newErr(op, AlreadyHasParent)
	}
	if n.attached && n.container != nil && n.container.writingSubtreeContains(n) {
		return newErr(op, SetTwice)
	}
	switch n.typ {
	case TypeStructure:
		if !validIdentifier(name) || indexOfName(n.childNames, name) >= 0 {
			return newErr(op, BadPathName)
		}
		n.children = append(n.children, child)
		n.childNames = append(n.childNames, name)
	case TypeVector:
		if len(n.children) > 0 && !n.allowHetero {
			if !sameShape(n.children[0], child) {
				return newErr(op, BadAPIArgument)
			}
		}
		n.children = append(n.children, child)
	default:
		return newErr(op, BadNodeDowncast)
	}
	child.elementName = name
	child.parent = n
	if n.IsAttached() {
		attachSubtree(child)
	}
	return nil
}

func attachSubtree(n *Node) {
	n.attached = true
	for _, c := range n.children {
		attachSubtree(c)
	}
	if n.typ == TypeCompressedVector && n.prototype != nil {
		attachSubtree(n.prototype)
	}
}

func indexOfName(names []string, name string) int {
	for i, s := range names {
		if s == name {
			return i
		}
	}
	return -1
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// sameShape reports whether two nodes are structurally identical:
// same type and, for aggregates, recursively same-shaped children.
func sameShape(a, b *Node) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeStructure:
		if len(a.children) != len(b.children) {
			return false
		}
		for i := range a.children {
			if a.childNames[i] != b.childNames[i] || !sameShape(a.children[i], b.children[i]) {
				return false
			}
		}
		return true
	case TypeVector:
		if len(a.children) != len(b.children) {
			return false
		}
		for i := range a.children {
			if !sameShape(a.children[i], b.children[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
