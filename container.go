package e57

import (
	"github.com/rtlab-ims-pub/libE57Format/pagefile"
)

// Logger is the optional diagnostic hook of a Container. Create and
// Open set it to a no-op implementation. No code in this module calls
// it, so setting it produces no output.
type Logger interface {
	Debugf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}

// Container is the top-level file object: a paged binary image, a root
// node, and the reader/writer bookkeeping that enforces at-most-one
// writer per container.
type Container struct {
	pf     *pagefile.PageFile
	root   *Node
	closed bool

	sick    bool
	sickErr error

	readerCount int
	writerCount int
	writingNode *Node // CompressedVector node currently open for writing, if any

	Logger Logger
}

// Create initializes a brand-new container over f.
func Create(f pagefile.File, pageSize int64) (*Container, error) {
	const op = "Create"
	pf, err := pagefile.Create(f, pageSize, pagefile.Header{VersionMajor: 1, VersionMinor: 0})
	if err != nil {
		return nil, wrapErr(op, InternalError, err)
	}
	c := &Container{pf: pf, Logger: noopLogger{}}
	c.root = &Node{typ: TypeStructure, container: c, attached: true}
	return c, nil
}

// Open attaches to an existing container image of the given physical
// length, decoding its persisted schema section.
func Open(f pagefile.File, physicalLength int64) (*Container, error) {
	const op = "Open"
	pf, h, err := pagefile.Open(f, physicalLength)
	if err != nil {
		return nil, wrapErr(op, BadChecksum, err)
	}
	c := &Container{pf: pf, Logger: noopLogger{}}
	if h.XMLLogicalLength == 0 {
		c.root = &Node{typ: TypeStructure, container: c, attached: true}
		return c, nil
	}
	buf := make([]byte, h.XMLLogicalLength)
	if err := pf.ReadLogical(buf, int64(h.XMLLogicalOffset)); err != nil {
		return nil, wrapErr(op, BadChecksum, err)
	}
	root, err := decodeSchema(c, buf)
	if err != nil {
		return nil, wrapErr(op, BadCVHeader, err)
	}
	c.root = root
	return c, nil
}

// Root returns the container's root Structure node.
func (c *Container) Root() *Node { return c.root }

// Close persists the schema section, patches the header, and closes
// the underlying pagefile. Idempotent.
func (c *Container) Close() error {
	const op = "Close"
	if c.closed {
		return nil
	}
	buf := encodeSchema(c.root)
	payloadPer := c.pf.PayloadPerPage()
	padded := int64(len(buf))
	if rem := padded % payloadPer; rem != 0 {
		padded += payloadPer - rem
	}
	padBuf := make([]byte, padded)
	copy(padBuf, buf)
	xmlOffset, err := c.pf.AppendPages(padBuf)
	if err != nil {
		return wrapErr(op, WriteFailed, err)
	}
	h, err := c.pf.ReadHeaderPage()
	if err != nil {
		return wrapErr(op, WriteFailed, err)
	}
	h.XMLLogicalOffset = uint64(xmlOffset)
	h.XMLLogicalLength = uint64(len(buf))
	h.FilePhysicalLength = uint64(c.pf.PhysicalLength())
	if err := c.pf.WriteHeaderPage(h); err != nil {
		return wrapErr(op, WriteFailed, err)
	}
	c.closed = true
	return c.pf.Close()
}

// checkOpen verifies the container is usable for any operation.
func (c *Container) checkOpen(op string) error {
	if c.closed {
		return newErr(op, ImageFileNotOpen)
	}
	if c.sick {
		return wrapErr(op, ImageFileNotOpen, c.sickErr)
	}
	return nil
}

// checkWritable gates node construction. It performs exactly the checks
// of checkOpen: there is no read-only open mode, so FileReadOnly is
// never returned.
func (c *Container) checkWritable(op string) error { return c.checkOpen(op) }

// markSick marks the whole container sick, invalidating every derived
// handle until Close.
func (c *Container) markSick(err error) {
	c.sick = true
	c.sickErr = err
}

// writingSubtreeContains reports whether n falls under the
// CompressedVector node currently open for writing, if any. Set is
// only rejected for nodes in that subtree; an unrelated Structure or
// Vector elsewhere in the tree stays mutable while some other
// CompressedVector is being written.
func (c *Container) writingSubtreeContains(n *Node) bool {
	if c.writingNode == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur == c.writingNode {
			return true
		}
	}
	return false
}

func (c *Container) addReader(op string) error {
	if err := c.checkOpen(op); err != nil {
		return err
	}
	if c.writerCount > 0 {
		return newErr(op, TooManyReaders)
	}
	c.readerCount++
	return nil
}

func (c *Container) removeReader() { c.readerCount-- }

func (c *Container) addWriter(op string, node *Node) error {
	if err := c.checkOpen(op); err != nil {
		return err
	}
	if c.writerCount > 0 || c.readerCount > 0 {
		return newErr(op, TooManyWriters)
	}
	c.writerCount++
	c.writingNode = node
	return nil
}

func (c *Container) removeWriter() {
	c.writerCount--
	c.writingNode = nil
}
