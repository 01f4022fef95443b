package e57

import (
	"github.com/rtlab-ims-pub/libE57Format/packet"
)

// CompressedVectorWriter drives the packet codec across many write
// calls: it batches records into the pending data packet, cuts a new
// packet whenever the next record would overflow it, and on Close
// flushes the tail packet, builds the hierarchical index, and patches
// the CompressedVector node's header fields.
type CompressedVectorWriter struct {
	container *Container
	node      *Node
	proto     packet.Prototype
	buffers   []SourceDestBuffer
	enc       *packet.Encoder

	open    bool
	sickErr error

	records      int64
	firstOffset  int64
	haveFirst    bool
	indexEntries []packet.IndexEntry
}

// NewCompressedVectorWriter opens a writer over node, bound to buffers.
// Fails with TooManyWriters if any writer or reader is already open on
// the container.
func NewCompressedVectorWriter(node *Node, buffers []SourceDestBuffer) (*CompressedVectorWriter, error) {
	const op = "NewCompressedVectorWriter"
	if node.typ != TypeCompressedVector {
		return nil, newErr(op, BadNodeDowncast)
	}
	c := node.container
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}
	proto, err := buildPrototype(node.prototype)
	if err != nil {
		return nil, err
	}
	ordered, err := bindBuffers(op, proto, buffers)
	if err != nil {
		return nil, err
	}
	if err := c.addWriter(op, node); err != nil {
		return nil, err
	}
	return &CompressedVectorWriter{
		container: c,
		node:      node,
		proto:     proto,
		buffers:   ordered,
		enc:       packet.NewEncoder(proto, c.pf.PayloadPerPage()),
		open:      true,
	}, nil
}

// Write consumes the first n elements of each bound buffer. Callers
// refill their buffers between calls; a record that fails bounds
// validation leaves the writer's state (and the pending packet buffer)
// untouched, per spec.md §7.
func (w *CompressedVectorWriter) Write(n int) error {
	const op = "CompressedVectorWriter.write"
	if !w.open {
		return newErr(op, WriterNotOpen)
	}
	if w.sickErr != nil {
		return wrapErr(op, ImageFileNotOpen, w.sickErr)
	}
	for i := 0; i < n; i++ {
		values := make([]packet.Value, len(w.proto.Fields))
		for f := range w.proto.Fields {
			v, err := valueFromBuffer(op, w.proto.Fields[f], w.buffers[f], i)
			if err != nil {
				return err
			}
			values[f] = v
		}
		if err := w.enc.PutRecord(values); err != nil {
			return wrapErr(op, ValueOutOfBounds, err)
		}
		w.records++
		if w.enc.PendingContentLen() >= packet.MaxPacketLength-256 {
			if err := w.flush(false); err != nil {
				w.sickErr = err
				w.container.markSick(err)
				return wrapErr(op, WriteFailed, err)
			}
		}
	}
	return nil
}

// WriteBuffers rebinds w to buffers (replacing only their contents,
// per the SourceDestBuffer binding contract) and then writes n records
// from them, equivalent to the source library's write(buffers, n).
func (w *CompressedVectorWriter) WriteBuffers(buffers []SourceDestBuffer, n int) error {
	const op = "CompressedVectorWriter.write"
	ordered, err := bindBuffers(op, w.proto, buffers)
	if err != nil {
		return err
	}
	if err := validateRebind(op, w.buffers, ordered); err != nil {
		return err
	}
	w.buffers = ordered
	return w.Write(n)
}

func (w *CompressedVectorWriter) flush(final bool) error {
	var fields [][]byte
	var count int
	if final {
		fields, count = w.enc.FlushFinal()
	} else {
		fields, count = w.enc.Flush()
	}
	if count == 0 {
		return nil
	}
	buf, err := packet.EncodeDataPacket(fields, w.container.pf.PayloadPerPage())
	if err != nil {
		return err
	}
	offset, err := w.container.pf.AppendPages(buf)
	if err != nil {
		return err
	}
	if !w.haveFirst {
		w.firstOffset = offset
		w.haveFirst = true
	}
	w.indexEntries = append(w.indexEntries, packet.IndexEntry{
		FirstRecord: w.records - int64(count),
		Offset:      offset,
	})
	return nil
}

// Close flushes the tail packet, writes the index, and patches the
// CompressedVector node's record_count and data_packet_offset.
// Idempotent: a second Close call succeeds without effect.
func (w *CompressedVectorWriter) Close() error {
	const op = "CompressedVectorWriter.close"
	if !w.open {
		return nil
	}
	if w.sickErr == nil {
		if err := w.flush(true); err != nil {
			w.container.markSick(err)
			w.open = false
			w.container.removeWriter()
			return wrapErr(op, WriteFailed, err)
		}
		if len(w.indexEntries) > 0 {
			payloadPerPage := w.container.pf.PayloadPerPage()
			leaves, err := packet.BuildLeaves(w.indexEntries, payloadPerPage)
			if err != nil {
				w.container.markSick(err)
				w.open = false
				w.container.removeWriter()
				return wrapErr(op, WriteFailed, err)
			}
			leafOffsets := make([]int64, len(leaves))
			for i, leaf := range leaves {
				off, err := w.container.pf.AppendPages(leaf)
				if err != nil {
					w.container.markSick(err)
					w.open = false
					w.container.removeWriter()
					return wrapErr(op, WriteFailed, err)
				}
				leafOffsets[i] = off
			}
			firstRecords := packet.LeafFirstRecords(w.indexEntries)
			root, err := packet.EncodeRoot(firstRecords, leafOffsets, payloadPerPage)
			if err != nil {
				w.container.markSick(err)
				w.open = false
				w.container.removeWriter()
				return wrapErr(op, WriteFailed, err)
			}
			rootOffset, err := w.container.pf.AppendPages(root)
			if err != nil {
				w.container.markSick(err)
				w.open = false
				w.container.removeWriter()
				return wrapErr(op, WriteFailed, err)
			}
			w.node.indexOffset = rootOffset
		}
		w.node.recordCount = w.records
		w.node.dataPacketOffset = w.firstOffset
	}
	w.open = false
	w.container.removeWriter()
	return nil
}

// CheckInvariant verifies the writer's own bookkeeping against its
// container: the CompressedVector node must be attached, the container
// must show exactly one open writer and no open reader, and (if
// doRecurse) the node itself must satisfy its own invariant. doUpcast
// is accepted for signature symmetry with Node.CheckInvariant; a
// CompressedVectorWriter has no further concrete-type predicates to
// re-check beyond what doRecurse already covers.
func (w *CompressedVectorWriter) CheckInvariant(doRecurse, doUpcast bool) error {
	const op = "CheckInvariant"
	if !w.open {
		return newErr(op, InvarianceViolation)
	}
	if !w.node.IsAttached() {
		return newErr(op, InvarianceViolation)
	}
	if w.container.writerCount != 1 {
		return newErr(op, InvarianceViolation)
	}
	if w.container.readerCount > 0 {
		return newErr(op, InvarianceViolation)
	}
	if doRecurse {
		if err := w.node.CheckInvariant(doRecurse, doUpcast); err != nil {
			return err
		}
	}
	return nil
}

// IsOpen reports whether the writer has not yet been closed.
func (w *CompressedVectorWriter) IsOpen() bool { return w.open }

// CompressedVectorNode returns the node this writer is writing into.
func (w *CompressedVectorWriter) CompressedVectorNode() *Node { return w.node }
