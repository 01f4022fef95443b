package e57

import (
	"encoding/binary"
	"fmt"

	"github.com/rtlab-ims-pub/libE57Format/ints"
	"github.com/rtlab-ims-pub/libE57Format/packet"
)

// CompressedVectorReader is the read-side dual of CompressedVectorWriter:
// a stateful iterator holding per-field decoder state across calls,
// consuming data packets in record-number order and locating them
// through the container's hierarchical index on Seek.
type CompressedVectorReader struct {
	container *Container
	node      *Node
	proto     packet.Prototype
	buffers   []SourceDestBuffer
	dec       *packet.Decoder

	rootEntries []packet.IndexEntry // (firstRecord, leaf file offset), sorted
	nextRecord  int64               // next record number the decoder will yield
	nextPacket  int64               // logical offset of the next data packet to feed
	open        bool
	sick        error
}

// NewCompressedVectorReader opens a reader over node, bound to buffers.
// Fails with TooManyReaders if a writer is open on the container.
func NewCompressedVectorReader(node *Node, buffers []SourceDestBuffer) (*CompressedVectorReader, error) {
	const op = "NewCompressedVectorReader"
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
	if err := c.addReader(op); err != nil {
		return nil, err
	}
	r := &CompressedVectorReader{
		container:  c,
		node:       node,
		proto:      proto,
		buffers:    ordered,
		dec:        packet.NewDecoder(proto),
		nextPacket: node.dataPacketOffset,
		open:       true,
	}
	if node.indexOffset != 0 {
		buf, err := readPacketAt(c, node.indexOffset)
		if err != nil {
			c.removeReader()
			return nil, wrapErr(op, BadChecksum, err)
		}
		entries, err := packet.DecodeRootEntries(buf)
		if err != nil {
			c.removeReader()
			return nil, wrapErr(op, BadCVHeader, err)
		}
		r.rootEntries = entries
	}
	return r, nil
}

// readPacketAt reads one whole framed packet (data or index) starting
// at a logical offset, regardless of how many pages it spans: it reads
// one page to learn the packet's declared content length, then reads
// again in full if the packet turned out to span more than one page.
func readPacketAt(c *Container, offset int64) ([]byte, error) {
	payloadPerPage := c.pf.PayloadPerPage()
	head := make([]byte, payloadPerPage)
	if err := c.pf.ReadLogical(head, offset); err != nil {
		return nil, err
	}
	var contentLen int64
	switch head[0] {
	case packet.DataPacketType:
		contentLen = int64(binary.LittleEndian.Uint16(head[2:4])) + 1
	case packet.IndexPacketType:
		compLen := binary.LittleEndian.Uint32(head[5:9])
		contentLen = 9 + int64(compLen)
	default:
		return nil, fmt.Errorf("e57: unrecognized packet_type %d at offset %d", head[0], offset)
	}
	padded := int64(ints.AlignUp64(uint64(contentLen), uint64(payloadPerPage)))
	if padded <= payloadPerPage {
		return head[:padded], nil
	}
	full := make([]byte, padded)
	if err := c.pf.ReadLogical(full, offset); err != nil {
		return nil, err
	}
	return full, nil
}

// Read fills the first up-to-want records into the bound buffers,
// returning how many were delivered. It returns fewer than requested
// only at end-of-stream, and 0 forever after that.
func (r *CompressedVectorReader) Read(want int) (int, error) {
	const op = "CompressedVectorReader.read"
	if !r.open {
		return 0, newErr(op, ReaderNotOpen)
	}
	if r.sick != nil {
		return 0, wrapErr(op, ImageFileNotOpen, r.sick)
	}
	n := 0
	for n < want && r.nextRecord < r.node.recordCount {
		if r.dec.Pending() == 0 {
			if err := r.feedNextPacket(); err != nil {
				r.sick = err
				r.container.markSick(err)
				return n, wrapErr(op, ReadFailed, err)
			}
		}
		rec, err := r.dec.NextRecord()
		if err != nil {
			r.sick = err
			r.container.markSick(err)
			return n, wrapErr(op, ReadFailed, err)
		}
		for f := range r.proto.Fields {
			if err := valueToBuffer(op, r.proto.Fields[f], rec[f], r.buffers[f], n); err != nil {
				r.sick = err
				return n, err
			}
		}
		r.nextRecord++
		n++
	}
	return n, nil
}

// ReadBuffers rebinds r to buffers and then reads, equivalent to the
// source library's read(buffers).
func (r *CompressedVectorReader) ReadBuffers(buffers []SourceDestBuffer, want int) (int, error) {
	const op = "CompressedVectorReader.read"
	ordered, err := bindBuffers(op, r.proto, buffers)
	if err != nil {
		return 0, err
	}
	if err := validateRebind(op, r.buffers, ordered); err != nil {
		return 0, err
	}
	r.buffers = ordered
	return r.Read(want)
}

func (r *CompressedVectorReader) feedNextPacket() error {
	buf, err := readPacketAt(r.container, r.nextPacket)
	if err != nil {
		return err
	}
	dp, err := packet.DecodeDataPacket(buf)
	if err != nil {
		return err
	}
	remaining := r.node.recordCount - r.nextRecord
	count := remaining
	if cap := packetRecordCapacity(r.proto, dp); cap >= 0 && cap < count {
		count = cap
	}
	if err := r.dec.Feed(dp, int(count)); err != nil {
		return err
	}
	r.nextPacket += int64(len(buf))
	return nil
}

// packetRecordCapacity returns how many records a decoded data packet
// holds, computed from its widest fixed-width field (float bytestreams
// are exact). Returns -1 when the prototype has no float field to
// measure against, in which case the caller falls back to the
// CompressedVector's remaining record count.
func packetRecordCapacity(proto packet.Prototype, dp packet.DataPacket) int64 {
	best := int64(-1)
	for i, f := range proto.Fields {
		var n int64
		switch f.Kind {
		case packet.FieldFloat32:
			n = int64(len(dp.Bytestream[i])) / 4
		case packet.FieldFloat64:
			n = int64(len(dp.Bytestream[i])) / 8
		default:
			continue
		}
		if best < 0 || n < best {
			best = n
		}
	}
	return best
}

// Seek moves the read cursor to recordNumber, resetting all per-field
// decoder state and locating the data packet that contains it via the
// hierarchical index.
func (r *CompressedVectorReader) Seek(recordNumber int64) error {
	const op = "CompressedVectorReader.seek"
	if !r.open {
		return newErr(op, ReaderNotOpen)
	}
	if recordNumber < 0 || recordNumber > r.node.recordCount {
		return newErr(op, SeekFailed)
	}
	r.dec = packet.NewDecoder(r.proto)
	if recordNumber == r.node.recordCount {
		r.nextRecord = recordNumber
		r.nextPacket = 0
		return nil
	}
	leaf, err := r.findLeaf(recordNumber)
	if err != nil {
		r.sick = err
		r.container.markSick(err)
		return wrapErr(op, SeekFailed, err)
	}
	// The index entries are keyed by (record, data packet offset)
	// directly, so knowing the covering entry already gives an exact
	// data packet start; no further within-leaf lookup is needed.
	r.nextPacket = leaf.Offset
	r.nextRecord = leaf.FirstRecord
	for r.nextRecord < recordNumber {
		if err := r.feedNextPacket(); err != nil {
			r.sick = err
			r.container.markSick(err)
			return wrapErr(op, SeekFailed, err)
		}
		for r.nextRecord < recordNumber && r.dec.Pending() > 0 {
			if _, err := r.dec.NextRecord(); err != nil {
				r.sick = err
				r.container.markSick(err)
				return wrapErr(op, SeekFailed, err)
			}
			r.nextRecord++
		}
	}
	return nil
}

func (r *CompressedVectorReader) findLeaf(recordNumber int64) (packet.IndexEntry, error) {
	if len(r.rootEntries) == 0 {
		return packet.IndexEntry{}, newErr("seek", BadCVHeader)
	}
	bestIdx := 0
	for i, e := range r.rootEntries {
		if e.FirstRecord > recordNumber {
			break
		}
		bestIdx = i
	}
	best := r.rootEntries[bestIdx]
	nextFirstRecord := r.node.recordCount
	if bestIdx+1 < len(r.rootEntries) {
		nextFirstRecord = r.rootEntries[bestIdx+1].FirstRecord
	}
	leafBuf, err := readPacketAt(r.container, best.Offset)
	if err != nil {
		return packet.IndexEntry{}, err
	}
	entries, err := packet.DecodeLeafEntries(leafBuf)
	if err != nil {
		return packet.IndexEntry{}, err
	}
	// Cross-check the leaf's own claimed coverage against the root
	// entry that pointed us here; a mismatch means the index is
	// internally inconsistent rather than that recordNumber is bad.
	covered := packet.LeafRange(entries, nextFirstRecord)
	if recordNumber < int64(covered.Start) || recordNumber >= int64(covered.End) {
		return packet.IndexEntry{}, newErr("seek", BadCVHeader)
	}
	target := entries[0]
	for _, e := range entries {
		if e.FirstRecord > recordNumber {
			break
		}
		target = e
	}
	return target, nil
}

// Close releases the reader's slot in the container. Idempotent.
func (r *CompressedVectorReader) Close() error {
	if !r.open {
		return nil
	}
	r.open = false
	r.container.removeReader()
	return nil
}

// CheckInvariant verifies the reader's own bookkeeping against its
// container: the CompressedVector node must be attached, the container
// must show at least one open reader and no open writer, and (if
// doRecurse) the node itself must satisfy its own invariant. doUpcast
// is accepted for signature symmetry with Node.CheckInvariant; a
// CompressedVectorReader has no further concrete-type predicates to
// re-check beyond what doRecurse already covers.
func (r *CompressedVectorReader) CheckInvariant(doRecurse, doUpcast bool) error {
	const op = "CheckInvariant"
	if !r.open {
		return newErr(op, InvarianceViolation)
	}
	if !r.node.IsAttached() {
		return newErr(op, InvarianceViolation)
	}
	if r.container.readerCount < 1 {
		return newErr(op, InvarianceViolation)
	}
	if r.container.writerCount > 0 {
		return newErr(op, InvarianceViolation)
	}
	if doRecurse {
		if err := r.node.CheckInvariant(doRecurse, doUpcast); err != nil {
			return err
		}
	}
	return nil
}

// IsOpen reports whether the reader has not yet been closed.
func (r *CompressedVectorReader) IsOpen() bool { return r.open }

// CompressedVectorNode returns the node this reader is reading from.
func (r *CompressedVectorReader) CompressedVectorNode() *Node { return r.node }
