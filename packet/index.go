package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/rtlab-ims-pub/libE57Format/compr"
	"github.com/rtlab-ims-pub/libE57Format/ints"
)

// IndexPacketType is the packet_type tag of a CompressedVector index
// packet.
const IndexPacketType = 0

// leafCapacity bounds how many (recordStart, offset) entries a single
// leaf index packet holds before a new leaf is started.
const leafCapacity = 2048

// IndexEntry maps the first record number of a data packet to that
// packet's logical byte offset within the pagefile.
type IndexEntry struct {
	FirstRecord int64
	Offset      int64
}

// BuildLeaves arranges entries (sorted by FirstRecord) into leaf index
// packets, each holding up to leafCapacity delta-encoded, zstd-compressed
// entries. The caller appends the leaves to the container (learning
// each leaf's real file offset in the process) before calling EncodeRoot.
func BuildLeaves(entries []IndexEntry, payloadPerPage int64) (leaves [][]byte, err error) {
	for i := 0; i < len(entries); i += leafCapacity {
		end := ints.Min(i+leafCapacity, len(entries))
		leaf, encErr := encodeLeaf(entries[i:end], payloadPerPage)
		if encErr != nil {
			return nil, encErr
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// LeafFirstRecords returns the FirstRecord that will head leaf i, for
// i in [0, leafCount), given the same entries passed to BuildLeaves.
// EncodeRoot needs this to pair each leaf's file offset with the record
// range it covers.
func LeafFirstRecords(entries []IndexEntry) []int64 {
	var out []int64
	for i := 0; i < len(entries); i += leafCapacity {
		out = append(out, entries[i].FirstRecord)
	}
	return out
}

// encodeLeaf delta-encodes FirstRecord and Offset against the first
// entry, uvarint-packs the deltas, zstd-compresses the result, and
// pads to a page multiple.
func encodeLeaf(entries []IndexEntry, payloadPerPage int64) ([]byte, error) {
	raw := make([]byte, 0, len(entries)*8)
	var tmp [binary.MaxVarintLen64]byte
	base := entries[0]
	n := binary.PutUvarint(tmp[:], uint64(len(entries)))
	raw = append(raw, tmp[:n]...)
	n = binary.PutVarint(tmp[:], base.FirstRecord)
	raw = append(raw, tmp[:n]...)
	n = binary.PutVarint(tmp[:], base.Offset)
	raw = append(raw, tmp[:n]...)
	for _, e := range entries[1:] {
		n = binary.PutVarint(tmp[:], e.FirstRecord-base.FirstRecord)
		raw = append(raw, tmp[:n]...)
		n = binary.PutVarint(tmp[:], e.Offset-base.Offset)
		raw = append(raw, tmp[:n]...)
	}
	comp := compr.Compression("zstd").Compress(raw, nil)
	return framePacket(IndexPacketType, len(raw), comp, payloadPerPage)
}

func decodeLeaf(buf []byte) ([]IndexEntry, error) {
	rawLen, comp, err := unframePacket(buf)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, rawLen)
	if err := compr.Decompression("zstd").Decompress(comp, raw); err != nil {
		return nil, fmt.Errorf("packet: index leaf decompress: %w", err)
	}
	off := 0
	count, n := binary.Uvarint(raw[off:])
	off += n
	firstRecord, n := binary.Varint(raw[off:])
	off += n
	baseOffset, n := binary.Varint(raw[off:])
	off += n
	entries := make([]IndexEntry, count)
	entries[0] = IndexEntry{FirstRecord: firstRecord, Offset: baseOffset}
	for i := 1; i < int(count); i++ {
		dr, n := binary.Varint(raw[off:])
		off += n
		do, n := binary.Varint(raw[off:])
		off += n
		entries[i] = IndexEntry{FirstRecord: firstRecord + dr, Offset: baseOffset + do}
	}
	return entries, nil
}

// EncodeRoot builds the single root index packet, given each leaf's
// first record number (from LeafFirstRecords) and the real logical
// file offset the leaf ended up at once appended.
func EncodeRoot(firstRecords, leafOffsets []int64, payloadPerPage int64) ([]byte, error) {
	if len(firstRecords) != len(leafOffsets) {
		return nil, fmt.Errorf("packet: %d leaf first-records but %d leaf offsets", len(firstRecords), len(leafOffsets))
	}
	raw := make([]byte, 0, len(firstRecords)*8)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(firstRecords)))
	raw = append(raw, tmp[:n]...)
	for i := range firstRecords {
		n = binary.PutVarint(tmp[:], firstRecords[i])
		raw = append(raw, tmp[:n]...)
		n = binary.PutVarint(tmp[:], leafOffsets[i])
		raw = append(raw, tmp[:n]...)
	}
	comp := compr.Compression("zstd").Compress(raw, nil)
	return framePacket(IndexPacketType, len(raw), comp, payloadPerPage)
}

// DecodeRootEntries returns each leaf's (FirstRecord, file offset)
// pair, in leaf order, as encoded by EncodeRoot.
func DecodeRootEntries(buf []byte) ([]IndexEntry, error) {
	rawLen, comp, err := unframePacket(buf)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, rawLen)
	if err := compr.Decompression("zstd").Decompress(comp, raw); err != nil {
		return nil, fmt.Errorf("packet: index root decompress: %w", err)
	}
	off := 0
	count, n := binary.Uvarint(raw[off:])
	off += n
	out := make([]IndexEntry, count)
	for i := range out {
		fr, n := binary.Varint(raw[off:])
		off += n
		lo, n := binary.Varint(raw[off:])
		off += n
		out[i] = IndexEntry{FirstRecord: fr, Offset: lo}
	}
	return out, nil
}

// DecodeLeafEntries is the exported form of decodeLeaf.
func DecodeLeafEntries(buf []byte) ([]IndexEntry, error) { return decodeLeaf(buf) }

// LeafRange returns the half-open record-number interval covered by a
// leaf packet whose first entry is es[0], given the first record
// number of the following leaf (or the CompressedVector's total record
// count, for the last leaf).
func LeafRange(es []IndexEntry, nextFirstRecord int64) ints.Interval {
	if len(es) == 0 {
		return ints.Interval{}
	}
	return ints.Interval{Start: int(es[0].FirstRecord), End: int(nextFirstRecord)}
}

// framePacket wraps a compressed payload with a small fixed header
// (packet_type, uncompressed length, compressed length) and pads the
// whole thing to a page multiple, mirroring EncodeDataPacket's framing.
func framePacket(packetType byte, rawLen int, comp []byte, payloadPerPage int64) ([]byte, error) {
	hdrLen := 1 + 4 + 4
	contentLen := hdrLen + len(comp)
	padded := int(ints.AlignUp64(uint64(contentLen), uint64(payloadPerPage)))
	buf := make([]byte, padded)
	buf[0] = packetType
	binary.LittleEndian.PutUint32(buf[1:5], uint32(rawLen))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(comp)))
	copy(buf[hdrLen:], comp)
	return buf, nil
}

func unframePacket(buf []byte) (rawLen int, comp []byte, err error) {
	if len(buf) < 9 {
		return 0, nil, fmt.Errorf("packet: truncated index packet header")
	}
	rawLen = int(binary.LittleEndian.Uint32(buf[1:5]))
	compLen := int(binary.LittleEndian.Uint32(buf[5:9]))
	if 9+compLen > len(buf) {
		return 0, nil, fmt.Errorf("packet: index packet compressed length overruns buffer")
	}
	return rawLen, buf[9 : 9+compLen], nil
}
