package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/rtlab-ims-pub/libE57Format/ints"
)

// DataPacketType is the packet_type tag of a CompressedVector data packet.
const DataPacketType = 1

// MaxPacketLength is the largest total (padded) length a single packet
// may occupy, per the container's binary format.
const MaxPacketLength = 65536

// dataPacketHeaderLen returns the size, in bytes, of a data packet's
// fixed header plus its bytestream length table.
func dataPacketHeaderLen(fieldCount int) int {
	return 1 + 1 + 2 + 2 + 2*fieldCount
}

// EncodeDataPacket assembles a data packet from one already-encoded
// bytestream per prototype field (in prototype order), padding the
// result up to a multiple of payloadPerPage bytes so that packets
// remain page-aligned. It fails if the unpadded content would exceed
// MaxPacketLength.
func EncodeDataPacket(fields [][]byte, payloadPerPage int64) ([]byte, error) {
	hdrLen := dataPacketHeaderLen(len(fields))
	contentLen := hdrLen
	for _, f := range fields {
		if len(f) > 0xffff {
			return nil, fmt.Errorf("packet: field bytestream of %d bytes exceeds 65535", len(f))
		}
		contentLen += len(f)
	}
	if contentLen > MaxPacketLength {
		return nil, fmt.Errorf("packet: data packet content %d bytes exceeds max %d", contentLen, MaxPacketLength)
	}
	padded := int(ints.AlignUp64(uint64(contentLen), uint64(payloadPerPage)))
	buf := make([]byte, padded)
	buf[0] = DataPacketType
	buf[1] = 0 // flags
	binary.LittleEndian.PutUint16(buf[2:4], uint16(contentLen-1))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(fields)))
	off := 6
	for _, f := range fields {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(f)))
		off += 2
	}
	for _, f := range fields {
		copy(buf[off:], f)
		off += len(f)
	}
	return buf, nil
}

// DataPacket is the parsed view of a decoded data packet.
type DataPacket struct {
	Flags      byte
	Bytestream [][]byte // one slice per field, in prototype order
}

// DecodeDataPacket parses a page-padded data packet previously produced
// by EncodeDataPacket. buf may be longer than the packet's logical
// content (trailing page padding is ignored).
func DecodeDataPacket(buf []byte) (DataPacket, error) {
	if len(buf) < 6 {
		return DataPacket{}, fmt.Errorf("packet: truncated data packet header")
	}
	if buf[0] != DataPacketType {
		return DataPacket{}, fmt.Errorf("packet: bad packet_type %d, want %d", buf[0], DataPacketType)
	}
	flags := buf[1]
	contentLen := int(binary.LittleEndian.Uint16(buf[2:4])) + 1
	count := int(binary.LittleEndian.Uint16(buf[4:6]))
	hdrLen := dataPacketHeaderLen(count)
	if len(buf) < hdrLen || contentLen > len(buf) || contentLen < hdrLen {
		return DataPacket{}, fmt.Errorf("packet: inconsistent data packet lengths")
	}
	lens := make([]int, count)
	off := 6
	for i := 0; i < count; i++ {
		lens[i] = int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
	}
	streams := make([][]byte, count)
	for i := 0; i < count; i++ {
		if off+lens[i] > contentLen {
			return DataPacket{}, fmt.Errorf("packet: bytestream %d overruns packet content", i)
		}
		streams[i] = buf[off : off+lens[i]]
		off += lens[i]
	}
	return DataPacket{Flags: flags, Bytestream: streams}, nil
}
