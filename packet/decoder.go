package packet

import "fmt"

// Decoder is the read-side dual of Encoder. The caller supplies each
// data packet's bytestreams along with the record count it covers
// (recovered from the CompressedVector's index packets, or simply
// counted while scanning sequentially); Decoder then yields records
// one at a time in prototype order.
type Decoder struct {
	proto   Prototype
	fields  []fieldDecoder
	pending int // records remaining from the most recently fed packet
}

// NewDecoder returns a Decoder for proto.
func NewDecoder(proto Prototype) *Decoder {
	fs := make([]fieldDecoder, len(proto.Fields))
	for i, spec := range proto.Fields {
		fs[i] = newFieldDecoder(spec)
	}
	return &Decoder{proto: proto, fields: fs}
}

// Feed hands the decoder one data packet's bytestreams. String field
// state is replaced; float and bit-packed integer fields keep any
// unconsumed bytes (and, for integers, sub-byte carry) and append the
// new ones. count is the number of records this packet encodes.
func (d *Decoder) Feed(dp DataPacket, count int) error {
	if len(dp.Bytestream) != len(d.fields) {
		return fmt.Errorf("packet: data packet has %d bytestreams, prototype has %d fields", len(dp.Bytestream), len(d.fields))
	}
	for i, f := range d.fields {
		f.feed(dp.Bytestream[i], count)
	}
	d.pending += count
	return nil
}

// Pending reports how many records remain buffered and ready to read.
func (d *Decoder) Pending() int { return d.pending }

// NextRecord returns the next record's values in prototype order. The
// caller must not call NextRecord more times than Pending() allows
// without an intervening Feed.
func (d *Decoder) NextRecord() ([]Value, error) {
	if d.pending == 0 {
		return nil, fmt.Errorf("packet: decoder has no pending records, need Feed")
	}
	values := make([]Value, len(d.fields))
	for i, f := range d.fields {
		v, err := f.next()
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	d.pending--
	return values, nil
}
