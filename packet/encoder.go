package packet

// Encoder accumulates records for one CompressedVector and cuts them
// into page-aligned data packets on demand. PutRecord validates a
// whole record before writing any bits of it, so a rejected record
// never perturbs encoder state.
type Encoder struct {
	proto          Prototype
	fields         []fieldEncoder
	payloadPerPage int64
	records        int
}

// NewEncoder returns an Encoder for proto, cutting packets aligned to
// payloadPerPage bytes (a pagefile.PageFile's PayloadPerPage()).
func NewEncoder(proto Prototype, payloadPerPage int64) *Encoder {
	fs := make([]fieldEncoder, len(proto.Fields))
	for i, spec := range proto.Fields {
		fs[i] = newFieldEncoder(spec)
	}
	return &Encoder{proto: proto, fields: fs, payloadPerPage: payloadPerPage}
}

// PutRecord validates values against the prototype's bounds and, only
// if every field passes, appends the record to the pending packet.
// values must be in prototype order.
func (e *Encoder) PutRecord(values []Value) error {
	if len(values) != len(e.fields) {
		return &OutOfBoundsError{Path: "<record>", Value: float64(len(values)), Min: float64(len(e.fields)), Max: float64(len(e.fields))}
	}
	for i, f := range e.fields {
		if err := f.validate(values[i]); err != nil {
			return err
		}
	}
	for i, f := range e.fields {
		f.put(values[i])
	}
	e.records++
	return nil
}

// PendingContentLen returns the total encoded size, in bytes, that a
// Flush would currently produce (header plus all field bytestreams),
// letting a caller flush proactively before exceeding MaxPacketLength.
func (e *Encoder) PendingContentLen() int {
	total := dataPacketHeaderLen(len(e.fields))
	for _, f := range e.fields {
		total += f.pendingLen()
	}
	return total
}

// HasPending reports whether any record data or leftover sub-byte
// state remains unflushed.
func (e *Encoder) HasPending() bool {
	if e.records > 0 {
		return true
	}
	for _, f := range e.fields {
		if f.hasLeftoverBits() {
			return true
		}
	}
	return false
}

// Flush cuts a data packet from everything accumulated so far,
// returning the raw per-field bytestreams (ready for EncodeDataPacket)
// and the number of records it covers. Integer-kind fields may retain
// a sub-byte remainder for the next packet; other kinds are always
// fully drained.
func (e *Encoder) Flush() (fields [][]byte, records int) {
	fields = make([][]byte, len(e.fields))
	for i, f := range e.fields {
		fields[i] = f.flush()
	}
	records = e.records
	e.records = 0
	return fields, records
}

// FlushFinal is like Flush but also zero-pads and emits any trailing
// sub-byte remainder in bit-packed fields. Call it once, for the last
// packet of a CompressedVector.
func (e *Encoder) FlushFinal() (fields [][]byte, records int) {
	fields = make([][]byte, len(e.fields))
	for i, f := range e.fields {
		fields[i] = f.finish()
	}
	records = e.records
	e.records = 0
	return fields, records
}
