package packet

import "testing"

func TestBitWriterReaderRoundTrip(t *testing.T) {
	widths := []int{1, 3, 7, 8, 10, 17, 32, 63, 64}
	var w bitWriter
	var values []uint64
	for _, width := range widths {
		var v uint64
		if width == 64 {
			v = 0xfeedfacecafebeef
		} else {
			v = (uint64(1) << uint(width)) - 1
		}
		values = append(values, v)
		w.writeBits(v, width)
	}
	buf := w.finish()

	var r bitReader
	r.feed(buf)
	for i, width := range widths {
		if r.available() < width {
			t.Fatalf("value %d: not enough bits available", i)
		}
		got := r.readBits(width)
		if got != values[i] {
			t.Errorf("value %d (width %d): got %x, want %x", i, width, got, values[i])
		}
	}
}

func TestBitWriterFlushLeavesRemainder(t *testing.T) {
	var w bitWriter
	w.writeBits(0x3, 3) // 3 bits: one partial byte
	whole := w.takeBytes()
	if len(whole) != 0 {
		t.Fatalf("expected no whole bytes yet, got %d", len(whole))
	}
	if w.accBits == 0 {
		t.Fatalf("expected leftover bits")
	}
	w.writeBits(0x1f, 5) // fills the byte to 8 bits
	whole = w.takeBytes()
	if len(whole) != 1 {
		t.Fatalf("expected one whole byte, got %d", len(whole))
	}
	// LSB-first: 0b011 in bits 0-2, 0b11111 in bits 3-7.
	if whole[0] != 0xfb {
		t.Errorf("got %#x, want 0xfb", whole[0])
	}
}

func TestBitReaderFeedAcrossPackets(t *testing.T) {
	var w bitWriter
	w.writeBits(5, 4)
	w.writeBits(9, 4)
	first := w.takeBytes()
	w.writeBits(2, 3)
	second := w.finish()

	var r bitReader
	r.feed(first)
	got1 := r.readBits(4)
	if got1 != 5 {
		t.Fatalf("got %d, want 5", got1)
	}
	got2 := r.readBits(4)
	if got2 != 9 {
		t.Fatalf("got %d, want 9", got2)
	}
	r.feed(second)
	got3 := r.readBits(3)
	if got3 != 2 {
		t.Fatalf("got %d, want 2", got3)
	}
}
