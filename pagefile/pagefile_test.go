package pagefile

import (
	"bytes"
	"io"
	"testing"
)

// memFile is a minimal in-memory File for tests.
type memFile struct {
	buf []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:], p)
	return len(p), nil
}

func (m *memFile) Truncate(size int64) error {
	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, m.buf)
		m.buf = grown
	}
	return nil
}

func (m *memFile) Close() error { return nil }

func TestCreateAppendReopen(t *testing.T) {
	f := &memFile{}
	pf, err := Create(f, 64, Header{VersionMajor: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := pf.PayloadPerPage()
	chunk := bytes.Repeat([]byte{0xab}, int(payload)*2)
	start, err := pf.AppendPages(chunk)
	if err != nil {
		t.Fatalf("AppendPages: %v", err)
	}
	if start != 0 {
		t.Fatalf("first append should start at logical offset 0, got %d", start)
	}
	got := make([]byte, len(chunk))
	if err := pf.ReadLogical(got, 0); err != nil {
		t.Fatalf("ReadLogical: %v", err)
	}
	if !bytes.Equal(got, chunk) {
		t.Fatal("read back mismatch")
	}
	if err := pf.Close(); err != nil {
		t.Fatal(err)
	}

	pf2, h, err := Open(f, int64(len(f.buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.VersionMajor != 1 {
		t.Errorf("VersionMajor = %d, want 1", h.VersionMajor)
	}
	if pf2.LogicalLength() != int64(len(chunk)) {
		t.Errorf("LogicalLength() = %d, want %d", pf2.LogicalLength(), len(chunk))
	}
	got2 := make([]byte, len(chunk))
	if err := pf2.ReadLogical(got2, 0); err != nil {
		t.Fatalf("ReadLogical after reopen: %v", err)
	}
	if !bytes.Equal(got2, chunk) {
		t.Fatal("read back mismatch after reopen")
	}
}

func TestAppendRejectsUnalignedLength(t *testing.T) {
	f := &memFile{}
	pf, err := Create(f, 64, Header{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pf.AppendPages([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for unaligned append")
	}
}

func TestChecksumMismatchDetected(t *testing.T) {
	f := &memFile{}
	pf, err := Create(f, 64, Header{})
	if err != nil {
		t.Fatal(err)
	}
	payload := pf.PayloadPerPage()
	if _, err := pf.AppendPages(bytes.Repeat([]byte{0x11}, int(payload))); err != nil {
		t.Fatal(err)
	}
	// corrupt a payload byte on the second physical page (first appended page).
	f.buf[64+5] ^= 0xff

	got := make([]byte, payload)
	err = pf.ReadLogical(got, 0)
	if err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestHeaderMarshalRoundTrip(t *testing.T) {
	h := Header{
		VersionMajor:       1,
		VersionMinor:       0,
		FilePhysicalLength: 4096,
		XMLLogicalOffset:   128,
		XMLLogicalLength:   256,
		PageSize:           1024,
	}
	buf := h.Marshal()
	got, err := UnmarshalHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}
