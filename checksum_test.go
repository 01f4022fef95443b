package e57

import (
	"testing"

	"github.com/rtlab-ims-pub/libE57Format/pagefile"
)

// TestCorruptedPageMarksContainerSick exercises spec.md §8's checksum
// integrity property: flipping a byte inside a written data page must
// surface as a checksum failure on the next read, and that failure must
// stick to the container (every later operation, on any handle, sees
// the same sickness) rather than being retried away.
func TestCorruptedPageMarksContainerSick(t *testing.T) {
	f := &memFile{}
	c, err := Create(f, pagefile.DefaultPageSize)
	if err != nil {
		t.Fatal(err)
	}
	proto := buildSingleIntPrototype(t, c, 0, 1023)
	cv, err := NewCompressedVectorNode(c, proto, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Root().Set("points", cv); err != nil {
		t.Fatal(err)
	}

	const total = 500
	src := make([]int32, total)
	for i := range src {
		src[i] = int32(i % 1024)
	}
	w, err := NewCompressedVectorWriter(cv, []SourceDestBuffer{
		{Path: "/intensity", Kind: KindI32, I32: src},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(total); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Physical page 0 holds the file header; the CompressedVector's
	// first data packet starts at the beginning of physical page 1.
	// Flip a byte well inside that page's payload, away from both the
	// packet header and the trailing CRC-32C.
	corruptAt := int64(pagefile.DefaultPageSize) + 32
	f.buf[corruptAt] ^= 0xff

	c2, err := Open(f, int64(len(f.buf)))
	if err != nil {
		t.Fatalf("Open should still succeed, corruption is past the schema section: %v", err)
	}
	points, err := c2.Root().Get("points")
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewCompressedVectorReader(points, []SourceDestBuffer{
		{Path: "/intensity", Kind: KindI32, I32: make([]int32, total)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Read(total); err == nil {
		t.Fatal("expected the corrupted page to fail the read")
	}

	// The container as a whole must now report itself sick, independent
	// of which handle first noticed the corruption.
	if _, err := NewCompressedVectorWriter(points, []SourceDestBuffer{
		{Path: "/intensity", Kind: KindI32, I32: make([]int32, 1)},
	}); err == nil {
		t.Fatal("expected a sick container to refuse new writers")
	}

	if _, err := r.Read(1); err == nil {
		t.Fatal("expected the reader to keep failing once its container is sick")
	}
}
