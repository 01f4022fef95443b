package e57

import "testing"

func newCVForInvariantTest(t *testing.T) (*Container, *Node) {
	t.Helper()
	f := &memFile{}
	c, err := Create(f, 64)
	if err != nil {
		t.Fatal(err)
	}
	proto, _ := NewStructureNode(c)
	field, _ := NewIntegerNode(c, 0, 0, 10)
	if err := proto.Set("v", field); err != nil {
		t.Fatal(err)
	}
	cv, err := NewCompressedVectorNode(c, proto, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Root().Set("points", cv); err != nil {
		t.Fatal(err)
	}
	return c, cv
}

func TestWriterCheckInvariantHoldsWhileOpen(t *testing.T) {
	_, cv := newCVForInvariantTest(t)
	w, err := NewCompressedVectorWriter(cv, []SourceDestBuffer{{Path: "/v", Kind: KindI32, I32: make([]int32, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.CheckInvariant(true, true); err != nil {
		t.Fatalf("open writer should satisfy its invariant: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.CheckInvariant(true, true); err == nil {
		t.Fatal("expected InvarianceViolation for a closed writer")
	}
}

func TestWriterCheckInvariantCatchesCoexistingReader(t *testing.T) {
	c, cv := newCVForInvariantTest(t)
	w, err := NewCompressedVectorWriter(cv, []SourceDestBuffer{{Path: "/v", Kind: KindI32, I32: make([]int32, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	// The public API never allows a reader and writer to coexist (addReader/
	// addWriter both reject it); simulate a corrupted count directly to
	// exercise CheckInvariant's "no co-existing reader" check.
	c.readerCount = 1
	defer func() { c.readerCount = 0 }()
	if err := w.CheckInvariant(false, false); err == nil {
		t.Fatal("expected InvarianceViolation for a writer coexisting with a reader")
	}
}

func TestReaderCheckInvariantHoldsWhileOpen(t *testing.T) {
	_, cv := newCVForInvariantTest(t)
	w, err := NewCompressedVectorWriter(cv, []SourceDestBuffer{{Path: "/v", Kind: KindI32, I32: []int32{1}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(1); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewCompressedVectorReader(cv, []SourceDestBuffer{{Path: "/v", Kind: KindI32, I32: make([]int32, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.CheckInvariant(true, true); err != nil {
		t.Fatalf("open reader should satisfy its invariant: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.CheckInvariant(true, true); err == nil {
		t.Fatal("expected InvarianceViolation for a closed reader")
	}
}

func TestReaderCheckInvariantCatchesCoexistingWriter(t *testing.T) {
	c, cv := newCVForInvariantTest(t)
	w, err := NewCompressedVectorWriter(cv, []SourceDestBuffer{{Path: "/v", Kind: KindI32, I32: []int32{1}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(1); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := NewCompressedVectorReader(cv, []SourceDestBuffer{{Path: "/v", Kind: KindI32, I32: make([]int32, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	// Simulate a corrupted count the same way as above, from the other side.
	c.writerCount = 1
	defer func() { c.writerCount = 0 }()
	if err := r.CheckInvariant(false, false); err == nil {
		t.Fatal("expected InvarianceViolation for a reader coexisting with a writer")
	}
}

func TestNodeCheckInvariantShortCircuitsOnClosedContainer(t *testing.T) {
	f := &memFile{}
	c, err := Create(f, 64)
	if err != nil {
		t.Fatal(err)
	}
	root := c.Root()
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := root.CheckInvariant(true, true); err != nil {
		t.Fatalf("CheckInvariant on a closed container should short-circuit to nil, got %v", err)
	}
}
