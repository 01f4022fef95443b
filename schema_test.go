package e57

import "testing"

func TestSchemaRoundTripsEveryNodeType(t *testing.T) {
	f := &memFile{}
	c, err := Create(f, 64)
	if err != nil {
		t.Fatal(err)
	}
	root := c.Root()

	i, _ := NewIntegerNode(c, 5, 0, 10)
	si, _ := NewScaledIntegerNode(c, 200, 0, 1000, 0.001, 1.0)
	fl, _ := NewFloatNode(c, 1.25, Single, -10, 10)
	str, _ := NewStringNode(c, "hello e57")
	blob, _ := NewBlobNode(c, 128)
	vec, _ := NewVectorNode(c, true)
	vi, _ := NewIntegerNode(c, 1, 0, 1)
	if err := vec.Set("0", vi); err != nil {
		t.Fatal(err)
	}

	for name, n := range map[string]*Node{
		"i": i, "si": si, "fl": fl, "str": str, "blob": blob, "vec": vec,
	} {
		if err := root.Set(name, n); err != nil {
			t.Fatalf("Set(%s): %v", name, err)
		}
	}

	proto, _ := NewStructureNode(c)
	protoField, _ := NewIntegerNode(c, 0, 0, 255)
	if err := proto.Set("intensity", protoField); err != nil {
		t.Fatal(err)
	}
	cv, err := NewCompressedVectorNode(c, proto, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Set("points", cv); err != nil {
		t.Fatal(err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(f, int64(len(f.buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	gi, err := c2.Root().Get("i")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := gi.Value(); v != 5 {
		t.Errorf("i value = %v, want 5", v)
	}

	gsi, err := c2.Root().Get("si")
	if err != nil {
		t.Fatal(err)
	}
	if scale, _ := gsi.Scale(); scale != 0.001 {
		t.Errorf("si scale = %v, want 0.001", scale)
	}

	gstr, err := c2.Root().Get("str")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := gstr.StringValue(); s != "hello e57" {
		t.Errorf("str value = %q, want %q", s, "hello e57")
	}

	gblob, err := c2.Root().Get("blob")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := gblob.ByteCount(); n != 128 {
		t.Errorf("blob length = %d, want 128", n)
	}

	gvec, err := c2.Root().Get("vec")
	if err != nil {
		t.Fatal(err)
	}
	children, err := gvec.Children()
	if err != nil || len(children) != 1 {
		t.Fatalf("vec children = %v (%v), want 1 child", children, err)
	}

	gcv, err := c2.Root().Get("points")
	if err != nil {
		t.Fatal(err)
	}
	if gcv.Type() != TypeCompressedVector {
		t.Fatalf("points type = %v, want CompressedVector", gcv.Type())
	}
	protoNode, err := gcv.Get("prototype")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := protoNode.Get("intensity"); err != nil {
		t.Fatalf("prototype/intensity: %v", err)
	}
}
