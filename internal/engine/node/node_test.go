package node

import (
	"errors"
	"testing"
)

func TestNodeCloneIsIndependent(t *testing.T) {
	n := New("a", "paragraph", KindElement)
	n.InsertChild(0, "b")
	n.SetAttr("align", "left")
	n.Freeze()

	c := n.Clone()
	if !c.IsWritable() {
		t.Fatal("expected clone to be writable")
	}
	if err := c.InsertChild(1, "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.SetAttr("align", "right")

	if n.ChildCount() != 1 {
		t.Errorf("expected original to keep 1 child, got %d", n.ChildCount())
	}
	if v, _ := n.Attr("align"); v != "left" {
		t.Errorf("expected original attr %q, got %q", "left", v)
	}
}

func TestFrozenNodeRejectsWrites(t *testing.T) {
	n := New("a", "text", KindText)
	n.Freeze()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"SetText", func() error { return n.SetText("x") }},
		{"SetFormat", func() error { return n.SetFormat(FormatBold) }},
		{"SetParent", func() error { return n.SetParent("p") }},
		{"SetAttr", func() error { return n.SetAttr("k", "v") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrNotInUpdate) {
				t.Errorf("expected ErrNotInUpdate, got %v", err)
			}
		})
	}
}

func TestImmutableSetText(t *testing.T) {
	n := New("a", "text", KindText)
	n.SetMode(ModeImmutable)

	err := n.SetText("changed")
	var ie *ImmutableError
	if !errors.As(err, &ie) {
		t.Fatalf("expected ImmutableError, got %v", err)
	}
	if !errors.Is(err, ErrImmutable) {
		t.Error("expected errors.Is(err, ErrImmutable)")
	}
	if ie.Key != "a" {
		t.Errorf("expected key a, got %s", ie.Key)
	}
}

func TestKindMismatch(t *testing.T) {
	el := New("a", "paragraph", KindElement)
	if err := el.SetText("x"); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
	leaf := New("b", "text", KindText)
	if err := leaf.InsertChild(0, "c"); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
}

func TestLen(t *testing.T) {
	txt := New("a", "text", KindText)
	txt.SetText("héllo")
	if txt.Len() != 5 {
		t.Errorf("expected rune length 5, got %d", txt.Len())
	}

	el := New("b", "paragraph", KindElement)
	el.InsertChild(0, "a")
	if el.Len() != 1 {
		t.Errorf("expected 1, got %d", el.Len())
	}

	dec := New("c", "image", KindDecorator)
	if dec.Len() != 0 {
		t.Errorf("expected 0, got %d", dec.Len())
	}
}

func TestFormatStringRoundTrip(t *testing.T) {
	tests := []Format{0, FormatBold, FormatBold | FormatItalic, FormatCode | FormatSuperscript}
	for _, f := range tests {
		got, ok := ParseFormat(f.String())
		if !ok || got != f {
			t.Errorf("format %d: expected %d, got %d (ok=%v)", f, f, got, ok)
		}
	}
	if _, ok := ParseFormat("bold|loud"); ok {
		t.Error("expected unknown format name to fail")
	}
}

func TestRuneOffsetToByte(t *testing.T) {
	s := "héllo"
	tests := []struct {
		offset int
		want   int
	}{
		{0, 0},
		{1, 1},
		{2, 3},
		{5, 6},
		{9, 6},
	}
	for _, tt := range tests {
		if got := RuneOffsetToByte(s, tt.offset); got != tt.want {
			t.Errorf("offset %d: expected %d, got %d", tt.offset, tt.want, got)
		}
	}
}

func TestKeyGenUnique(t *testing.T) {
	a := NewKeyGen()
	b := NewKeyGen()
	seen := make(map[Key]bool)
	for i := 0; i < 100; i++ {
		for _, k := range []Key{a.Next(), b.Next()} {
			if seen[k] {
				t.Fatalf("duplicate key %s", k)
			}
			seen[k] = true
		}
	}
}
