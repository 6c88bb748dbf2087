package selection

import (
	"testing"

	"github.com/dshills/inkwell/internal/engine/node"
)

func TestRemapSplit(t *testing.T) {
	frags := []Fragment{
		{Key: "a", Start: 0, End: 4},
		{Key: "b", Start: 4, End: 11},
	}
	tests := []struct {
		name string
		in   Point
		want Point
	}{
		{"inside second fragment", TextPoint("a", 7), TextPoint("b", 3)},
		{"inside first fragment", TextPoint("a", 2), TextPoint("a", 2)},
		{"start of leaf", TextPoint("a", 0), TextPoint("a", 0)},
		{"on boundary", TextPoint("a", 4), TextPoint("b", 0)},
		{"end of leaf", TextPoint("a", 11), TextPoint("b", 7)},
		{"other key untouched", TextPoint("z", 7), TextPoint("z", 7)},
		{"element point untouched", ElementPoint("a", 1), ElementPoint("a", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemapSplit(tt.in, "a", frags)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRemapSplice(t *testing.T) {
	tests := []struct {
		name                      string
		point                     int
		offset, deleted, inserted int
		want                      int
	}{
		{"insert before", 5, 2, 0, 3, 8},
		{"insert at caret", 5, 5, 0, 2, 7},
		{"insert after", 5, 6, 0, 2, 5},
		{"delete before", 5, 1, 2, 0, 3},
		{"delete ending at caret", 5, 3, 2, 0, 3},
		{"delete spanning caret", 5, 3, 4, 0, 3},
		{"replace spanning caret", 5, 3, 4, 1, 4},
		{"delete starting at caret", 5, 5, 2, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemapSplice(TextPoint("a", tt.point), "a", tt.offset, tt.deleted, tt.inserted)
			if got.Offset != tt.want {
				t.Errorf("expected offset %d, got %d", tt.want, got.Offset)
			}
		})
	}
}

func TestRemapReplace(t *testing.T) {
	got := RemapReplace(TextPoint("a", 9), "a", TextPoint("b", 4))
	if got != TextPoint("b", 4) {
		t.Errorf("expected clamp to b:4, got %v", got)
	}
	got = RemapReplace(TextPoint("a", 2), "a", ElementPoint("b", 3))
	if got != ElementPoint("b", 2) {
		t.Errorf("expected b:2(element), got %v", got)
	}
	got = RemapReplace(TextPoint("c", 2), "a", TextPoint("b", 4))
	if got != TextPoint("c", 2) {
		t.Errorf("expected untouched point, got %v", got)
	}
}

func TestShiftChildren(t *testing.T) {
	p := ElementPoint("p", 2)
	if got := ShiftChildren(p, "p", 2, 1); got.Offset != 3 {
		t.Errorf("insert at caret: expected 3, got %d", got.Offset)
	}
	if got := ShiftChildren(p, "p", 3, 1); got.Offset != 2 {
		t.Errorf("insert after caret: expected 2, got %d", got.Offset)
	}
	if got := ShiftChildren(p, "p", 0, -1); got.Offset != 1 {
		t.Errorf("remove before caret: expected 1, got %d", got.Offset)
	}
	if got := ShiftChildren(p, "p", 2, -1); got.Offset != 2 {
		t.Errorf("remove at caret: expected 2, got %d", got.Offset)
	}
	if got := ShiftChildren(p, "q", 0, 1); got != p {
		t.Errorf("other parent: expected %v, got %v", p, got)
	}
}

func TestClamp(t *testing.T) {
	txt := node.New("t", "text", node.KindText)
	txt.SetText("abc")
	el := node.New("e", "paragraph", node.KindElement)
	dec := node.New("d", "image", node.KindDecorator)

	if got, ok := Clamp(TextPoint("t", 10), txt); !ok || got.Offset != 3 {
		t.Errorf("expected clamp to 3, got %v ok=%v", got, ok)
	}
	if got, ok := Clamp(TextPoint("e", 1), el); !ok || got != ElementPoint("e", 0) {
		t.Errorf("expected element point e:0, got %v ok=%v", got, ok)
	}
	if _, ok := Clamp(TextPoint("d", 0), dec); ok {
		t.Error("expected decorator point to fail")
	}
	if _, ok := Clamp(TextPoint("x", 0), nil); ok {
		t.Error("expected nil node to fail")
	}
}

func TestSelectionEqual(t *testing.T) {
	a := Collapsed(TextPoint("a", 1))
	b := Collapsed(TextPoint("a", 1))
	if !Equal(a, b) {
		t.Error("expected equal selections")
	}
	if Equal(a, nil) {
		t.Error("expected selection != nil")
	}
	if !Equal(nil, nil) {
		t.Error("expected nil == nil")
	}
	if !a.IsCollapsed() {
		t.Error("expected collapsed")
	}
	r := New(TextPoint("a", 1), TextPoint("b", 2))
	if r.IsCollapsed() {
		t.Error("expected range selection")
	}
	if len(r.Keys()) != 2 {
		t.Errorf("expected 2 keys, got %d", len(r.Keys()))
	}
}
