package reconciler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLIS(t *testing.T) {
	tests := []struct {
		name string
		seq  []int
		want []int
	}{
		{"empty", nil, []int{}},
		{"sorted", []int{0, 1, 2, 3}, []int{0, 1, 2, 3}},
		{"last moved first", []int{3, 0, 1, 2}, []int{1, 2, 3}},
		{"first moved last", []int{1, 2, 3, 0}, []int{0, 1, 2}},
		{"skips new", []int{-1, 0, -1, 1}, []int{1, 3}},
		{"reversed", []int{2, 1, 0}, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, lis(tt.seq)); diff != "" {
				t.Errorf("lis(%v) mismatch (-want +got):\n%s", tt.seq, diff)
			}
		})
	}
}
