package engine

import (
	"strings"
	"testing"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/store"
	"github.com/dshills/inkwell/internal/renderer"
)

// ============================================================================
// Setup Helpers
// ============================================================================

func setupLargeEditor(b *testing.B, paragraphs int) (*Editor, []node.Key) {
	b.Helper()
	e := New(WithHost(renderer.NewMemory()))
	leaves := make([]node.Key, 0, paragraphs)
	line := strings.Repeat("x", 80)
	err := e.Update(func(tx *store.Txn) error {
		for i := 0; i < paragraphs; i++ {
			var keys [2]node.Key
			if err := addParagraph(line, &keys)(tx); err != nil {
				return err
			}
			leaves = append(leaves, keys[1])
		}
		return nil
	})
	if err != nil {
		b.Fatalf("setup: %v", err)
	}
	return e, leaves
}

// ============================================================================
// Update Benchmarks
// ============================================================================

func BenchmarkUpdateSingleLeaf(b *testing.B) {
	e, leaves := setupLargeEditor(b, 10000)
	key := leaves[len(leaves)/2]
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := e.Update(func(tx *store.Txn) error {
			return tx.SpliceText(key, 0, 1, "y")
		}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUpdateDeferredBurst(b *testing.B) {
	e, leaves := setupLargeEditor(b, 1000)
	e.deferred = true
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for _, k := range leaves[:10] {
			if err := e.Update(setText(k, "burst")); err != nil {
				b.Fatal(err)
			}
		}
		if err := e.Flush(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiff(b *testing.B) {
	e, leaves := setupLargeEditor(b, 10000)
	prev := e.State()
	if err := e.Update(setText(leaves[0], "changed")); err != nil {
		b.Fatal(err)
	}
	next := e.State()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = store.Diff(prev, next)
	}
}
