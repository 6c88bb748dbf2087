package node

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// KeyGen mints node keys. Every generator draws a random prefix, so keys
// minted by different editors in one process never collide.
type KeyGen struct {
	prefix string
	next   atomic.Uint64
}

// NewKeyGen creates a generator with a fresh random prefix.
func NewKeyGen() *KeyGen {
	id := uuid.New()
	return &KeyGen{prefix: id.String()[:8]}
}

// Next returns a new key.
func (g *KeyGen) Next() Key {
	return Key(g.prefix + "-" + strconv.FormatUint(g.next.Add(1), 10))
}
