package core

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// Key is the 128-bit structural fingerprint of a statement tree. Two trees
// that differ only in bound literal values share a Key; any difference in
// shape, operators, identifiers, bind positions or types changes it.
type Key struct {
	Hi, Lo uint64
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.Hi == 0 && k.Lo == 0 }

func (k Key) String() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], k.Hi)
	binary.BigEndian.PutUint64(b[8:], k.Lo)
	return hex.EncodeToString(b[:])
}

// KeyBuilder accumulates a fingerprint during a pre-order traversal and
// collects bind parameters in traversal order.
type KeyBuilder struct {
	h     *xxh3.Hasher
	binds []*BindParameter
	seen  map[*BindParameter]int
	buf   [8]byte
}

func newKeyBuilder() *KeyBuilder {
	return &KeyBuilder{h: xxh3.New(), seen: make(map[*BindParameter]int)}
}

func (kb *KeyBuilder) kind(k Kind) {
	kb.int(int64(k))
}

func (kb *KeyBuilder) int(v int64) {
	binary.LittleEndian.PutUint64(kb.buf[:], uint64(v))
	_, _ = kb.h.Write(kb.buf[:])
}

func (kb *KeyBuilder) bool(v bool) {
	if v {
		kb.int(1)
		return
	}
	kb.int(0)
}

// str writes a length-prefixed string so adjacent strings cannot alias.
func (kb *KeyBuilder) str(s string) {
	kb.int(int64(len(s)))
	_, _ = kb.h.WriteString(s)
}

func (kb *KeyBuilder) node(n Node) {
	if n == nil {
		kb.kind(KindInvalid)
		return
	}
	n.writeKey(kb)
}

func (kb *KeyBuilder) exprs(list []Expr) {
	kb.int(int64(len(list)))
	for _, e := range list {
		kb.node(e)
	}
}

// bind records b's position. A bind object referenced twice keeps its
// first position, and the back-reference is part of the key.
func (kb *KeyBuilder) bind(b *BindParameter) {
	if idx, ok := kb.seen[b]; ok {
		kb.int(-1 - int64(idx))
		return
	}
	kb.seen[b] = len(kb.binds)
	kb.binds = append(kb.binds, b)
	kb.int(int64(len(kb.binds)))
}

func (kb *KeyBuilder) sum() Key {
	s := kb.h.Sum128()
	return Key{Hi: s.Hi, Lo: s.Lo}
}

// CacheKey computes n's structural fingerprint together with the bind
// parameters of the tree in deterministic traversal order. The position
// of a bind in the returned slice is stable for every tree sharing the
// key, which is what lets a cached compilation be executed with the
// values of a different tree.
func CacheKey(n Node) (Key, []*BindParameter) {
	kb := newKeyBuilder()
	kb.node(n)
	return kb.sum(), kb.binds
}

// ExtractParameters returns the bind parameters of n in the same order as
// CacheKey, without retaining the hash.
func ExtractParameters(n Node) []*BindParameter {
	_, binds := CacheKey(n)
	return binds
}
