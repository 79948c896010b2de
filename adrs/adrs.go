// Package adrs implements the 32-byte ADRS structure from RFC 8391 that
// makes every keyed hash call in wotsp and xmss unique by its position in
// the tree.
package adrs

import (
	"encoding/binary"

	"github.com/ortiscore/xmssgo/sigerr"
)

// Length is the wire size of an ADRS in bytes.
const Length = 32

// Type identifies which of the three ADRS variants is active.
type Type uint32

const (
	// OTS addresses a WOTS+ chain step: word3=OTS address, word4=chain
	// address, word5=hash address.
	OTS Type = 0
	// LTree addresses an L-tree compression step: word3=L-tree address,
	// word4=tree height, word5=tree index.
	LTree Type = 1
	// HashTree addresses a Merkle hash-tree step: word3=padding (always
	// zero), word4=tree height, word5=tree index.
	HashTree Type = 2
)

// ADRS is the 32-byte typed address structure from RFC 8391 §2.5. The zero
// value is a valid, untyped ADRS with every word set to zero.
//
// Internally it is stored as eight 32-bit words: layer, tree-high,
// tree-low, type, word3, word4, word5, keyAndMask. The tree address is
// honestly 64 bits (unlike some single-tree-only implementations that only
// ever write its low half); this core only ever sets it to zero, since
// hierarchical XMSS^MT addressing is out of scope.
type ADRS struct {
	layer      uint32
	treeHigh   uint32
	treeLow    uint32
	typ        Type
	typeSet    bool
	word3      uint32
	word4      uint32
	word5      uint32
	keyAndMask uint32
}

// New returns a zero-valued, untyped ADRS.
func New() *ADRS {
	return &ADRS{}
}

// SetLayerAddress sets the layer (sub-tree height) address. Unused by
// single-tree XMSS, kept for layout completeness and future XMSS^MT
// support.
func (a *ADRS) SetLayerAddress(v uint32) {
	a.layer = v
}

// SetTreeAddress sets the 64-bit tree address. Unused by single-tree XMSS.
func (a *ADRS) SetTreeAddress(v uint64) {
	a.treeHigh = uint32(v >> 32)
	a.treeLow = uint32(v)
}

// SetType rewrites the type word and zeroes word3, word4, word5 and
// keyAndMask. Skipping this step would leak addresses from a prior variant
// into PRF inputs and silently break RFC conformance.
func (a *ADRS) SetType(t Type) {
	a.typ = t
	a.typeSet = true
	a.word3 = 0
	a.word4 = 0
	a.word5 = 0
	a.keyAndMask = 0
}

func (a *ADRS) requireType(want Type) error {
	if !a.typeSet || a.typ != want {
		return sigerr.Argument("adrs: operation requires type %d, have %d (set=%v)", want, a.typ, a.typeSet)
	}
	return nil
}

func (a *ADRS) requireTypeOneOf(want ...Type) error {
	if !a.typeSet {
		return sigerr.Argument("adrs: operation requires a type to be set")
	}
	for _, w := range want {
		if a.typ == w {
			return nil
		}
	}
	return sigerr.Argument("adrs: operation requires one of %v, have %d", want, a.typ)
}

// SetOTSAddress sets the OTS address word. Requires type OTS.
func (a *ADRS) SetOTSAddress(v uint32) error {
	if err := a.requireType(OTS); err != nil {
		return err
	}
	a.word3 = v
	return nil
}

// SetChainAddress sets the chain address word. Requires type OTS.
func (a *ADRS) SetChainAddress(v uint32) error {
	if err := a.requireType(OTS); err != nil {
		return err
	}
	a.word4 = v
	return nil
}

// ChainAddress reads the chain address word. Requires type OTS.
func (a *ADRS) ChainAddress() (uint32, error) {
	if err := a.requireType(OTS); err != nil {
		return 0, err
	}
	return a.word4, nil
}

// SetHashAddress sets the hash address word. Requires type OTS.
func (a *ADRS) SetHashAddress(v uint32) error {
	if err := a.requireType(OTS); err != nil {
		return err
	}
	a.word5 = v
	return nil
}

// SetLTreeAddress sets the L-tree address word. Requires type LTree.
func (a *ADRS) SetLTreeAddress(v uint32) error {
	if err := a.requireType(LTree); err != nil {
		return err
	}
	a.word3 = v
	return nil
}

// SetPadding sets the padding word, which must stay zero. Requires type
// HashTree.
func (a *ADRS) SetPadding(v uint32) error {
	if err := a.requireType(HashTree); err != nil {
		return err
	}
	a.word3 = v
	return nil
}

// SetTreeHeight sets the tree height word. Requires type LTree or
// HashTree. Negative heights are rejected.
func (a *ADRS) SetTreeHeight(v int) error {
	if v < 0 {
		return sigerr.Argument("adrs: tree height cannot be negative, got %d", v)
	}
	if err := a.requireTypeOneOf(LTree, HashTree); err != nil {
		return err
	}
	a.word4 = uint32(v)
	return nil
}

// TreeHeight reads the tree height word. Requires type LTree or HashTree.
func (a *ADRS) TreeHeight() (int, error) {
	if err := a.requireTypeOneOf(LTree, HashTree); err != nil {
		return 0, err
	}
	return int(a.word4), nil
}

// SetTreeIndex sets the tree index word. Requires type LTree or HashTree.
// Negative indices are rejected.
func (a *ADRS) SetTreeIndex(v int) error {
	if v < 0 {
		return sigerr.Argument("adrs: tree index cannot be negative, got %d", v)
	}
	if err := a.requireTypeOneOf(LTree, HashTree); err != nil {
		return err
	}
	a.word5 = uint32(v)
	return nil
}

// TreeIndex reads the tree index word. Requires type LTree or HashTree.
func (a *ADRS) TreeIndex() (int, error) {
	if err := a.requireTypeOneOf(LTree, HashTree); err != nil {
		return 0, err
	}
	return int(a.word5), nil
}

// SetKeyAndMask sets the keyAndMask word. Valid regardless of type.
func (a *ADRS) SetKeyAndMask(v uint32) {
	a.keyAndMask = v
}

// ToBytes returns a defensive copy of the 32-byte big-endian encoding of a.
func (a *ADRS) ToBytes() []byte {
	buf := make([]byte, Length)
	binary.BigEndian.PutUint32(buf[0:4], a.layer)
	binary.BigEndian.PutUint32(buf[4:8], a.treeHigh)
	binary.BigEndian.PutUint32(buf[8:12], a.treeLow)
	binary.BigEndian.PutUint32(buf[12:16], uint32(a.typ))
	binary.BigEndian.PutUint32(buf[16:20], a.word3)
	binary.BigEndian.PutUint32(buf[20:24], a.word4)
	binary.BigEndian.PutUint32(buf[24:28], a.word5)
	binary.BigEndian.PutUint32(buf[28:32], a.keyAndMask)
	return buf
}

// Clone returns an independent copy of a, so that per-task ADRS instances
// in parallel treeHash never alias each other.
func (a *ADRS) Clone() *ADRS {
	clone := *a
	return &clone
}
