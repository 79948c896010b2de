package xmss

import (
	"encoding/binary"

	"github.com/ortiscore/xmssgo/sigerr"
)

// PrivateKey is the stateful XMSS private key: the index of the next
// unused WOTS+ leaf, the compact per-leaf seed table, the SK_PRF seed, the
// public root and the public seed. It is immutable; IncrementIdx returns a
// fresh copy with the index advanced.
//
// nextIdx == 2^h means the key is exhausted and refuses to sign.
type PrivateKey struct {
	nextIdx            uint32
	compactPrivateKeys []byte
	skPrf              []byte
	root               []byte
	publicSeed         []byte
}

// NewPrivateKey validates the field lengths against c and returns a
// private key holding defensive copies of every input.
func NewPrivateKey(c *Config, nextIdx uint32, compactPrivateKeys, skPrf, root, publicSeed []byte) (*PrivateKey, error) {
	n := c.wotsp.N()
	if int(nextIdx) > c.wotspCount {
		return nil, sigerr.Argument("xmss: private key index %d exceeds leaf count %d", nextIdx, c.wotspCount)
	}
	if len(compactPrivateKeys) != c.compactedPrivateKeysLength {
		return nil, sigerr.Argument("xmss: compact private keys must be %d bytes, got %d", c.compactedPrivateKeysLength, len(compactPrivateKeys))
	}
	if len(skPrf) != n || len(root) != n || len(publicSeed) != n {
		return nil, sigerr.Argument("xmss: skPrf, root and public seed must each be %d bytes", n)
	}

	return &PrivateKey{
		nextIdx:            nextIdx,
		compactPrivateKeys: append([]byte(nil), compactPrivateKeys...),
		skPrf:              append([]byte(nil), skPrf...),
		root:               append([]byte(nil), root...),
		publicSeed:         append([]byte(nil), publicSeed...),
	}, nil
}

// NextIdx returns the index of the next unused WOTS+ leaf.
func (k *PrivateKey) NextIdx() uint32 { return k.nextIdx }

// Root returns the public Merkle root. The slice aliases the key's
// internal buffer and must not be modified.
func (k *PrivateKey) Root() []byte { return k.root }

// PublicSeed returns the public seed. Not to be modified.
func (k *PrivateKey) PublicSeed() []byte { return k.publicSeed }

// RemainingLeaves returns how many one-time leaves are still unused.
func (k *PrivateKey) RemainingLeaves(c *Config) int {
	return c.wotspCount - int(k.nextIdx)
}

// IncrementIdx returns a new private key with nextIdx advanced by one.
// The receiver is unchanged. It refuses to advance past 2^h.
func (k *PrivateKey) IncrementIdx(c *Config) (*PrivateKey, error) {
	if int(k.nextIdx) >= c.wotspCount {
		return nil, sigerr.Argument("xmss: no WOTS+ leaves remaining")
	}
	clone := *k
	clone.nextIdx = k.nextIdx + 1
	return &clone, nil
}

// Serialize encodes the private key as
// nextIdx || compact seeds || skPrf || root || publicSeed.
func (k *PrivateKey) Serialize() []byte {
	out := make([]byte, 4+len(k.compactPrivateKeys)+len(k.skPrf)+len(k.root)+len(k.publicSeed))
	binary.BigEndian.PutUint32(out[0:4], k.nextIdx)
	off := 4
	off += copy(out[off:], k.compactPrivateKeys)
	off += copy(out[off:], k.skPrf)
	off += copy(out[off:], k.root)
	copy(out[off:], k.publicSeed)
	return out
}

// DeserializePrivateKey decodes a private key starting at data[off].
func DeserializePrivateKey(c *Config, data []byte, off int) (*PrivateKey, error) {
	n := c.wotsp.N()
	need := 4 + c.compactedPrivateKeysLength + 3*n
	if off < 0 || len(data)-off < need {
		return nil, sigerr.Argument("xmss: private key needs %d bytes at offset %d, have %d", need, off, len(data))
	}

	nextIdx := binary.BigEndian.Uint32(data[off : off+4])
	p := off + 4
	compact := data[p : p+c.compactedPrivateKeysLength]
	p += c.compactedPrivateKeysLength
	skPrf := data[p : p+n]
	p += n
	root := data[p : p+n]
	p += n
	publicSeed := data[p : p+n]

	return NewPrivateKey(c, nextIdx, compact, skPrf, root, publicSeed)
}

// PublicKey is the XMSS public key: registry OID, Merkle root and public
// seed.
type PublicKey struct {
	oid        uint32
	root       []byte
	publicSeed []byte
}

// NewPublicKey validates the field lengths against c and returns a public
// key holding defensive copies of root and publicSeed.
func NewPublicKey(c *Config, oid uint32, root, publicSeed []byte) (*PublicKey, error) {
	n := c.wotsp.N()
	if len(root) != n || len(publicSeed) != n {
		return nil, sigerr.Argument("xmss: root and public seed must each be %d bytes", n)
	}
	return &PublicKey{
		oid:        oid,
		root:       append([]byte(nil), root...),
		publicSeed: append([]byte(nil), publicSeed...),
	}, nil
}

// OID returns the registry tag carried in the key.
func (k *PublicKey) OID() uint32 { return k.oid }

// Root returns the Merkle root. Not to be modified.
func (k *PublicKey) Root() []byte { return k.root }

// PublicSeed returns the public seed. Not to be modified.
func (k *PublicKey) PublicSeed() []byte { return k.publicSeed }

// Serialize encodes the public key as oid || root || publicSeed.
func (k *PublicKey) Serialize() []byte {
	out := make([]byte, 4+len(k.root)+len(k.publicSeed))
	binary.BigEndian.PutUint32(out[0:4], k.oid)
	off := 4
	off += copy(out[off:], k.root)
	copy(out[off:], k.publicSeed)
	return out
}

// DeserializePublicKey decodes a public key starting at data[off].
func DeserializePublicKey(c *Config, data []byte, off int) (*PublicKey, error) {
	n := c.wotsp.N()
	need := 4 + 2*n
	if off < 0 || len(data)-off < need {
		return nil, sigerr.Argument("xmss: public key needs %d bytes at offset %d, have %d", need, off, len(data))
	}
	oid := binary.BigEndian.Uint32(data[off : off+4])
	return NewPublicKey(c, oid, data[off+4:off+4+n], data[off+4+n:off+4+2*n])
}

// Signature is an XMSS signature: the WOTS+ leaf index, the randomness r,
// the WOTS+ signature and the authentication path. All fields are
// wire-bit-exact.
type Signature struct {
	wotspIndex uint32
	r          []byte
	wotspSig   []byte
	authPath   []byte
}

// NewSignature validates the field lengths against c and returns a
// signature holding defensive copies of every input.
func NewSignature(c *Config, wotspIndex uint32, r, wotspSig, authPath []byte) (*Signature, error) {
	n := c.wotsp.N()
	if int(wotspIndex) >= c.wotspCount {
		return nil, sigerr.Argument("xmss: signature index %d is outside leaves range %d", wotspIndex, c.wotspCount)
	}
	if len(r) != n {
		return nil, sigerr.Argument("xmss: signature randomness must be %d bytes, got %d", n, len(r))
	}
	if len(wotspSig) != c.wotsp.KeyLength() {
		return nil, sigerr.Argument("xmss: WOTS+ signature must be %d bytes, got %d", c.wotsp.KeyLength(), len(wotspSig))
	}
	if len(authPath) != c.authLength {
		return nil, sigerr.Argument("xmss: authentication path must be %d bytes, got %d", c.authLength, len(authPath))
	}

	return &Signature{
		wotspIndex: wotspIndex,
		r:          append([]byte(nil), r...),
		wotspSig:   append([]byte(nil), wotspSig...),
		authPath:   append([]byte(nil), authPath...),
	}, nil
}

// WOTSpIndex returns the index of the WOTS+ leaf that produced the
// signature.
func (s *Signature) WOTSpIndex() uint32 { return s.wotspIndex }

// R returns the signature randomness. Not to be modified.
func (s *Signature) R() []byte { return s.r }

// WOTSpSignature returns the embedded WOTS+ signature. Not to be modified.
func (s *Signature) WOTSpSignature() []byte { return s.wotspSig }

// AuthPath returns the authentication path. Not to be modified.
func (s *Signature) AuthPath() []byte { return s.authPath }

// Serialize encodes the signature as idx || r || wotsSig || authPath.
func (s *Signature) Serialize() []byte {
	out := make([]byte, 4+len(s.r)+len(s.wotspSig)+len(s.authPath))
	binary.BigEndian.PutUint32(out[0:4], s.wotspIndex)
	off := 4
	off += copy(out[off:], s.r)
	off += copy(out[off:], s.wotspSig)
	copy(out[off:], s.authPath)
	return out
}

// DeserializeSignature decodes a signature starting at data[off].
func DeserializeSignature(c *Config, data []byte, off int) (*Signature, error) {
	n := c.wotsp.N()
	if off < 0 || len(data)-off < c.signatureLength {
		return nil, sigerr.Argument("xmss: signature needs %d bytes at offset %d, have %d", c.signatureLength, off, len(data))
	}

	idx := binary.BigEndian.Uint32(data[off : off+4])
	p := off + 4
	r := data[p : p+n]
	p += n
	wotspSig := data[p : p+c.wotsp.KeyLength()]
	p += c.wotsp.KeyLength()
	authPath := data[p : p+c.authLength]

	return NewSignature(c, idx, r, wotspSig, authPath)
}

// Tree is the optional dense cache of every Merkle node, immutable once
// produced. Level 0 (the 2^h leaves) comes first, then level 1, up to the
// root at the end of the buffer.
type Tree struct {
	h        int
	n        int
	flatTree []byte
}

// NewTree validates the buffer length against h and n and returns a tree
// holding a defensive copy of flatTree.
func NewTree(h, n int, flatTree []byte) (*Tree, error) {
	if h <= 0 {
		return nil, sigerr.Argument("xmss: tree height must be positive, got %d", h)
	}
	if n <= 0 {
		return nil, sigerr.Argument("xmss: tree digest length must be positive, got %d", n)
	}
	nodeCount := 2*(1<<uint(h)) - 1
	if len(flatTree) != nodeCount*n {
		return nil, sigerr.Argument("xmss: flat tree must be %d bytes for h=%d n=%d, got %d", nodeCount*n, h, n, len(flatTree))
	}
	return &Tree{h: h, n: n, flatTree: append([]byte(nil), flatTree...)}, nil
}

// H returns the tree height.
func (t *Tree) H() int { return t.h }

// N returns the digest length of the cached nodes.
func (t *Tree) N() int { return t.n }

// FlatTree returns the dense node buffer. The slice aliases the tree's
// internal storage and must not be modified.
func (t *Tree) FlatTree() []byte { return t.flatTree }

// Root returns the root node at the end of the flat buffer. Not to be
// modified.
func (t *Tree) Root() []byte {
	return t.flatTree[len(t.flatTree)-t.n:]
}

// Serialize encodes the tree cache as h || n || flat tree bytes.
func (t *Tree) Serialize() []byte {
	out := make([]byte, 8+len(t.flatTree))
	binary.BigEndian.PutUint32(out[0:4], uint32(t.h))
	binary.BigEndian.PutUint32(out[4:8], uint32(t.n))
	copy(out[8:], t.flatTree)
	return out
}

// DeserializeTree decodes a tree cache starting at data[off].
func DeserializeTree(data []byte, off int) (*Tree, error) {
	if off < 0 || len(data)-off < 8 {
		return nil, sigerr.Argument("xmss: tree cache header needs 8 bytes at offset %d, have %d", off, len(data))
	}
	h := int(binary.BigEndian.Uint32(data[off : off+4]))
	n := int(binary.BigEndian.Uint32(data[off+4 : off+8]))
	if h <= 0 || h >= 31 || n <= 0 {
		return nil, sigerr.Argument("xmss: tree cache header has invalid h=%d n=%d", h, n)
	}
	nodeCount := 2*(1<<uint(h)) - 1
	if len(data)-off-8 < nodeCount*n {
		return nil, sigerr.Argument("xmss: tree cache needs %d node bytes, have %d", nodeCount*n, len(data)-off-8)
	}
	return NewTree(h, n, data[off+8:off+8+nodeCount*n])
}

// KeyPair bundles the private key, public key and optional tree cache
// produced by GenerateKeyPair.
type KeyPair struct {
	PrivateKey *PrivateKey
	PublicKey  *PublicKey
	Tree       *Tree
}
