package xmss

import (
	"github.com/ortiscore/xmssgo/adrs"
	"github.com/ortiscore/xmssgo/sigerr"
	"github.com/ortiscore/xmssgo/wotsp"
)

// H is the tree hash: H(key, m) = Hash(toByte(1, n) || key || m).
func H(c *Config, key, msg, dest []byte) error {
	return wotsp.FunctionTemplate(c.wotsp, 1, key, msg, dest)
}

// Hmsg is the message hash: H_msg(key, m) = Hash(toByte(2, n) || key || m).
// key is the concatenation r || root || toByte(idx, n).
func Hmsg(c *Config, key, msg, dest []byte) error {
	return wotsp.FunctionTemplate(c.wotsp, 2, key, msg, dest)
}

// randHash computes RAND_HASH(left, right, publicSeed, a) into dest[:n]:
// a PRF-derived key and two PRF-derived bitmasks feed
// H(key, (left XOR bm0) || (right XOR bm1)). The caller must have set a's
// tree height and tree index to address this hash call.
func randHash(c *Config, left, right, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	n := c.wotsp.N()
	if len(left) < n || len(right) < n || len(dest) < n {
		return sigerr.Argument("xmss: randHash: buffers must be at least %d bytes", n)
	}

	key := make([]byte, n)
	bm := make([]byte, 2*n)
	xored := make([]byte, 2*n)

	a.SetKeyAndMask(0)
	if err := wotsp.PRF(c.wotsp, publicSeed, a.ToBytes(), key); err != nil {
		return err
	}
	a.SetKeyAndMask(1)
	if err := wotsp.PRF(c.wotsp, publicSeed, a.ToBytes(), bm[:n]); err != nil {
		return err
	}
	a.SetKeyAndMask(2)
	if err := wotsp.PRF(c.wotsp, publicSeed, a.ToBytes(), bm[n:]); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		xored[i] = left[i] ^ bm[i]
	}
	for i := 0; i < n; i++ {
		xored[n+i] = right[i] ^ bm[n+i]
	}
	return H(c, key, xored, dest)
}

// ltree compresses a len*n-byte WOTS+ public key into a single n-byte leaf
// using an unbalanced binary hash tree. a must have type LTree with its
// L-tree address set; its height and index words are rewritten here.
func ltree(c *Config, wotsPublicKey, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	wc := c.wotsp
	n := wc.N()
	if len(wotsPublicKey) != wc.KeyLength() {
		return sigerr.Argument("xmss: ltree: public key must be %d bytes, got %d", wc.KeyLength(), len(wotsPublicKey))
	}
	if len(dest) < n {
		return sigerr.Argument("xmss: ltree: destination must be at least %d bytes", n)
	}

	pk := make([]byte, wc.KeyLength())
	copy(pk, wotsPublicKey)

	lenp := wc.Len()
	height := 0
	if err := a.SetTreeHeight(height); err != nil {
		return err
	}
	for lenp > 1 {
		for i := 0; i < lenp/2; i++ {
			if err := a.SetTreeIndex(i); err != nil {
				return err
			}
			if err := randHash(c, pk[2*i*n:], pk[(2*i+1)*n:], publicSeed, a, pk[i*n:(i+1)*n]); err != nil {
				return err
			}
		}
		if lenp%2 == 1 {
			copy(pk[(lenp/2)*n:(lenp/2+1)*n], pk[(lenp-1)*n:lenp*n])
		}
		lenp = (lenp + 1) / 2
		height++
		if err := a.SetTreeHeight(height); err != nil {
			return err
		}
	}
	copy(dest[:n], pk[:n])
	return nil
}

// flatTreeIndex returns the byte offset of node (height, absIndex) inside
// the flat buffer of a sub-tree of height rootHeight whose leftmost leaf
// is s. The buffer stores level 0 first (the leaves), then level 1, up to
// the root.
func flatTreeIndex(height, absIndex, s, rootHeight, n int) (int, error) {
	localIndex := absIndex - s/(1<<uint(height))
	if localIndex < 0 {
		return 0, sigerr.Invariant("xmss: flatTreeIndex: node (%d, %d) lies left of sub-tree start %d", height, absIndex, s)
	}

	base := 0
	for i := 0; i < height; i++ {
		base += 1 << uint(rootHeight-i)
	}
	return (base + localIndex) * n, nil
}

// inflateLeafPrivateKey expands the compact seed of leaf idx into a full
// WOTS+ private key. a must have type OTS with its OTS address set to idx.
func inflateLeafPrivateKey(c *Config, idx int, compactPrivateKeys []byte, a *adrs.ADRS, dest []byte) error {
	n := c.wotsp.N()
	return wotsp.InflatePrivateKey(c.wotsp, compactPrivateKeys[idx*n:(idx+1)*n], a, dest)
}

// treeNode pairs an n-byte node value with its height, for the treeHash
// stack.
type treeNode struct {
	value  []byte
	height int
}

// treeHash builds the root of the sub-tree of height t whose leftmost leaf
// index is s, per RFC 8391 Algorithm 9, using a LIFO stack of at most t
// nodes. s must satisfy s % 2^t == 0 or the hash-addressing scheme fails.
//
// If flatDest is non-nil, every node of the sub-tree (leaves included) is
// additionally written at its flatTreeIndex offset; flatDest must hold
// (2^(t+1) - 1) * n bytes.
func treeHash(c *Config, s, t int, compactPrivateKeys, publicSeed []byte, a *adrs.ADRS, flatDest []byte) ([]byte, error) {
	wc := c.wotsp
	n := wc.N()

	if s < 0 || t < 0 || s%(1<<uint(t)) != 0 {
		return nil, sigerr.Argument("xmss: treeHash: start index %d is not a multiple of 2^%d", s, t)
	}
	if len(compactPrivateKeys) < (s+1<<uint(t))*n {
		return nil, sigerr.Argument("xmss: treeHash: compact private keys too short for s=%d t=%d", s, t)
	}
	if flatDest != nil && len(flatDest) < ((1<<uint(t+1))-1)*n {
		return nil, sigerr.Argument("xmss: treeHash: flat destination must be %d bytes, got %d", ((1<<uint(t+1))-1)*n, len(flatDest))
	}

	sk := make([]byte, wc.KeyLength())
	defer wipe(sk)
	pk := make([]byte, wc.KeyLength())
	node := make([]byte, n)
	var stack []treeNode

	for i := 0; i < 1<<uint(t); i++ {
		si := s + i

		a.SetType(adrs.OTS)
		if err := a.SetOTSAddress(uint32(si)); err != nil {
			return nil, err
		}
		if err := inflateLeafPrivateKey(c, si, compactPrivateKeys, a, sk); err != nil {
			return nil, err
		}
		if err := wotsp.KeyGen(wc, sk, publicSeed, a, pk); err != nil {
			return nil, err
		}

		a.SetType(adrs.LTree)
		if err := a.SetLTreeAddress(uint32(si)); err != nil {
			return nil, err
		}
		if err := ltree(c, pk, publicSeed, a, node); err != nil {
			return nil, err
		}

		a.SetType(adrs.HashTree)
		if err := a.SetTreeHeight(0); err != nil {
			return nil, err
		}
		if err := a.SetTreeIndex(si); err != nil {
			return nil, err
		}

		current := treeNode{value: append([]byte(nil), node...), height: 0}
		if flatDest != nil {
			off, err := flatTreeIndex(0, si, s, t, n)
			if err != nil {
				return nil, err
			}
			copy(flatDest[off:off+n], current.value)
		}

		for len(stack) > 0 && stack[len(stack)-1].height == current.height {
			idx, err := a.TreeIndex()
			if err != nil {
				return nil, err
			}
			if err := a.SetTreeIndex((idx - 1) >> 1); err != nil {
				return nil, err
			}

			lower := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := randHash(c, lower.value, current.value, publicSeed, a, node); err != nil {
				return nil, err
			}

			height, err := a.TreeHeight()
			if err != nil {
				return nil, err
			}
			if err := a.SetTreeHeight(height + 1); err != nil {
				return nil, err
			}

			current = treeNode{value: append([]byte(nil), node...), height: height + 1}
			if flatDest != nil {
				parentIdx, err := a.TreeIndex()
				if err != nil {
					return nil, err
				}
				off, err := flatTreeIndex(current.height, parentIdx, s, t, n)
				if err != nil {
					return nil, err
				}
				copy(flatDest[off:off+n], current.value)
			}
		}
		stack = append(stack, current)
	}

	if len(stack) != 1 {
		return nil, sigerr.Invariant("xmss: treeHash: stack holds %d nodes at end, want 1", len(stack))
	}
	return stack[0].value, nil
}

// ComputeRoot computes the Merkle root of the full tree directly from the
// compact private seeds, without caching any intermediate node.
func ComputeRoot(c *Config, compactPrivateKeys, publicSeed []byte) ([]byte, error) {
	if len(compactPrivateKeys) != c.compactedPrivateKeysLength {
		return nil, sigerr.Argument("xmss: ComputeRoot: compact private keys must be %d bytes, got %d", c.compactedPrivateKeysLength, len(compactPrivateKeys))
	}
	return treeHash(c, 0, c.h, compactPrivateKeys, publicSeed, adrs.New(), nil)
}

// computeAuth re-derives the h authentication siblings of leaf idx with one
// treeHash call per level, per RFC 8391's buildAuth.
func computeAuth(c *Config, idx int, compactPrivateKeys, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	n := c.wotsp.N()
	if len(dest) < c.authLength {
		return sigerr.Argument("xmss: computeAuth: destination must be %d bytes, got %d", c.authLength, len(dest))
	}

	for j := 0; j < c.h; j++ {
		k := (idx >> uint(j)) ^ 1
		node, err := treeHash(c, k<<uint(j), j, compactPrivateKeys, publicSeed, a, nil)
		if err != nil {
			return err
		}
		copy(dest[j*n:(j+1)*n], node)
	}
	return nil
}

// readAuth copies the h authentication siblings of leaf idx out of a
// cached flat tree.
func readAuth(c *Config, idx int, flatTree, dest []byte) error {
	n := c.wotsp.N()
	if len(flatTree) != c.treeNodeCount*n {
		return sigerr.Argument("xmss: readAuth: flat tree must be %d bytes, got %d", c.treeNodeCount*n, len(flatTree))
	}
	if len(dest) < c.authLength {
		return sigerr.Argument("xmss: readAuth: destination must be %d bytes, got %d", c.authLength, len(dest))
	}

	for j := 0; j < c.h; j++ {
		k := (idx >> uint(j)) ^ 1
		off, err := flatTreeIndex(j, k, 0, c.h, n)
		if err != nil {
			return err
		}
		copy(dest[j*n:(j+1)*n], flatTree[off:off+n])
	}
	return nil
}

// ReadRoot copies the root node out of a cached flat tree.
func ReadRoot(c *Config, flatTree, dest []byte) error {
	n := c.wotsp.N()
	if len(flatTree) != c.treeNodeCount*n {
		return sigerr.Argument("xmss: ReadRoot: flat tree must be %d bytes, got %d", c.treeNodeCount*n, len(flatTree))
	}
	if len(dest) < n {
		return sigerr.Argument("xmss: ReadRoot: destination must be at least %d bytes", n)
	}
	copy(dest[:n], flatTree[(c.treeNodeCount-1)*n:])
	return nil
}

// treeSig produces the WOTS+ signature of msgPrime under leaf idx and the
// leaf's authentication path. The path is read from flatTree when one is
// supplied and recomputed otherwise.
func treeSig(c *Config, msgPrime []byte, idx int, compactPrivateKeys, publicSeed, flatTree, wotsSigDest, authDest []byte) error {
	a := adrs.New()

	if flatTree == nil {
		if err := computeAuth(c, idx, compactPrivateKeys, publicSeed, a, authDest); err != nil {
			return err
		}
	} else {
		if err := readAuth(c, idx, flatTree, authDest); err != nil {
			return err
		}
	}

	a.SetType(adrs.OTS)
	if err := a.SetOTSAddress(uint32(idx)); err != nil {
		return err
	}

	sk := make([]byte, c.wotsp.KeyLength())
	if err := inflateLeafPrivateKey(c, idx, compactPrivateKeys, a, sk); err != nil {
		return err
	}
	defer wipe(sk)

	return wotsp.Sign(c.wotsp, msgPrime, sk, publicSeed, a, wotsSigDest)
}

// rootFromSig recomputes the candidate Merkle root implied by a signature,
// per RFC 8391 Algorithm 13: recover the WOTS+ public key from the
// signature, compress it through the L-tree, then fold the authentication
// path upward.
func rootFromSig(c *Config, msgPrime []byte, idx int, wotsSig, auth, publicSeed []byte, a *adrs.ADRS) ([]byte, error) {
	wc := c.wotsp
	n := wc.N()

	pk := make([]byte, wc.KeyLength())
	node0 := make([]byte, n)
	node1 := make([]byte, n)

	a.SetType(adrs.OTS)
	if err := a.SetOTSAddress(uint32(idx)); err != nil {
		return nil, err
	}
	if err := wotsp.SignatureToPublicKey(wc, msgPrime, wotsSig, publicSeed, a, pk); err != nil {
		return nil, err
	}

	a.SetType(adrs.LTree)
	if err := a.SetLTreeAddress(uint32(idx)); err != nil {
		return nil, err
	}
	if err := ltree(c, pk, publicSeed, a, node0); err != nil {
		return nil, err
	}

	a.SetType(adrs.HashTree)
	if err := a.SetTreeIndex(idx); err != nil {
		return nil, err
	}
	for k := 0; k < c.h; k++ {
		if err := a.SetTreeHeight(k); err != nil {
			return nil, err
		}
		treeIndex, err := a.TreeIndex()
		if err != nil {
			return nil, err
		}
		if (idx>>uint(k))&1 == 0 {
			if err := a.SetTreeIndex(treeIndex >> 1); err != nil {
				return nil, err
			}
			if err := randHash(c, node0, auth[k*n:], publicSeed, a, node1); err != nil {
				return nil, err
			}
		} else {
			if err := a.SetTreeIndex((treeIndex - 1) >> 1); err != nil {
				return nil, err
			}
			if err := randHash(c, auth[k*n:], node0, publicSeed, a, node1); err != nil {
				return nil, err
			}
		}
		copy(node0, node1)
	}
	return node0, nil
}

// wipe zeroes a scratch buffer holding inflated private-key material.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
