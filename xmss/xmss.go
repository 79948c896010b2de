package xmss

import (
	"github.com/ortiscore/xmssgo/adrs"
	"github.com/ortiscore/xmssgo/internal/bytesutil"
	"github.com/ortiscore/xmssgo/sigerr"
	"github.com/ortiscore/xmssgo/wotsp"
)

// ErrKeyExhausted is returned by Sign when every WOTS+ leaf of the private
// key has been used. It wraps sigerr.ErrArgument.
var ErrKeyExhausted = sigerr.Argument("xmss: WOTS+ leaves have been exhausted")

// Option customizes GenerateKeyPair.
type Option func(*genOptions)

type genOptions struct {
	storeTree   bool
	parallelism int
}

// WithStoreTree caches every Merkle node in a Tree returned alongside the
// key pair, trading 2^(h+1)-1 node slots of memory for O(1)
// authentication-path reads when signing.
func WithStoreTree() Option {
	return func(o *genOptions) { o.storeTree = true }
}

// WithParallelism sets the number of goroutines used to build the Merkle
// tree. 0 and 1 select the single-threaded path; a negative value makes
// GenerateKeyPair fail with an argument error.
func WithParallelism(parallelism int) Option {
	return func(o *genOptions) { o.parallelism = parallelism }
}

// GenerateKeyPair derives the XMSS key pair for the given seed material:
// the 2^h * n-byte compact WOTS+ seed table, the n-byte SK_PRF seed and
// the n-byte public seed. Seeds are consumed but never mutated; the caller
// owns their durable storage. The returned KeyPair carries a Tree cache
// when WithStoreTree is set.
func GenerateKeyPair(c *Config, compactPrivateKeys, skPrf, publicSeed []byte, opts ...Option) (*KeyPair, error) {
	var o genOptions
	o.parallelism = 1
	for _, opt := range opts {
		opt(&o)
	}

	n := c.wotsp.N()
	if len(compactPrivateKeys) != c.compactedPrivateKeysLength {
		return nil, sigerr.Argument("xmss: compact private keys must be %d bytes (%d leaves of %d), got %d",
			c.compactedPrivateKeysLength, c.wotspCount, n, len(compactPrivateKeys))
	}
	if len(skPrf) != n {
		return nil, sigerr.Argument("xmss: SK_PRF seed must be %d bytes, got %d", n, len(skPrf))
	}
	if len(publicSeed) != n {
		return nil, sigerr.Argument("xmss: public seed must be %d bytes, got %d", n, len(publicSeed))
	}
	if o.parallelism < 0 {
		return nil, sigerr.Argument("xmss: parallelism cannot be negative, got %d", o.parallelism)
	}

	var (
		root []byte
		tree *Tree
		err  error
	)

	if o.parallelism <= 1 {
		if o.storeTree {
			flat := make([]byte, c.treeNodeCount*n)
			if _, err = treeHash(c, 0, c.h, compactPrivateKeys, publicSeed, adrs.New(), flat); err != nil {
				return nil, err
			}
			root = make([]byte, n)
			if err = ReadRoot(c, flat, root); err != nil {
				return nil, err
			}
			if tree, err = NewTree(c.h, n, flat); err != nil {
				return nil, err
			}
			if !bytesutil.ConstantTimeEqual(root, tree.Root()) {
				return nil, sigerr.Invariant("xmss: tree root mismatch between read and cached values")
			}
		} else {
			if root, err = ComputeRoot(c, compactPrivateKeys, publicSeed); err != nil {
				return nil, err
			}
		}
	} else {
		pool, err := buildTreeParallel(c, compactPrivateKeys, publicSeed, o.storeTree, o.parallelism)
		if err != nil {
			return nil, err
		}
		if root, err = pool.root(); err != nil {
			return nil, err
		}
		if o.storeTree {
			if tree, err = pool.toTree(); err != nil {
				return nil, err
			}
			if !bytesutil.ConstantTimeEqual(root, tree.Root()) {
				return nil, sigerr.Invariant("xmss: tree root mismatch between merged and cached values")
			}
		}
	}

	privateKey, err := NewPrivateKey(c, 0, compactPrivateKeys, skPrf, root, publicSeed)
	if err != nil {
		return nil, err
	}
	publicKey, err := NewPublicKey(c, c.oid, root, publicSeed)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PrivateKey: privateKey, PublicKey: publicKey, Tree: tree}, nil
}

// Sign produces the XMSS signature of an n-byte message with the next
// unused WOTS+ leaf of privateKey. tree may be nil, in which case the
// authentication path is recomputed from the compact seeds.
//
// The caller MUST advance the private key with IncrementIdx before
// releasing the signature; signing twice with the same index forfeits the
// one-time security of the underlying WOTS+ leaf.
func Sign(c *Config, msg []byte, privateKey *PrivateKey, tree *Tree) (*Signature, error) {
	n := c.wotsp.N()
	if privateKey == nil {
		return nil, sigerr.Argument("xmss: private key cannot be nil")
	}
	if len(msg) != n {
		return nil, sigerr.Argument("xmss: message must be %d bytes, got %d", n, len(msg))
	}

	idx := int(privateKey.nextIdx)
	if idx >= c.wotspCount {
		return nil, ErrKeyExhausted
	}

	var flatTree []byte
	if tree != nil {
		flatTree = tree.flatTree
		if len(flatTree) != c.treeNodeCount*n {
			return nil, sigerr.Argument("xmss: flat tree must be %d bytes, got %d", c.treeNodeCount*n, len(flatTree))
		}
	}

	// r = PRF(SK_PRF, toByte(idx, 32))
	r := make([]byte, n)
	idxBytes, err := bytesutil.ToByte(uint64(idx), 32)
	if err != nil {
		return nil, sigerr.Argument("xmss: Sign: %v", err)
	}
	if err := wotsp.PRF(c.wotsp, privateKey.skPrf, idxBytes, r); err != nil {
		return nil, err
	}

	msgPrime, err := compressMessage(c, msg, idx, r, privateKey.root)
	if err != nil {
		return nil, err
	}

	wotsSig := make([]byte, c.wotsp.KeyLength())
	auth := make([]byte, c.authLength)
	if err := treeSig(c, msgPrime, idx, privateKey.compactPrivateKeys, privateKey.publicSeed, flatTree, wotsSig, auth); err != nil {
		return nil, err
	}

	return NewSignature(c, uint32(idx), r, wotsSig, auth)
}

// compressMessage computes M' = H_msg(r || root || toByte(idx, n), msg).
func compressMessage(c *Config, msg []byte, idx int, r, root []byte) ([]byte, error) {
	n := c.wotsp.N()
	key := make([]byte, 3*n)
	copy(key[:n], r)
	copy(key[n:2*n], root)
	if err := bytesutil.PutToByte(key[2*n:], uint64(idx)); err != nil {
		return nil, sigerr.Argument("xmss: %v", err)
	}

	msgPrime := make([]byte, n)
	if err := Hmsg(c, key, msg, msgPrime); err != nil {
		return nil, err
	}
	return msgPrime, nil
}

// Verify reports whether signature is a valid XMSS signature of the
// n-byte msg under publicKey. Size and range preconditions fail with an
// error before any hashing; a root mismatch is reported as (false, nil).
// The final root comparison is constant-time.
func Verify(c *Config, msg []byte, signature *Signature, publicKey *PublicKey) (bool, error) {
	n := c.wotsp.N()
	if signature == nil || publicKey == nil {
		return false, sigerr.Argument("xmss: signature and public key cannot be nil")
	}
	if len(msg) != n {
		return false, sigerr.Argument("xmss: message must be %d bytes, got %d", n, len(msg))
	}
	idx := int(signature.wotspIndex)
	if idx >= c.wotspCount {
		return false, sigerr.Argument("xmss: WOTS+ index %d is outside leaves range %d", idx, c.wotspCount)
	}
	if len(signature.r) != n || len(signature.wotspSig) != c.wotsp.KeyLength() || len(signature.authPath) != c.authLength {
		return false, sigerr.Argument("xmss: signature buffers do not match configuration")
	}
	if len(publicKey.root) != n || len(publicKey.publicSeed) != n {
		return false, sigerr.Argument("xmss: public key buffers do not match configuration")
	}

	msgPrime, err := compressMessage(c, msg, idx, signature.r, publicKey.root)
	if err != nil {
		return false, err
	}

	candidate, err := rootFromSig(c, msgPrime, idx, signature.wotspSig, signature.authPath, publicKey.publicSeed, adrs.New())
	if err != nil {
		return false, err
	}
	return bytesutil.ConstantTimeEqual(publicKey.root, candidate), nil
}
