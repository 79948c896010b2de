// Package xmss implements the eXtended Merkle Signature Scheme from
// RFC 8391 on top of the wotsp package: randomized tree hashing, L-tree
// compression, single-threaded and parallel Merkle tree construction,
// stateful signing and verification.
//
// Private Key = nextIdx || compact WOTS+ private seeds || SK_PRF || root || SEED
// Public Key  = OID || root || SEED
// Signature   = idx || r || WOTS+ signature || authentication path
package xmss

import (
	"github.com/ortiscore/xmssgo/sigerr"
	"github.com/ortiscore/xmssgo/wotsp"
)

// Config is an immutable record of the XMSS parameters: the registry OID
// (0 if unspecified), the inner WOTS+ configuration and the tree height h.
type Config struct {
	oid   uint32
	wotsp *wotsp.Config
	h     int

	wotspCount                 int
	compactedPrivateKeysLength int
	authLength                 int
	signatureLength            int
	treeNodeCount              int
}

// NewConfig validates h and derives the dependent lengths. oid is carried
// verbatim into serialized public keys; use OIDSHA256 / OIDSHA512 for the
// registered parameter sets, or 0 for a non-interoperable custom set.
func NewConfig(oid uint32, wc *wotsp.Config, h int) (*Config, error) {
	if wc == nil {
		return nil, sigerr.Argument("xmss: WOTS+ config cannot be nil")
	}
	if h <= 0 {
		return nil, sigerr.Argument("xmss: tree height h must be positive, got %d", h)
	}
	if h >= 31 {
		return nil, sigerr.Argument("xmss: tree height h=%d does not fit signed 32-bit indexing", h)
	}

	n := wc.N()
	count := 1 << uint(h)

	return &Config{
		oid:                        oid,
		wotsp:                      wc,
		h:                          h,
		wotspCount:                 count,
		compactedPrivateKeysLength: count * n,
		authLength:                 h * n,
		signatureLength:            4 + n + wc.KeyLength() + h*n,
		treeNodeCount:              2*count - 1,
	}, nil
}

// OID returns the registry tag, 0 if unspecified.
func (c *Config) OID() uint32 { return c.oid }

// WOTSp returns the inner WOTS+ configuration.
func (c *Config) WOTSp() *wotsp.Config { return c.wotsp }

// H returns the tree height.
func (c *Config) H() int { return c.h }

// WOTSpCount returns 2^h, the number of WOTS+ leaves.
func (c *Config) WOTSpCount() int { return c.wotspCount }

// CompactedPrivateKeysLength returns 2^h * n, the size of the compact
// per-leaf seed table.
func (c *Config) CompactedPrivateKeysLength() int { return c.compactedPrivateKeysLength }

// AuthLength returns h * n, the size of an authentication path.
func (c *Config) AuthLength() int { return c.authLength }

// SignatureLength returns 4 + n + len*n + h*n, the wire size of a
// signature.
func (c *Config) SignatureLength() int { return c.signatureLength }

// TreeNodeCount returns 2*2^h - 1, the number of nodes in the full Merkle
// tree.
func (c *Config) TreeNodeCount() int { return c.treeNodeCount }

// OIDSHA256 returns the registered OID for the XMSS-SHA2_h_256 parameter
// sets. ok is false for heights outside {10, 16, 20}.
func OIDSHA256(h int) (oid uint32, ok bool) {
	switch h {
	case 10:
		return 1, true
	case 16:
		return 2, true
	case 20:
		return 3, true
	default:
		return 0, false
	}
}

// OIDSHA512 returns the registered OID for the XMSS-SHA2_h_512 parameter
// sets. ok is false for heights outside {10, 16, 20}.
func OIDSHA512(h int) (oid uint32, ok bool) {
	switch h {
	case 10:
		return 4, true
	case 16:
		return 5, true
	case 20:
		return 6, true
	default:
		return 0, false
	}
}
