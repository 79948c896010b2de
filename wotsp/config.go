// Package wotsp implements the Winternitz One-Time Signature Plus (WOTS+)
// scheme from RFC 8391: chain walks, base-w expansion, checksum, keygen,
// sign and signature-to-public-key recovery, over a caller-supplied hash
// primitive and ADRS.
package wotsp

import (
	"math/bits"

	"github.com/ortiscore/xmssgo/hash"
	"github.com/ortiscore/xmssgo/internal/bytesutil"
	"github.com/ortiscore/xmssgo/sigerr"
)

// Config is an immutable record of the WOTS+ parameters for one scheme
// instantiation.
type Config struct {
	w    int
	logW int
	n    int
	hash hash.Primitive

	len1      int
	len2      int
	len       int
	keyLength int
}

// ConfigOption customizes NewConfig.
type ConfigOption func(*configOptions)

type configOptions struct {
	allowUntestedW4 bool
}

// AllowUntestedW4 opts into w=4, which RFC 8391 permits but which this
// module has never exercised against independent test vectors; it is
// refused by default.
func AllowUntestedW4() ConfigOption {
	return func(o *configOptions) { o.allowUntestedW4 = true }
}

// NewConfig validates w and the hash primitive and derives len1, len2, len
// and keyLength per RFC 8391 §3.1.
func NewConfig(w int, h hash.Primitive, opts ...ConfigOption) (*Config, error) {
	var o configOptions
	for _, opt := range opts {
		opt(&o)
	}

	if w != 4 && w != 16 {
		return nil, sigerr.Argument("wotsp: w must be 4 or 16, got %d", w)
	}
	if w == 4 && !o.allowUntestedW4 {
		return nil, sigerr.Argument("wotsp: w=4 is untested; pass AllowUntestedW4() to opt in")
	}
	if h == nil {
		return nil, sigerr.Argument("wotsp: hash primitive cannot be nil")
	}

	n := h.DigestLength()
	if !bytesutil.IsPowerOfTwo(n) {
		return nil, sigerr.Argument("wotsp: digest length n=%d must be a power of 2", n)
	}

	logW := bytesutil.Log2(w)

	len1 := ceilDiv(8*n, logW)
	// len2 = floor(log2(len1*(w-1))/logW) + 1; bits.Len(x)-1 == floor(log2(x)).
	len2 := (bits.Len(uint(len1*(w-1)))-1)/logW + 1

	length := len1 + len2

	return &Config{
		w:         w,
		logW:      logW,
		n:         n,
		hash:      h,
		len1:      len1,
		len2:      len2,
		len:       length,
		keyLength: length * n,
	}, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// W returns the Winternitz parameter.
func (c *Config) W() int { return c.w }

// LogW returns log2(W).
func (c *Config) LogW() int { return c.logW }

// N returns the digest length in bytes.
func (c *Config) N() int { return c.n }

// Hash returns the configured hash primitive.
func (c *Config) Hash() hash.Primitive { return c.hash }

// Len1 returns the number of base-w digits representing the message.
func (c *Config) Len1() int { return c.len1 }

// Len2 returns the number of checksum digits.
func (c *Config) Len2() int { return c.len2 }

// Len returns Len1 + Len2, the number of WOTS+ chains.
func (c *Config) Len() int { return c.len }

// KeyLength returns Len * N, the size in bytes of a WOTS+ private or public
// key.
func (c *Config) KeyLength() int { return c.keyLength }
