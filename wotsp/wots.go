package wotsp

import (
	"github.com/ortiscore/xmssgo/adrs"
	"github.com/ortiscore/xmssgo/internal/bytesutil"
	"github.com/ortiscore/xmssgo/sigerr"
)

// domain separation tags for FunctionTemplate, per RFC 8391 §5.1.
const (
	domainF   = 0
	domainPRF = 3
)

// primitiveName maps a domain separation tag to the RFC name of the keyed
// hash built on it, for hash-failure context.
func primitiveName(domain uint64) string {
	switch domain {
	case domainF:
		return "F"
	case 1:
		return "H"
	case 2:
		return "H_msg"
	case domainPRF:
		return "PRF"
	default:
		return "functionTemplate"
	}
}

// FunctionTemplate computes Hash(toByte(domain, n) || key || msg) into
// dest[:n]. It is the shared shape of the four keyed hashes F (domain 0),
// H (1), H_msg (2) and PRF (3).
func FunctionTemplate(c *Config, domain uint64, key, msg, dest []byte) error {
	n := c.n
	prefix, err := bytesutil.ToByte(domain, n)
	if err != nil {
		return sigerr.Argument("wotsp: FunctionTemplate: %v", err)
	}
	if len(dest) < n {
		return sigerr.Argument("wotsp: FunctionTemplate: destination shorter than n=%d", n)
	}

	name := primitiveName(domain)
	inst := c.hash.NewInstance()
	if err := inst.Absorb(prefix); err != nil {
		return sigerr.Hash(name, err)
	}
	if err := inst.Absorb(key); err != nil {
		return sigerr.Hash(name, err)
	}
	if err := inst.Absorb(msg); err != nil {
		return sigerr.Hash(name, err)
	}
	if err := inst.Finalize(dest[:n]); err != nil {
		return sigerr.Hash(name, err)
	}
	return nil
}

// F is the chain's keyed compression function: F(key, msg) =
// FunctionTemplate(0, key, msg).
func F(c *Config, key, msg, dest []byte) error {
	return FunctionTemplate(c, domainF, key, msg, dest)
}

// PRF derives pseudorandom output from a key (the public or compact
// private seed) and an n-or-32-byte message (typically an ADRS): PRF(key,
// msg) = FunctionTemplate(3, key, msg).
func PRF(c *Config, key, msg, dest []byte) error {
	return FunctionTemplate(c, domainPRF, key, msg, dest)
}

// InflatePrivateKey expands a single n-byte compact seed into the full
// Len*N-byte WOTS+ private key, one PRF call per chain keyed by the
// compact seed, with the chain index written into a's chain address word
// and the hash address and keyAndMask words set to zero. a must already
// have type OTS set (with its OTS address set by
// the caller, e.g. to the leaf index in the XMSS context).
func InflatePrivateKey(c *Config, compactSeed []byte, a *adrs.ADRS, dest []byte) error {
	n := c.n
	if len(compactSeed) != n {
		return sigerr.Argument("wotsp: InflatePrivateKey: compact seed must be %d bytes, got %d", n, len(compactSeed))
	}
	if len(dest) != c.keyLength {
		return sigerr.Argument("wotsp: InflatePrivateKey: destination must be %d bytes, got %d", c.keyLength, len(dest))
	}

	for i := 0; i < c.len; i++ {
		if err := a.SetChainAddress(uint32(i)); err != nil {
			return err
		}
		if err := a.SetHashAddress(0); err != nil {
			return err
		}
		a.SetKeyAndMask(0)
		if err := PRF(c, compactSeed, a.ToBytes(), dest[i*n:(i+1)*n]); err != nil {
			return err
		}
	}
	return nil
}

// chain runs the hash chain for `steps` iterations starting at position
// start, in place on dest (dest may alias x). Preconditions: start >= 0,
// start+steps <= w-1.
func chain(c *Config, x []byte, start, steps int, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	n := c.n
	if start < 0 || start+steps > c.w-1 {
		return sigerr.Argument("wotsp: chain: invalid range start=%d steps=%d w=%d", start, steps, c.w)
	}
	if len(x) != n || len(dest) != n {
		return sigerr.Argument("wotsp: chain: buffers must be %d bytes", n)
	}

	if &dest[0] != &x[0] {
		copy(dest, x)
	}
	if steps == 0 {
		return nil
	}

	key := make([]byte, n)
	bm := make([]byte, n)
	buf := make([]byte, n)

	for i := start; i < start+steps; i++ {
		if err := a.SetHashAddress(uint32(i)); err != nil {
			return err
		}
		a.SetKeyAndMask(0)
		if err := PRF(c, publicSeed, a.ToBytes(), key); err != nil {
			return err
		}
		a.SetKeyAndMask(1)
		if err := PRF(c, publicSeed, a.ToBytes(), bm); err != nil {
			return err
		}
		for j := 0; j < n; j++ {
			buf[j] = dest[j] ^ bm[j]
		}
		if err := F(c, key, buf, dest); err != nil {
			return err
		}
	}
	return nil
}

// baseW converts input into outLen base-w digits, most significant digit
// first per byte (e.g. for w=16: high nibble then low nibble).
func baseW(input []byte, outLen, w, logW int) []int {
	out := make([]int, outLen)
	var in, bits, total int
	mask := w - 1
	for consumed := 0; consumed < outLen; consumed++ {
		if bits == 0 {
			total = int(input[in])
			in++
			bits = 8
		}
		bits -= logW
		out[consumed] = (total >> uint(bits)) & mask
	}
	return out
}

// chainLengths computes the Len base-w digits of the message plus its
// checksum, per RFC 8391 Algorithm 1 (chaining lengths).
func chainLengths(c *Config, msg []byte) ([]int, error) {
	if len(msg) != c.n {
		return nil, sigerr.Argument("wotsp: chainLengths: message must be %d bytes, got %d", c.n, len(msg))
	}

	digits := make([]int, c.len)
	copy(digits, baseW(msg, c.len1, c.w, c.logW))

	csum := 0
	for i := 0; i < c.len1; i++ {
		csum += c.w - 1 - digits[i]
	}

	// Left-align the checksum in its byte block.
	shift := (8 - (c.len2*c.logW)%8) % 8
	csum <<= uint(shift)

	csumBytes, err := bytesutil.ToByte(uint64(csum), ceilDiv(c.len2*c.logW, 8))
	if err != nil {
		return nil, sigerr.Argument("wotsp: chainLengths: checksum encoding: %v", err)
	}

	copy(digits[c.len1:], baseW(csumBytes, c.len2, c.w, c.logW))
	return digits, nil
}

// KeyGen derives the full WOTS+ public key from a private key of
// KeyLength bytes. a must have type OTS set.
func KeyGen(c *Config, privateKey, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	n := c.n
	if len(privateKey) != c.keyLength || len(dest) != c.keyLength {
		return sigerr.Argument("wotsp: KeyGen: keys must be %d bytes", c.keyLength)
	}
	for i := 0; i < c.len; i++ {
		if err := a.SetChainAddress(uint32(i)); err != nil {
			return err
		}
		if err := chain(c, privateKey[i*n:(i+1)*n], 0, c.w-1, publicSeed, a, dest[i*n:(i+1)*n]); err != nil {
			return err
		}
	}
	return nil
}

// Sign produces a WOTS+ signature of an n-byte message under privateKey.
// a must have type OTS set.
func Sign(c *Config, msg, privateKey, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	if len(privateKey) != c.keyLength || len(dest) != c.keyLength {
		return sigerr.Argument("wotsp: Sign: keys must be %d bytes", c.keyLength)
	}
	digits, err := chainLengths(c, msg)
	if err != nil {
		return err
	}
	n := c.n
	for i := 0; i < c.len; i++ {
		if err := a.SetChainAddress(uint32(i)); err != nil {
			return err
		}
		if err := chain(c, privateKey[i*n:(i+1)*n], 0, digits[i], publicSeed, a, dest[i*n:(i+1)*n]); err != nil {
			return err
		}
	}
	return nil
}

// SignatureToPublicKey recovers the WOTS+ public key implied by a
// signature of msg. a must have type OTS set.
func SignatureToPublicKey(c *Config, msg, signature, publicSeed []byte, a *adrs.ADRS, dest []byte) error {
	if len(signature) != c.keyLength || len(dest) != c.keyLength {
		return sigerr.Argument("wotsp: SignatureToPublicKey: buffers must be %d bytes", c.keyLength)
	}
	digits, err := chainLengths(c, msg)
	if err != nil {
		return err
	}
	n := c.n
	for i := 0; i < c.len; i++ {
		if err := a.SetChainAddress(uint32(i)); err != nil {
			return err
		}
		if err := chain(c, signature[i*n:(i+1)*n], digits[i], c.w-1-digits[i], publicSeed, a, dest[i*n:(i+1)*n]); err != nil {
			return err
		}
	}
	return nil
}

// Verify derives the public key implied by signature and compares it in
// constant time against publicKey. Size mismatches are reported via the
// returned error before any hashing runs; a mismatched signature is
// reported as (false, nil), never an error.
func Verify(c *Config, msg, signature, publicKey, publicSeed []byte, a *adrs.ADRS) (bool, error) {
	if len(publicKey) != c.keyLength {
		return false, sigerr.Argument("wotsp: Verify: public key must be %d bytes, got %d", c.keyLength, len(publicKey))
	}
	if len(signature) != c.keyLength {
		return false, sigerr.Argument("wotsp: Verify: signature must be %d bytes, got %d", c.keyLength, len(signature))
	}

	derived := make([]byte, c.keyLength)
	if err := SignatureToPublicKey(c, msg, signature, publicSeed, a, derived); err != nil {
		return false, err
	}
	return bytesutil.ConstantTimeEqual(publicKey, derived), nil
}
