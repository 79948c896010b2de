package hash

import "golang.org/x/crypto/blake2b"

// blake2bPrimitive adapts golang.org/x/crypto/blake2b to the Primitive
// contract. BLAKE2b natively supports variable-length (1..64 byte) digests,
// which lines up with the n-byte contract required by WOTSConfig directly,
// giving the test suite a second, independently engineered primitive beside
// SHA-2 and BLAKE3.
type blake2bPrimitive struct {
	n int
}

// NewBLAKE2b returns a Primitive producing n-byte BLAKE2b digests. n must be
// between 1 and 64; callers still need n to be a power of two to satisfy
// WOTSConfig, so in practice n is 16, 32 or 64.
func NewBLAKE2b(n int) (Primitive, error) {
	if n < 1 || n > blake2b.Size {
		return nil, ErrShortDestination
	}
	return &blake2bPrimitive{n: n}, nil
}

func (p *blake2bPrimitive) DigestLength() int { return p.n }

func (p *blake2bPrimitive) NewInstance() Instance {
	h, err := blake2b.New(p.n, nil)
	return &blake2bInstance{h: h, n: p.n, initErr: err}
}

type blake2bInstance struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
	n         int
	initErr   error
	finalized bool
}

func (i *blake2bInstance) Absorb(data []byte) error {
	if i.initErr != nil {
		return i.initErr
	}
	if i.finalized {
		return ErrAlreadyFinalized
	}
	_, err := i.h.Write(data)
	return err
}

func (i *blake2bInstance) Finalize(dest []byte) error {
	if i.initErr != nil {
		return i.initErr
	}
	if i.finalized {
		return ErrAlreadyFinalized
	}
	if len(dest) < i.n {
		return ErrShortDestination
	}
	i.finalized = true
	sum := i.h.Sum(nil)
	copy(dest, sum)
	return nil
}
