package hash

import (
	"crypto/sha256"
	"crypto/sha512"
)

// sha2Primitive adapts a standard-library sha256/sha512 constructor to the
// Primitive contract. The registered XMSS parameter sets are defined over
// SHA-2, so these adapters are required regardless of which other
// primitives are wired in.
type sha2Variant int

const (
	sha2VariantSHA256 sha2Variant = iota
	sha2VariantSHA512Trunc256
	sha2VariantSHA512
)

type sha2Primitive struct {
	n       int
	variant sha2Variant
}

// NewSHA256 returns a Primitive producing 32-byte SHA-256 digests.
func NewSHA256() Primitive {
	return &sha2Primitive{n: sha256.Size, variant: sha2VariantSHA256}
}

// NewSHA512Trunc256 returns a Primitive producing the 32-byte SHA-512/256
// digest (SHA-512 truncated to 256 bits via its dedicated IV).
func NewSHA512Trunc256() Primitive {
	return &sha2Primitive{n: sha512.Size256, variant: sha2VariantSHA512Trunc256}
}

// NewSHA512 returns a Primitive producing 64-byte SHA-512 digests.
func NewSHA512() Primitive {
	return &sha2Primitive{n: sha512.Size, variant: sha2VariantSHA512}
}

func (p *sha2Primitive) DigestLength() int { return p.n }

func (p *sha2Primitive) NewInstance() Instance {
	switch p.variant {
	case sha2VariantSHA256:
		return &sha2Instance{h: sha256.New(), n: p.n}
	case sha2VariantSHA512Trunc256:
		return &sha2Instance{h: sha512.New512_256(), n: p.n}
	default:
		return &sha2Instance{h: sha512.New(), n: p.n}
	}
}

type sha2Instance struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
	n         int
	finalized bool
}

func (i *sha2Instance) Absorb(data []byte) error {
	if i.finalized {
		return ErrAlreadyFinalized
	}
	_, err := i.h.Write(data)
	return err
}

func (i *sha2Instance) Finalize(dest []byte) error {
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
