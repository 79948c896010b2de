// Package hash defines the generic hash primitive contract consumed by the
// wotsp and xmss packages, and a small set of concrete adapters over
// standard-library and third-party digest implementations.
//
// A Primitive is a factory for fresh, stateful Instances. Each Instance
// accepts repeated Absorb calls followed by exactly one Finalize call; an
// Instance is not safe for concurrent use, and the core packages always
// create a new Instance per hashed value.
package hash

import "errors"

// ErrAlreadyFinalized is returned by Absorb or Finalize when Finalize has
// already been called on the instance.
var ErrAlreadyFinalized = errors.New("hash: instance already finalized")

// ErrShortDestination is returned by Finalize when dest is shorter than the
// primitive's digest length.
var ErrShortDestination = errors.New("hash: destination shorter than digest length")

// Primitive is a variable-output message digest factory.
type Primitive interface {
	// DigestLength returns n, the fixed digest length in bytes produced by
	// every Instance created by this Primitive.
	DigestLength() int

	// NewInstance returns a fresh, unfinalized hashing Instance.
	NewInstance() Instance
}

// Instance is a single hash computation in progress.
type Instance interface {
	// Absorb feeds data into the running hash. It fails with
	// ErrAlreadyFinalized if Finalize has already been called.
	Absorb(data []byte) error

	// Finalize writes the digest into dest[:n] and marks the instance as
	// finalized; a second call fails with ErrAlreadyFinalized. dest must be
	// at least n bytes long or Finalize fails with ErrShortDestination.
	Finalize(dest []byte) error
}

// sum is a small helper shared by the adapters below: it runs a single
// absorb/finalize round over in and returns the digest.
func sum(p Primitive, in []byte) ([]byte, error) {
	inst := p.NewInstance()
	if err := inst.Absorb(in); err != nil {
		return nil, err
	}
	out := make([]byte, p.DigestLength())
	if err := inst.Finalize(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sum is a convenience wrapper for callers that only need a one-shot digest
// rather than the Absorb/Finalize protocol.
func Sum(p Primitive, in []byte) ([]byte, error) {
	return sum(p, in)
}
