// Package sigerr defines the three error kinds shared by the adrs, wotsp
// and xmss packages: caller-side argument errors, wrapped hash-primitive
// failures, and internal invariant violations. None of them are recovered
// inside the core; verification failures are never represented as errors,
// only as a false return value.
package sigerr

import (
	"errors"
	"fmt"
)

// ErrArgument marks a caller-side precondition violation: wrong buffer
// sizes, an out-of-range index, a digest length that does not match n, an
// unsupported w, h <= 0, or a misaligned treeHash start index. It must be
// raised before any hash operation runs.
var ErrArgument = errors.New("sigerr: invalid argument")

// ErrHash marks a failure reported by the caller-supplied hash primitive.
var ErrHash = errors.New("sigerr: hash primitive failed")

// ErrInvariant marks an internal invariant violation that indicates a bug
// in this module rather than caller misuse: a treeHash stack that did not
// collapse to one element, a duplicate publish in the parallel treeHash, or
// a root mismatch between the storing and non-storing code paths.
var ErrInvariant = errors.New("sigerr: internal invariant violated")

// Argument wraps ErrArgument with context.
func Argument(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrArgument}, args...)...)
}

// Hash wraps ErrHash with the name of the calling primitive (F, PRF, H,
// H_msg) and the underlying error.
func Hash(primitive string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrHash, primitive, err)
}

// Invariant wraps ErrInvariant with context. Callers of Invariant should
// treat the returned error as fatal; it is never expected under correct
// use of the library.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...)
}
