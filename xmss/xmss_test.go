package xmss

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ortiscore/xmssgo/hash"
	"github.com/ortiscore/xmssgo/internal/bytesutil"
	"github.com/ortiscore/xmssgo/sigerr"
	"github.com/ortiscore/xmssgo/wotsp"
)

// testConfig builds an XMSS config of height h over SHA-256 with w=16.
func testConfig(t *testing.T, h int) *Config {
	t.Helper()
	wc, err := wotsp.NewConfig(16, hash.NewSHA256())
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(0, wc, h)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// fillSeq fills b with a deterministic byte pattern derived from tag, so
// every test input is reproducible without an entropy source.
func fillSeq(b []byte, tag byte) {
	for i := range b {
		b[i] = byte(i)*31 + tag
	}
}

// testSeeds returns deterministic compact seeds, SK_PRF and public seed
// for c.
func testSeeds(t *testing.T, c *Config) (compact, skPrf, publicSeed []byte) {
	t.Helper()
	n := c.WOTSp().N()
	compact = make([]byte, c.CompactedPrivateKeysLength())
	skPrf = make([]byte, n)
	publicSeed = make([]byte, n)
	fillSeq(compact, 0x11)
	fillSeq(skPrf, 0x22)
	fillSeq(publicSeed, 0x33)
	return compact, skPrf, publicSeed
}

func mustToByte(t *testing.T, v uint64, length int) []byte {
	t.Helper()
	b, err := bytesutil.ToByte(v, length)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// TestSignVerifyAllLeaves signs one message per leaf at h=4 and verifies
// them all; the 17th signature must fail with an exhausted-key error.
func TestSignVerifyAllLeaves(t *testing.T) {
	c := testConfig(t, 4)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}

	privateKey := pair.PrivateKey
	for i := 0; i < c.WOTSpCount(); i++ {
		msg := mustToByte(t, uint64(i), 32)
		sig, err := Sign(c, msg, privateKey, nil)
		if err != nil {
			t.Fatalf("sign %d: %v", i, err)
		}
		if sig.WOTSpIndex() != uint32(i) {
			t.Fatalf("signature %d used index %d", i, sig.WOTSpIndex())
		}

		ok, err := Verify(c, msg, sig, pair.PublicKey)
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("signature %d did not verify", i)
		}

		if privateKey, err = privateKey.IncrementIdx(c); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	if privateKey.RemainingLeaves(c) != 0 {
		t.Fatalf("remaining leaves = %d, want 0", privateKey.RemainingLeaves(c))
	}
	if _, err := Sign(c, make([]byte, 32), privateKey, nil); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("exhausted sign: got %v, want ErrArgument", err)
	}
	if _, err := Sign(c, make([]byte, 32), privateKey, nil); !errors.Is(err, ErrKeyExhausted) {
		t.Fatalf("exhausted sign: got %v, want ErrKeyExhausted", err)
	}
	if _, err := privateKey.IncrementIdx(c); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("increment past 2^h: got %v, want ErrArgument", err)
	}
}

// TestMinimalTree exercises h=1, the two-leaf tree, at both boundary
// indices.
func TestMinimalTree(t *testing.T) {
	c := testConfig(t, 1)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}

	privateKey := pair.PrivateKey
	for i := 0; i < 2; i++ {
		msg := mustToByte(t, uint64(0xa0+i), 32)
		sig, err := Sign(c, msg, privateKey, nil)
		if err != nil {
			t.Fatal(err)
		}
		ok, err := Verify(c, msg, sig, pair.PublicKey)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("leaf %d signature did not verify", i)
		}
		if privateKey, err = privateKey.IncrementIdx(c); err != nil {
			t.Fatal(err)
		}
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	c := testConfig(t, 2)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}

	msg := mustToByte(t, 42, 32)
	sig, err := Sign(c, msg, pair.PrivateKey, nil)
	if err != nil {
		t.Fatal(err)
	}

	other := append([]byte(nil), msg...)
	other[31] ^= 0x01
	ok, err := Verify(c, other, sig, pair.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("signature verified against a different message")
	}
}

// TestVerifyRejectsTamperedAuthPath XORs byte 7 of the authentication path
// with 0x01 and requires verification to fail.
func TestVerifyRejectsTamperedAuthPath(t *testing.T) {
	c := testConfig(t, 4)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}

	msg := mustToByte(t, 7, 32)
	sig, err := Sign(c, msg, pair.PrivateKey, nil)
	if err != nil {
		t.Fatal(err)
	}

	auth := append([]byte(nil), sig.AuthPath()...)
	auth[7] ^= 0x01
	tampered, err := NewSignature(c, sig.WOTSpIndex(), sig.R(), sig.WOTSpSignature(), auth)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := Verify(c, msg, tampered, pair.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("tampered authentication path verified")
	}
}

// TestVerifyRejectsFlippedSignatureBits flips one bit in each of r, the
// WOTS+ signature and the auth path of the serialized signature and
// requires each mutant to fail verification.
func TestVerifyRejectsFlippedSignatureBits(t *testing.T) {
	c := testConfig(t, 2)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}

	msg := mustToByte(t, 3, 32)
	sig, err := Sign(c, msg, pair.PrivateKey, nil)
	if err != nil {
		t.Fatal(err)
	}
	wire := sig.Serialize()

	n := c.WOTSp().N()
	// One offset inside r, the WOTS+ signature and the auth path.
	for _, off := range []int{4, 4 + n, 4 + n + c.WOTSp().KeyLength()} {
		mutant := append([]byte(nil), wire...)
		mutant[off] ^= 0x80

		parsed, err := DeserializeSignature(c, mutant, 0)
		if err != nil {
			t.Fatal(err)
		}
		ok, err := Verify(c, msg, parsed, pair.PublicKey)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatalf("signature with bit flipped at offset %d verified", off)
		}
	}
}

func TestSignWithTreeMatchesWithout(t *testing.T) {
	c := testConfig(t, 4)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed, WithStoreTree())
	if err != nil {
		t.Fatal(err)
	}
	if pair.Tree == nil {
		t.Fatal("WithStoreTree did not produce a tree cache")
	}

	privateKey := pair.PrivateKey
	for i := 0; i < c.WOTSpCount(); i++ {
		msg := mustToByte(t, uint64(i), 32)

		fromTree, err := Sign(c, msg, privateKey, pair.Tree)
		if err != nil {
			t.Fatal(err)
		}
		recomputed, err := Sign(c, msg, privateKey, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(fromTree.Serialize(), recomputed.Serialize()) {
			t.Fatalf("leaf %d: cached and recomputed signatures differ", i)
		}

		if privateKey, err = privateKey.IncrementIdx(c); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSignRejectsBadInputs(t *testing.T) {
	c := testConfig(t, 2)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Sign(c, make([]byte, 31), pair.PrivateKey, nil); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("short message: got %v, want ErrArgument", err)
	}
	if _, err := Sign(c, make([]byte, 32), nil, nil); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("nil private key: got %v, want ErrArgument", err)
	}
}

func TestVerifyRejectsBadInputs(t *testing.T) {
	c := testConfig(t, 2)
	compact, skPrf, publicSeed := testSeeds(t, c)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}
	msg := mustToByte(t, 1, 32)
	sig, err := Sign(c, msg, pair.PrivateKey, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Verify(c, msg[:31], sig, pair.PublicKey); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("short message: got %v, want ErrArgument", err)
	}
	if _, err := Verify(c, msg, nil, pair.PublicKey); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("nil signature: got %v, want ErrArgument", err)
	}

	// An index beyond the leaf range is a precondition failure, not a
	// plain false.
	big := testConfig(t, 6)
	sigBig, err := NewSignature(big, uint32(c.WOTSpCount()+1), sig.R(), sig.WOTSpSignature(), bytes.Repeat(sig.AuthPath(), 3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(c, msg, sigBig, pair.PublicKey); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("out-of-range index: got %v, want ErrArgument", err)
	}
}

func TestGenerateKeyPairRejectsBadSeeds(t *testing.T) {
	c := testConfig(t, 2)
	compact, skPrf, publicSeed := testSeeds(t, c)

	if _, err := GenerateKeyPair(c, compact[:10], skPrf, publicSeed); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("short compact seeds: got %v, want ErrArgument", err)
	}
	if _, err := GenerateKeyPair(c, compact, skPrf[:10], publicSeed); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("short SK_PRF: got %v, want ErrArgument", err)
	}
	if _, err := GenerateKeyPair(c, compact, skPrf, publicSeed[:10]); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("short public seed: got %v, want ErrArgument", err)
	}
}

// TestSeedsAreNotMutated runs the full lifecycle and requires every
// caller-supplied seed buffer to come out byte-identical.
func TestSeedsAreNotMutated(t *testing.T) {
	c := testConfig(t, 2)
	compact, skPrf, publicSeed := testSeeds(t, c)
	compactCopy := append([]byte(nil), compact...)
	skPrfCopy := append([]byte(nil), skPrf...)
	publicSeedCopy := append([]byte(nil), publicSeed...)

	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed, WithStoreTree())
	if err != nil {
		t.Fatal(err)
	}
	msg := mustToByte(t, 9, 32)
	sig, err := Sign(c, msg, pair.PrivateKey, pair.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(c, msg, sig, pair.PublicKey); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(compact, compactCopy) {
		t.Fatal("compact seeds were mutated")
	}
	if !bytes.Equal(skPrf, skPrfCopy) {
		t.Fatal("SK_PRF was mutated")
	}
	if !bytes.Equal(publicSeed, publicSeedCopy) {
		t.Fatal("public seed was mutated")
	}
}
