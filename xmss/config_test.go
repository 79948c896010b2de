package xmss

import (
	"errors"
	"testing"

	"github.com/ortiscore/xmssgo/hash"
	"github.com/ortiscore/xmssgo/sigerr"
	"github.com/ortiscore/xmssgo/wotsp"
)

func TestConfigDerivedLengths(t *testing.T) {
	c := testConfig(t, 10)
	n := c.WOTSp().N()

	if c.WOTSpCount() != 1024 {
		t.Fatalf("WOTSpCount = %d, want 1024", c.WOTSpCount())
	}
	if c.CompactedPrivateKeysLength() != 1024*n {
		t.Fatalf("CompactedPrivateKeysLength = %d, want %d", c.CompactedPrivateKeysLength(), 1024*n)
	}
	if c.AuthLength() != 10*n {
		t.Fatalf("AuthLength = %d, want %d", c.AuthLength(), 10*n)
	}
	if want := 4 + n + c.WOTSp().KeyLength() + 10*n; c.SignatureLength() != want {
		t.Fatalf("SignatureLength = %d, want %d", c.SignatureLength(), want)
	}
	if c.TreeNodeCount() != 2047 {
		t.Fatalf("TreeNodeCount = %d, want 2047", c.TreeNodeCount())
	}
}

func TestConfigRejectsBadHeight(t *testing.T) {
	wc, err := wotsp.NewConfig(16, hash.NewSHA256())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfig(0, wc, 0); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("h=0: got %v, want ErrArgument", err)
	}
	if _, err := NewConfig(0, wc, -3); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("h=-3: got %v, want ErrArgument", err)
	}
	if _, err := NewConfig(0, nil, 4); !errors.Is(err, sigerr.ErrArgument) {
		t.Fatalf("nil WOTS+ config: got %v, want ErrArgument", err)
	}
}

func TestOIDRegistry(t *testing.T) {
	for _, tc := range []struct {
		h    int
		want uint32
	}{
		{10, 1}, {16, 2}, {20, 3},
	} {
		oid, ok := OIDSHA256(tc.h)
		if !ok || oid != tc.want {
			t.Fatalf("OIDSHA256(%d) = (%d, %v), want (%d, true)", tc.h, oid, ok, tc.want)
		}
	}
	for _, tc := range []struct {
		h    int
		want uint32
	}{
		{10, 4}, {16, 5}, {20, 6},
	} {
		oid, ok := OIDSHA512(tc.h)
		if !ok || oid != tc.want {
			t.Fatalf("OIDSHA512(%d) = (%d, %v), want (%d, true)", tc.h, oid, ok, tc.want)
		}
	}

	if oid, ok := OIDSHA256(12); ok || oid != 0 {
		t.Fatalf("OIDSHA256(12) = (%d, %v), want (0, false)", oid, ok)
	}
	if oid, ok := OIDSHA512(8); ok || oid != 0 {
		t.Fatalf("OIDSHA512(8) = (%d, %v), want (0, false)", oid, ok)
	}
}

func TestPublicKeyCarriesConfiguredOID(t *testing.T) {
	wc, err := wotsp.NewConfig(16, hash.NewSHA256())
	if err != nil {
		t.Fatal(err)
	}
	oid, ok := OIDSHA256(10)
	if !ok {
		t.Fatal("missing registered OID for h=10")
	}
	c, err := NewConfig(oid, wc, 2)
	if err != nil {
		t.Fatal(err)
	}

	compact := make([]byte, c.CompactedPrivateKeysLength())
	skPrf := make([]byte, wc.N())
	publicSeed := make([]byte, wc.N())
	pair, err := GenerateKeyPair(c, compact, skPrf, publicSeed)
	if err != nil {
		t.Fatal(err)
	}
	if pair.PublicKey.OID() != oid {
		t.Fatalf("public key OID = %d, want %d", pair.PublicKey.OID(), oid)
	}
}
