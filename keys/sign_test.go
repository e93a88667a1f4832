package keys

import (
	"testing"

	"golang.org/x/crypto/blake2b"

	"xdao.co/radup/network"
)

func TestSign_Verifies(t *testing.T) {
	hash := blake2b.Sum256([]byte("hello"))
	for _, curve := range []Curve{Secp256k1, Ed25519} {
		acct, err := ResolveAccount(scalarOne(), curve, network.Mainnet)
		if err != nil {
			t.Fatalf("ResolveAccount(%s): %v", curve, err)
		}
		sig, err := acct.Sign(hash)
		if err != nil {
			t.Fatalf("Sign(%s): %v", curve, err)
		}
		if curve == Secp256k1 && len(sig.Bytes) != RecoverableSignatureSize {
			t.Fatalf("secp256k1 signature size: got %d", len(sig.Bytes))
		}
		if curve == Ed25519 && len(sig.Bytes) != 64 {
			t.Fatalf("ed25519 signature size: got %d", len(sig.Bytes))
		}
		if !Verify(acct.Public, hash, sig) {
			t.Fatalf("%s: signature did not verify", curve)
		}

		other := blake2b.Sum256([]byte("hellp"))
		if Verify(acct.Public, other, sig) {
			t.Fatalf("%s: signature verified over a different hash", curve)
		}
		tampered := Signature{Curve: sig.Curve, Bytes: append([]byte(nil), sig.Bytes...)}
		tampered.Bytes[len(tampered.Bytes)-1] ^= 0x01
		if Verify(acct.Public, hash, tampered) {
			t.Fatalf("%s: tampered signature verified", curve)
		}
	}
}

func TestVerify_CurveMismatch(t *testing.T) {
	hash := blake2b.Sum256([]byte("x"))
	acct, err := ResolveAccount(scalarOne(), Secp256k1, network.Mainnet)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	sig, err := acct.Sign(hash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig.Curve = Ed25519
	if Verify(acct.Public, hash, sig) {
		t.Fatalf("expected curve mismatch to fail")
	}
}
