package cidutil

import (
	"encoding/hex"
	"testing"

	"github.com/ipfs/go-cid"
)

func TestCIDv1RawBlake2b256_DigestRoundTrip(t *testing.T) {
	id, err := CIDv1RawBlake2b256CID([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv1RawBlake2b256CID: %v", err)
	}
	if id.Version() != 1 || id.Type() != cid.Raw {
		t.Fatalf("unexpected cid prefix: v%d codec %x", id.Version(), id.Type())
	}
	d, ok := Digest(id)
	if !ok {
		t.Fatalf("Digest: not a blake2b-256 raw cid")
	}
	if got, want := hex.EncodeToString(d[:]), "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf"; got != want {
		t.Fatalf("digest: got %s want %s", got, want)
	}

	parsed, err := cid.Decode(CIDv1RawBlake2b256([]byte("hello")))
	if err != nil {
		t.Fatalf("cid.Decode: %v", err)
	}
	if !parsed.Equals(id) {
		t.Fatalf("string form does not decode to the same cid")
	}
}

func TestDigest_RejectsOtherHashes(t *testing.T) {
	if _, ok := Digest(cid.Undef); ok {
		t.Fatalf("undefined cid accepted")
	}
	other, err := cid.Prefix{Version: 1, Codec: cid.Raw, MhType: 0x12, MhLength: -1}.Sum([]byte("hello"))
	if err != nil {
		t.Fatalf("Prefix.Sum: %v", err)
	}
	if _, ok := Digest(other); ok {
		t.Fatalf("sha2-256 cid accepted as blake2b-256")
	}
}
