package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 is the multihash code for an unkeyed blake2b with a 32-byte digest.
const Blake2b256 = multihash.BLAKE2B_MIN + 31

// CIDv1RawBlake2b256 returns a CIDv1 string using the "raw" multicodec
// and a blake2b-256 multihash.
func CIDv1RawBlake2b256(data []byte) string {
	id, err := CIDv1RawBlake2b256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawBlake2b256CID returns a CIDv1 (raw + blake2b-256) derived from data.
func CIDv1RawBlake2b256CID(data []byte) (cid.Cid, error) {
	sum := blake2b.Sum256(data)
	return FromDigest(sum)
}

// FromDigest wraps an already computed blake2b-256 digest in a raw CIDv1.
func FromDigest(digest [32]byte) (cid.Cid, error) {
	mh, err := multihash.Encode(digest[:], Blake2b256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// Digest extracts the blake2b-256 digest from a CID built by this package.
func Digest(id cid.Cid) ([32]byte, bool) {
	var out [32]byte
	if !id.Defined() || id.Type() != cid.Raw {
		return out, false
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil || dec.Code != Blake2b256 || len(dec.Digest) != len(out) {
		return out, false
	}
	copy(out[:], dec.Digest)
	return out, true
}
