package keys

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cloudflare/circl/sign/ed25519"
)

// RecoverableSignatureSize is the secp256k1 signature length:
// recovery id || r || s.
const RecoverableSignatureSize = 65

// compactHeader is the btcec compact-signature header offset for
// compressed public keys (27 + 4).
const compactHeader = 31

// Signature is a curve-tagged signature.
type Signature struct {
	Curve Curve  `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

func (s Signature) Hex() string { return hex.EncodeToString(s.Bytes) }

// Sign signs a 32-byte hash with the account's private key. Secp256k1
// signatures are recoverable (65 bytes), Ed25519 signatures are 64 bytes.
func (a *Account) Sign(hash [32]byte) (Signature, error) {
	switch a.Curve {
	case Secp256k1:
		if a.secp == nil {
			return Signature{}, keyError("missing secp256k1 private key")
		}
		compact := ecdsa.SignCompact(a.secp, hash[:], true)
		if len(compact) != RecoverableSignatureSize {
			return Signature{}, fmt.Errorf("unexpected compact signature size %d", len(compact))
		}
		out := make([]byte, RecoverableSignatureSize)
		out[0] = compact[0] - compactHeader
		copy(out[1:], compact[1:])
		return Signature{Curve: Secp256k1, Bytes: out}, nil
	case Ed25519:
		if a.ed == nil {
			return Signature{}, keyError("missing ed25519 private key")
		}
		return Signature{Curve: Ed25519, Bytes: ed25519.Sign(a.ed, hash[:])}, nil
	default:
		return Signature{}, keyError(fmt.Sprintf("unsupported curve %q", a.Curve))
	}
}

// Verify reports whether sig is a valid signature of hash by pub.
func Verify(pub PublicKey, hash [32]byte, sig Signature) bool {
	if pub.Curve != sig.Curve {
		return false
	}
	switch pub.Curve {
	case Secp256k1:
		if len(sig.Bytes) != RecoverableSignatureSize || sig.Bytes[0] > 3 {
			return false
		}
		compact := make([]byte, RecoverableSignatureSize)
		compact[0] = sig.Bytes[0] + compactHeader
		copy(compact[1:], sig.Bytes[1:])
		recovered, _, err := ecdsa.RecoverCompact(compact, hash[:])
		if err != nil {
			return false
		}
		return bytes.Equal(recovered.SerializeCompressed(), pub.Bytes)
	case Ed25519:
		if len(pub.Bytes) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub.Bytes), hash[:], sig.Bytes)
	default:
		return false
	}
}
