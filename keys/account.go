package keys

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/radup/address"
	"xdao.co/radup/network"
)

// Curve names a signature scheme.
type Curve string

const (
	Secp256k1 Curve = "secp256k1"
	Ed25519   Curve = "ed25519"
)

// SecretSize is the private key length for both curves.
const SecretSize = 32

// ParseCurve accepts "secp256k1" and "ed25519"; "" selects secp256k1.
func ParseCurve(s string) (Curve, error) {
	switch Curve(strings.ToLower(strings.TrimSpace(s))) {
	case "", Secp256k1:
		return Secp256k1, nil
	case Ed25519:
		return Ed25519, nil
	default:
		return "", keyError(fmt.Sprintf("unsupported curve %q", s))
	}
}

// AccountEntity returns the preallocated account entity type for c.
func (c Curve) AccountEntity() address.EntityType {
	if c == Ed25519 {
		return address.EntityGlobalPreallocatedEd25519
	}
	return address.EntityGlobalPreallocatedSecp256k1
}

// PublicKey is a curve-tagged public key. Secp256k1 keys are 33-byte
// compressed points; Ed25519 keys are 32 bytes.
type PublicKey struct {
	Curve Curve  `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

// Hex returns the hex encoding of the key bytes.
func (p PublicKey) Hex() string { return hex.EncodeToString(p.Bytes) }

func (p PublicKey) String() string { return string(p.Curve) + ":" + p.Hex() }

// Account is a resolved signing identity: a private key, its public key and
// the virtual account address the public key controls on a network.
type Account struct {
	Curve   Curve
	Public  PublicKey
	Address address.Address

	secp *btcec.PrivateKey
	ed   ed25519.PrivateKey
}

// ResolveAccount derives the key pair and account address for secret on net.
// It is deterministic and has no side effects.
func ResolveAccount(secret []byte, curve Curve, net network.Network) (*Account, error) {
	if len(secret) != SecretSize {
		return nil, keyError(fmt.Sprintf("%s private key must be %d bytes, got %d", curve, SecretSize, len(secret)))
	}

	acct := &Account{Curve: curve}
	switch curve {
	case Secp256k1:
		var scalar btcec.ModNScalar
		if overflow := scalar.SetByteSlice(secret); overflow {
			return nil, keyError("secp256k1 private key is not below the curve order")
		}
		if scalar.IsZero() {
			return nil, keyError("secp256k1 private key is zero")
		}
		priv, pub := btcec.PrivKeyFromBytes(secret)
		acct.secp = priv
		acct.Public = PublicKey{Curve: Secp256k1, Bytes: pub.SerializeCompressed()}
	case Ed25519:
		priv := ed25519.NewKeyFromSeed(secret)
		pub, ok := priv.Public().(ed25519.PublicKey)
		if !ok {
			return nil, keyError("ed25519 public key derivation failed")
		}
		acct.ed = priv
		acct.Public = PublicKey{Curve: Ed25519, Bytes: append([]byte(nil), pub...)}
	default:
		return nil, keyError(fmt.Sprintf("unsupported curve %q", curve))
	}

	addr, err := address.VirtualAccount(curve.AccountEntity(), acct.Public.Bytes, net)
	if err != nil {
		return nil, &Error{Kind: KindKey, Message: "derive account address: " + err.Error(), Cause: err}
	}
	acct.Address = addr
	return acct, nil
}

// PublicKey returns the account's public key.
func (a *Account) PublicKey() PublicKey { return a.Public }

// GenerateSecret returns fresh private key bytes for curve read from r
// (crypto/rand when r is nil).
func GenerateSecret(curve Curve, r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	switch curve {
	case Secp256k1:
		// Rejection-sample until the bytes are a valid scalar.
		for i := 0; i < 64; i++ {
			b := make([]byte, SecretSize)
			if _, err := io.ReadFull(r, b); err != nil {
				return nil, err
			}
			var scalar btcec.ModNScalar
			if !scalar.SetByteSlice(b) && !scalar.IsZero() {
				return b, nil
			}
		}
		return nil, keyError("could not sample a valid secp256k1 scalar")
	case Ed25519:
		b := make([]byte, SecretSize)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, keyError(fmt.Sprintf("unsupported curve %q", curve))
	}
}
