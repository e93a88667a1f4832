// Package address encodes and decodes ledger entity addresses.
//
// An address is 30 bytes: one entity-type byte followed by a 29-byte node id.
// Its text form is bech32m with an HRP made of an entity prefix ("account_",
// "component_") and the network suffix, e.g. "account_rdx1...".
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"

	"xdao.co/radup/network"
)

// Length is the byte length of an address.
const Length = 30

// NodeIDLength is the byte length of the node id following the entity byte.
const NodeIDLength = Length - 1

// EntityType is the leading byte of an address.
type EntityType byte

const (
	EntityGlobalGenericComponent      EntityType = 0xc0
	EntityGlobalAccount               EntityType = 0xc1
	EntityGlobalPreallocatedSecp256k1 EntityType = 0xd1
	EntityGlobalPreallocatedEd25519   EntityType = 0x51
)

var (
	ErrInvalid      = errors.New("address: invalid address")
	ErrWrongNetwork = errors.New("address: address belongs to a different network")
	ErrEntityType   = errors.New("address: unexpected entity type")
)

// Prefix returns the HRP entity prefix for t, or "" if t is unknown.
func (t EntityType) Prefix() string {
	switch t {
	case EntityGlobalAccount, EntityGlobalPreallocatedSecp256k1, EntityGlobalPreallocatedEd25519:
		return "account_"
	case EntityGlobalGenericComponent:
		return "component_"
	default:
		return ""
	}
}

// IsAccount reports whether t is one of the account entity types.
func (t EntityType) IsAccount() bool { return t.Prefix() == "account_" }

// Address is a decoded entity address bound to a network.
type Address struct {
	raw [Length]byte
	net network.Network
}

// New builds an address from an entity type and node id.
func New(t EntityType, nodeID []byte, net network.Network) (Address, error) {
	if t.Prefix() == "" {
		return Address{}, fmt.Errorf("%w: 0x%02x", ErrEntityType, byte(t))
	}
	if len(nodeID) != NodeIDLength {
		return Address{}, fmt.Errorf("%w: node id must be %d bytes, got %d", ErrInvalid, NodeIDLength, len(nodeID))
	}
	var a Address
	a.raw[0] = byte(t)
	copy(a.raw[1:], nodeID)
	a.net = net
	return a, nil
}

// Parse decodes a bech32m address and checks that it belongs to net.
func Parse(text string, net network.Network) (Address, error) {
	hrp, raw, err := decode(text)
	if err != nil {
		return Address{}, err
	}
	if len(raw) != Length {
		return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalid, Length, len(raw))
	}
	t := EntityType(raw[0])
	prefix := t.Prefix()
	if prefix == "" {
		return Address{}, fmt.Errorf("%w: 0x%02x", ErrEntityType, raw[0])
	}
	if !strings.HasPrefix(hrp, prefix) {
		return Address{}, fmt.Errorf("%w: hrp %q does not match entity type 0x%02x", ErrInvalid, hrp, raw[0])
	}
	if hrp != net.HRP(prefix) {
		return Address{}, fmt.Errorf("%w: hrp %q, want %q", ErrWrongNetwork, hrp, net.HRP(prefix))
	}
	return New(t, raw[1:], net)
}

// ParseComponent is Parse restricted to component addresses.
func ParseComponent(text string, net network.Network) (Address, error) {
	a, err := Parse(text, net)
	if err != nil {
		return Address{}, err
	}
	if a.EntityType() != EntityGlobalGenericComponent {
		return Address{}, fmt.Errorf("%w: %s is not a component", ErrEntityType, text)
	}
	return a, nil
}

// VirtualAccount derives the preallocated account address controlled by a
// public key: the entity byte for the key's curve followed by the last 29
// bytes of blake2b-256(publicKey).
func VirtualAccount(t EntityType, publicKey []byte, net network.Network) (Address, error) {
	if t != EntityGlobalPreallocatedSecp256k1 && t != EntityGlobalPreallocatedEd25519 {
		return Address{}, fmt.Errorf("%w: 0x%02x is not a preallocated account", ErrEntityType, byte(t))
	}
	if len(publicKey) == 0 {
		return Address{}, fmt.Errorf("%w: empty public key", ErrInvalid)
	}
	sum := blake2b.Sum256(publicKey)
	return New(t, sum[len(sum)-NodeIDLength:], net)
}

func (a Address) EntityType() EntityType   { return EntityType(a.raw[0]) }
func (a Address) Network() network.Network { return a.net }
func (a Address) IsZero() bool             { return a.raw == [Length]byte{} }

// Bytes returns a copy of the 30 address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, Length)
	copy(out, a.raw[:])
	return out
}

// String returns the bech32m text form, or "" for the zero address.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	s, err := encode(a.net.HRP(a.EntityType().Prefix()), a.raw[:])
	if err != nil {
		return ""
	}
	return s
}

// EncodeHash renders a 32-byte hash (e.g. a transaction intent hash) as
// bech32m under prefix, e.g. "txid_".
func EncodeHash(prefix string, hash [32]byte, net network.Network) (string, error) {
	return encode(net.HRP(prefix), hash[:])
}

// DecodeHash is the inverse of EncodeHash.
func DecodeHash(prefix, text string, net network.Network) ([32]byte, error) {
	var out [32]byte
	hrp, raw, err := decode(text)
	if err != nil {
		return out, err
	}
	if want := net.HRP(prefix); hrp != want {
		return out, fmt.Errorf("%w: hrp %q, want %q", ErrWrongNetwork, hrp, want)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalid, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func encode(hrp string, raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(hrp, conv)
}

func decode(text string) (string, []byte, error) {
	hrp, data, version, err := bech32.DecodeGeneric(text)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if version != bech32.VersionM {
		return "", nil, fmt.Errorf("%w: not bech32m", ErrInvalid)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return hrp, raw, nil
}
