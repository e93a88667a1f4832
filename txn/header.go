package txn

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"xdao.co/radup/keys"
	"xdao.co/radup/network"
)

// MaxEpochWindow is the largest end-start span the ledger accepts.
const MaxEpochWindow = 100

// Header carries the validity window and notary of a transaction.
type Header struct {
	NetworkID         uint8          `cbor:"1,keyasint"`
	StartEpoch        uint64         `cbor:"2,keyasint"`
	EndEpoch          uint64         `cbor:"3,keyasint"`
	Nonce             uint32         `cbor:"4,keyasint"`
	NotaryPublicKey   keys.PublicKey `cbor:"5,keyasint"`
	NotaryIsSignatory bool           `cbor:"6,keyasint"`
	TipPercentage     uint16         `cbor:"7,keyasint"`
}

// NewHeader returns a header valid from epoch for window epochs, notarized
// by notary acting as the sole signatory, with a fresh random nonce.
func NewHeader(net network.Network, epoch, window uint64, notary keys.PublicKey, tip uint16) (Header, error) {
	if window > math.MaxUint64-epoch {
		return Header{}, newError(KindHeader, fmt.Sprintf("epoch %d plus window %d overflows", epoch, window), nil)
	}
	nonce, err := RandomNonce()
	if err != nil {
		return Header{}, err
	}
	h := Header{
		NetworkID:         net.ID,
		StartEpoch:        epoch,
		EndEpoch:          epoch + window,
		Nonce:             nonce,
		NotaryPublicKey:   notary,
		NotaryIsSignatory: true,
		TipPercentage:     tip,
	}
	return h, h.Validate()
}

// RandomNonce draws a uniform nonce over the full uint32 range.
func RandomNonce() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, newError(KindHeader, "read random nonce", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// Network returns the network named by the header's id.
func (h Header) Network() (network.Network, error) {
	return network.Lookup(h.NetworkID)
}

// Validate checks the header is internally consistent.
func (h Header) Validate() error {
	if _, err := h.Network(); err != nil {
		return newError(KindHeader, "unknown network", err)
	}
	if h.EndEpoch <= h.StartEpoch {
		return newError(KindHeader, fmt.Sprintf("end epoch %d must exceed start epoch %d", h.EndEpoch, h.StartEpoch), nil)
	}
	if h.EndEpoch-h.StartEpoch > MaxEpochWindow {
		return newError(KindHeader, fmt.Sprintf("epoch window %d exceeds %d", h.EndEpoch-h.StartEpoch, MaxEpochWindow), nil)
	}
	switch h.NotaryPublicKey.Curve {
	case keys.Secp256k1, keys.Ed25519:
	default:
		return newError(KindHeader, fmt.Sprintf("unsupported notary curve %q", h.NotaryPublicKey.Curve), nil)
	}
	if len(h.NotaryPublicKey.Bytes) == 0 {
		return newError(KindHeader, "missing notary public key", nil)
	}
	return nil
}
