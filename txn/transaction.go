package txn

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"xdao.co/radup/address"
	"xdao.co/radup/keys"
)

// TxIDPrefix is the bech32m entity prefix for transaction ids.
const TxIDPrefix = "txid_"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("txn: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("txn: CBOR decoder initialization failed: " + err.Error())
	}
}

// Intent is what the transaction asks the ledger to do.
type Intent struct {
	Header   Header   `cbor:"1,keyasint"`
	Manifest string   `cbor:"2,keyasint"`
	Blobs    [][]byte `cbor:"3,keyasint"`
	Message  string   `cbor:"4,keyasint,omitempty"`
}

// IntentSignature is a signatory's signature over the intent hash, tagged
// with the signatory's public key.
type IntentSignature struct {
	PublicKey keys.PublicKey `cbor:"1,keyasint"`
	Signature keys.Signature `cbor:"2,keyasint"`
}

// SignedIntent is an intent plus the signatures of its signatories.
type SignedIntent struct {
	Intent           Intent            `cbor:"1,keyasint"`
	IntentSignatures []IntentSignature `cbor:"2,keyasint"`
}

// NotarizedTransaction is the submittable form: a signed intent sealed by
// the notary.
type NotarizedTransaction struct {
	SignedIntent    SignedIntent   `cbor:"1,keyasint"`
	NotarySignature keys.Signature `cbor:"2,keyasint"`
}

func hashOf(v any) ([32]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return [32]byte{}, newError(KindEncoding, "encode", err)
	}
	return blake2b.Sum256(b), nil
}

// Hash returns the intent hash.
func (i *Intent) Hash() ([32]byte, error) { return hashOf(i) }

// Hash returns the signed-intent hash, which the notary signs.
func (s *SignedIntent) Hash() ([32]byte, error) { return hashOf(s) }

// IntentHash returns the hash of the transaction's intent.
func (n *NotarizedTransaction) IntentHash() ([32]byte, error) {
	return n.SignedIntent.Intent.Hash()
}

// ID returns the bech32m transaction id ("txid_...") of the intent.
func (n *NotarizedTransaction) ID() (string, error) {
	h, err := n.IntentHash()
	if err != nil {
		return "", err
	}
	net, err := n.SignedIntent.Intent.Header.Network()
	if err != nil {
		return "", newError(KindHeader, "unknown network", err)
	}
	id, err := address.EncodeHash(TxIDPrefix, h, net)
	if err != nil {
		return "", newError(KindEncoding, "encode transaction id", err)
	}
	return id, nil
}

// Compile returns the canonical bytes submitted to the gateway.
func (n *NotarizedTransaction) Compile() ([]byte, error) {
	b, err := encMode.Marshal(n)
	if err != nil {
		return nil, newError(KindEncoding, "encode notarized transaction", err)
	}
	return b, nil
}

// Decompile parses compiled bytes. Input that is not in canonical form is
// rejected, so Compile(Decompile(b)) == b for every accepted b.
func Decompile(b []byte) (*NotarizedTransaction, error) {
	var n NotarizedTransaction
	if err := decMode.Unmarshal(b, &n); err != nil {
		return nil, newError(KindEncoding, "decode notarized transaction", err)
	}
	again, err := n.Compile()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(again, b) {
		return nil, newError(KindEncoding, "transaction is not canonically encoded", nil)
	}
	return &n, nil
}
