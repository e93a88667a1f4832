package upload

import (
	"encoding/hex"

	"xdao.co/radup/manifest"
	"xdao.co/radup/txn"
)

// Assembled is a notarized transaction ready for submission.
type Assembled struct {
	Compiled      []byte
	IntentHash    [32]byte
	TransactionID string
}

// IntentHashHex returns the intent hash in hex.
func (a *Assembled) IntentHashHex() string { return hex.EncodeToString(a.IntentHash[:]) }

// Assembler turns a header and validated manifest into a notarized, compiled
// transaction.
type Assembler interface {
	Assemble(h txn.Header, m *manifest.Manifest, message string, notary txn.Signer) (*Assembled, error)
}

// TxnAssembler is the Assembler backed by package txn.
type TxnAssembler struct{}

func (TxnAssembler) Assemble(h txn.Header, m *manifest.Manifest, message string, notary txn.Signer) (*Assembled, error) {
	tx, err := txn.NewBuilder().Header(h).Manifest(m).Message(message).Notarize(notary)
	if err != nil {
		return nil, err
	}
	compiled, err := tx.Compile()
	if err != nil {
		return nil, err
	}
	hash, err := tx.IntentHash()
	if err != nil {
		return nil, err
	}
	id, err := tx.ID()
	if err != nil {
		return nil, err
	}
	return &Assembled{Compiled: compiled, IntentHash: hash, TransactionID: id}, nil
}
