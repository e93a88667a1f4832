package txn

import (
	"bytes"
	"fmt"

	"xdao.co/radup/keys"
	"xdao.co/radup/manifest"
)

// Signer produces signatures over 32-byte hashes. *keys.Account implements
// it.
type Signer interface {
	PublicKey() keys.PublicKey
	Sign(hash [32]byte) (keys.Signature, error)
}

// Builder assembles a notarized transaction step by step.
//
//	tx, err := txn.NewBuilder().
//		Header(h).
//		Manifest(m).
//		Notarize(account)
type Builder struct {
	header    Header
	hasHeader bool
	manifest  *manifest.Manifest
	message   string
	signers   []Signer
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Header sets the transaction header.
func (b *Builder) Header(h Header) *Builder {
	b.header = h
	b.hasHeader = true
	return b
}

// Manifest sets the manifest and its attached blobs.
func (b *Builder) Manifest(m *manifest.Manifest) *Builder {
	b.manifest = m
	return b
}

// Message attaches a plaintext message to the intent.
func (b *Builder) Message(msg string) *Builder {
	b.message = msg
	return b
}

// Sign adds an intent signatory in addition to the notary.
func (b *Builder) Sign(s Signer) *Builder {
	b.signers = append(b.signers, s)
	return b
}

// Intent renders the manifest and returns the unsigned intent.
func (b *Builder) Intent() (*Intent, error) {
	if !b.hasHeader {
		return nil, newError(KindHeader, "missing header", nil)
	}
	if err := b.header.Validate(); err != nil {
		return nil, err
	}
	if b.manifest == nil {
		return nil, newError(KindManifest, "missing manifest", nil)
	}
	net, _ := b.header.Network()
	if err := manifest.StaticValidate(b.manifest, net); err != nil {
		return nil, newError(KindManifest, "manifest failed validation", err)
	}
	text, err := manifest.Render(b.manifest)
	if err != nil {
		return nil, newError(KindManifest, "render manifest", err)
	}
	return &Intent{
		Header:   b.header,
		Manifest: text,
		Blobs:    b.manifest.Blobs,
		Message:  b.message,
	}, nil
}

// Notarize signs the intent with every added signatory, then seals the
// signed intent with notary. The notary's public key must match the header.
func (b *Builder) Notarize(notary Signer) (*NotarizedTransaction, error) {
	if notary == nil {
		return nil, newError(KindSigning, "missing notary", nil)
	}
	intent, err := b.Intent()
	if err != nil {
		return nil, WrapHeader(err)
	}
	if !samePublicKey(notary.PublicKey(), b.header.NotaryPublicKey) {
		return nil, newError(KindSigning, "notary key does not match header", nil)
	}

	intentHash, err := intent.Hash()
	if err != nil {
		return nil, err
	}
	signed := SignedIntent{Intent: *intent, IntentSignatures: []IntentSignature{}}
	for i, s := range b.signers {
		sig, err := s.Sign(intentHash)
		if err != nil {
			return nil, newError(KindSigning, fmt.Sprintf("intent signature %d", i), err)
		}
		signed.IntentSignatures = append(signed.IntentSignatures, IntentSignature{PublicKey: s.PublicKey(), Signature: sig})
	}

	signedHash, err := signed.Hash()
	if err != nil {
		return nil, err
	}
	notarySig, err := notary.Sign(signedHash)
	if err != nil {
		return nil, newError(KindSigning, "notary signature", err)
	}
	return &NotarizedTransaction{SignedIntent: signed, NotarySignature: notarySig}, nil
}

func samePublicKey(a, b keys.PublicKey) bool {
	return a.Curve == b.Curve && bytes.Equal(a.Bytes, b.Bytes)
}
