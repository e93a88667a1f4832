package txn

import (
	"fmt"

	"xdao.co/radup/keys"
	"xdao.co/radup/manifest"
)

// Manifest parses the intent's manifest text with its attached blobs.
func (n *NotarizedTransaction) Manifest() (*manifest.Manifest, error) {
	m, err := manifest.Parse(n.SignedIntent.Intent.Manifest, n.SignedIntent.Intent.Blobs)
	if err != nil {
		return nil, newError(KindManifest, "parse manifest", err)
	}
	return m, nil
}

// Verify checks a decompiled transaction the way a receiving node would:
// the header is consistent, the manifest parses and validates against the
// header's network (including blob hashes), every intent signature is valid
// and the notary signature matches the header's notary key.
func (n *NotarizedTransaction) Verify() error {
	h := n.SignedIntent.Intent.Header
	if err := h.Validate(); err != nil {
		return err
	}
	net, _ := h.Network()
	m, err := n.Manifest()
	if err != nil {
		return err
	}
	if err := manifest.StaticValidate(m, net); err != nil {
		return newError(KindManifest, "manifest failed validation", err)
	}

	intentHash, err := n.SignedIntent.Intent.Hash()
	if err != nil {
		return err
	}
	for i, s := range n.SignedIntent.IntentSignatures {
		if !keys.Verify(s.PublicKey, intentHash, s.Signature) {
			return newError(KindVerification, fmt.Sprintf("intent signature %d is invalid", i), nil)
		}
	}
	if !h.NotaryIsSignatory && len(n.SignedIntent.IntentSignatures) == 0 {
		return newError(KindVerification, "transaction has no signatories", nil)
	}

	signedHash, err := n.SignedIntent.Hash()
	if err != nil {
		return err
	}
	if !keys.Verify(h.NotaryPublicKey, signedHash, n.NotarySignature) {
		return newError(KindVerification, "notary signature is invalid", nil)
	}
	return nil
}
