package manifest

import (
	"fmt"
	"regexp"

	"xdao.co/radup/address"
	"xdao.co/radup/blob"
	"xdao.co/radup/network"
)

var (
	methodPattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,18})?$`)
)

// StaticValidate checks m without a ledger: every address belongs to net,
// literals are well formed, and blob references and attachments agree in
// both directions.
func StaticValidate(m *Manifest, net network.Network) error {
	if m == nil {
		return newError(KindValidation, "MAN-VAL-001", "manifest is nil")
	}
	return ValidateRules(m, StaticRules(net))
}

// StaticRules returns the rules StaticValidate applies, in evaluation order.
func StaticRules(net network.Network) []Rule {
	return []Rule{
		{ID: "MAN-VAL-001", Apply: ruleNonEmpty},
		{ID: "MAN-VAL-010", Apply: func(m *Manifest) error { return ruleReceivers(m, net) }},
		{ID: "MAN-VAL-011", Apply: func(m *Manifest) error { return ruleAddressArgs(m, net) }},
		{ID: "MAN-VAL-020", Apply: ruleMethodNames},
		{ID: "MAN-VAL-030", Apply: ruleDecimals},
		{ID: "MAN-VAL-040", Apply: ruleStrings},
		{ID: "MAN-BLOB-001", Apply: ruleBlobRefsAttached},
		{ID: "MAN-BLOB-002", Apply: ruleBlobsReferenced},
	}
}

func ruleNonEmpty(m *Manifest) error {
	if len(m.Instructions) == 0 {
		return newError(KindValidation, "MAN-VAL-001", "manifest has no instructions")
	}
	return nil
}

func ruleReceivers(m *Manifest, net network.Network) error {
	for i, in := range m.Instructions {
		if in.Op != OpCallMethod {
			return newError(KindValidation, "MAN-VAL-010", fmt.Sprintf("instruction %d: unsupported op %q", i, in.Op))
		}
		if _, err := address.Parse(in.Receiver, net); err != nil {
			return wrapError(KindValidation, "MAN-VAL-010", fmt.Sprintf("instruction %d: invalid receiver %q", i, in.Receiver), err)
		}
	}
	return nil
}

func ruleAddressArgs(m *Manifest, net network.Network) error {
	for i, in := range m.Instructions {
		for j, v := range in.Args {
			if v.Type != TypeAddress {
				continue
			}
			if _, err := address.Parse(v.Text, net); err != nil {
				return wrapError(KindValidation, "MAN-VAL-011", fmt.Sprintf("instruction %d arg %d: invalid address %q", i, j, v.Text), err)
			}
		}
	}
	return nil
}

func ruleMethodNames(m *Manifest) error {
	for i, in := range m.Instructions {
		if !methodPattern.MatchString(in.Method) {
			return newError(KindValidation, "MAN-VAL-020", fmt.Sprintf("instruction %d: invalid method name %q", i, in.Method))
		}
	}
	return nil
}

func ruleDecimals(m *Manifest) error {
	for i, in := range m.Instructions {
		for j, v := range in.Args {
			if v.Type == TypeDecimal && !decimalPattern.MatchString(v.Text) {
				return newError(KindValidation, "MAN-VAL-030", fmt.Sprintf("instruction %d arg %d: invalid decimal %q", i, j, v.Text))
			}
		}
	}
	return nil
}

func ruleStrings(m *Manifest) error {
	for i, in := range m.Instructions {
		for j, v := range in.Args {
			if v.Type != TypeString {
				continue
			}
			if why := unrenderable(v.Text); why != "" {
				return newError(KindValidation, "MAN-VAL-040", fmt.Sprintf("instruction %d arg %d: string contains %s", i, j, why))
			}
		}
	}
	return nil
}

func attachedHashes(m *Manifest) map[blob.Hash]bool {
	out := make(map[blob.Hash]bool, len(m.Blobs))
	for _, b := range m.Blobs {
		out[blob.Sum(b)] = false
	}
	return out
}

func ruleBlobRefsAttached(m *Manifest) error {
	attached := attachedHashes(m)
	for _, h := range m.BlobRefs() {
		if _, ok := attached[h]; !ok {
			return newError(KindValidation, "MAN-BLOB-001", fmt.Sprintf("blob %s is referenced but no attached payload hashes to it", h))
		}
	}
	return nil
}

func ruleBlobsReferenced(m *Manifest) error {
	attached := attachedHashes(m)
	for _, h := range m.BlobRefs() {
		attached[h] = true
	}
	for i, b := range m.Blobs {
		if !attached[blob.Sum(b)] {
			return newError(KindValidation, "MAN-BLOB-002", fmt.Sprintf("attached blob %d is not referenced by any instruction", i))
		}
	}
	return nil
}
