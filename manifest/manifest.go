package manifest

import (
	"fmt"
	"strings"

	"xdao.co/radup/address"
	"xdao.co/radup/blob"
)

// OpCallMethod is the only instruction this package emits and parses.
const OpCallMethod = "CALL_METHOD"

// ValueType tags a manifest literal.
type ValueType int

const (
	TypeString ValueType = iota
	TypeDecimal
	TypeAddress
	TypeBlob
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeDecimal:
		return "Decimal"
	case TypeAddress:
		return "Address"
	case TypeBlob:
		return "Blob"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Value is a typed literal. Text holds the string, decimal or address text;
// Hash holds the blob reference.
type Value struct {
	Type ValueType
	Text string
	Hash blob.Hash
}

func String(s string) Value           { return Value{Type: TypeString, Text: s} }
func Decimal(s string) Value          { return Value{Type: TypeDecimal, Text: s} }
func Address(a address.Address) Value { return Value{Type: TypeAddress, Text: a.String()} }
func AddressText(s string) Value      { return Value{Type: TypeAddress, Text: s} }
func BlobRef(h blob.Hash) Value       { return Value{Type: TypeBlob, Hash: h} }

// Instruction is a CALL_METHOD on Receiver (address text).
type Instruction struct {
	Op       string
	Receiver string
	Method   string
	Args     []Value
}

// CallMethod builds a CALL_METHOD instruction.
func CallMethod(receiver address.Address, method string, args ...Value) Instruction {
	return Instruction{Op: OpCallMethod, Receiver: receiver.String(), Method: method, Args: args}
}

// Manifest is an instruction list with its attached blob payloads.
type Manifest struct {
	Instructions []Instruction
	Blobs        [][]byte
}

// BlobRefs returns every blob hash referenced by an instruction argument, in
// order of appearance.
func (m *Manifest) BlobRefs() []blob.Hash {
	var out []blob.Hash
	for _, in := range m.Instructions {
		for _, v := range in.Args {
			if v.Type == TypeBlob {
				out = append(out, v.Hash)
			}
		}
	}
	return out
}

// DefaultLockFee is the fee, in XRD, locked for a store_file call.
const DefaultLockFee = "150"

// StoreFile builds the upload manifest: lock a fee against account, then call
// store_file on component with the blob reference and file name, attaching
// the file bytes.
func StoreFile(account, component address.Address, fileName string, b *blob.Blob, lockFee string) (*Manifest, error) {
	if b == nil {
		return nil, newError(KindValidation, "MAN-BLOB-000", "missing blob")
	}
	if err := CheckFileName(fileName); err != nil {
		return nil, err
	}
	if lockFee == "" {
		lockFee = DefaultLockFee
	}
	if !account.EntityType().IsAccount() {
		return nil, newError(KindValidation, "MAN-VAL-012", "fee payer is not an account address")
	}
	if component.EntityType() != address.EntityGlobalGenericComponent {
		return nil, newError(KindValidation, "MAN-VAL-013", "storage target is not a component address")
	}
	return &Manifest{
		Instructions: []Instruction{
			CallMethod(account, "lock_fee", Decimal(lockFee)),
			CallMethod(component, "store_file", BlobRef(b.Hash), String(fileName)),
		},
		Blobs: [][]byte{b.Bytes},
	}, nil
}

// CheckFileName rejects names the storage component should not receive:
// empty, path separators, or anything a string literal cannot render. Unlike
// other strings, a name may not hold '\n', '\r' or '\t' either.
func CheckFileName(name string) error {
	why := unrenderable(name)
	switch {
	case name == "":
		why = "cannot be empty"
	case why != "":
		why = "contains " + why
	case strings.ContainsAny(name, `/\`):
		why = "must not contain path separators"
	case strings.ContainsAny(name, "\n\r\t"):
		why = "must not contain line breaks or tabs"
	}
	if why != "" {
		return newError(KindValidation, "MAN-VAL-041", fmt.Sprintf("file name %q %s", name, why))
	}
	return nil
}
