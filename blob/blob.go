// Package blob prepares file content for upload: it reads the bytes and
// computes the ledger's canonical content hash, blake2b-256 with a 32-byte
// digest. Any other digest produces transactions that are well formed but
// rejected when the storage component executes them.
package blob

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/ipfs/go-cid"
	"golang.org/x/crypto/blake2b"

	"xdao.co/radup/cidutil"
)

// HashSize is the digest length in bytes.
const HashSize = blake2b.Size256

// DefaultMaxSize mirrors the storage component's on-ledger file size limit.
const DefaultMaxSize = 500000

// ErrTooLarge is returned when a file exceeds the configured size limit.
var ErrTooLarge = errors.New("blob: file larger than size limit")

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindFileIO Kind = "FileIO"
)

// Error is the package's structured error type.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Hash is a blake2b-256 content digest.
type Hash [HashSize]byte

// Sum hashes b with blake2b-256.
func Sum(b []byte) Hash { return Hash(blake2b.Sum256(b)) }

// ParseHash decodes a lowercase or uppercase hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("blob: hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Hex returns the lowercase hex encoding used in manifests.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// CID returns the raw CIDv1 carrying h as a blake2b-256 multihash.
func (h Hash) CID() cid.Cid {
	id, err := cidutil.FromDigest(h)
	if err != nil {
		return cid.Undef
	}
	return id
}

// Blob is file content together with its digest.
type Blob struct {
	Bytes []byte
	Hash  Hash
}

// New hashes b. The returned Blob shares b.
func New(b []byte) *Blob {
	return &Blob{Bytes: b, Hash: Sum(b)}
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int { return len(b.Bytes) }

// Verify recomputes the digest over the payload.
func (b *Blob) Verify() bool { return Sum(b.Bytes) == b.Hash }

// Prepare reads path and hashes its content. maxSize <= 0 disables the
// size check.
func Prepare(path string, maxSize int64) (*Blob, error) {
	if path == "" {
		return nil, &Error{Kind: KindFileIO, Message: "blob: empty file path", Cause: os.ErrInvalid}
	}
	if maxSize > 0 {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, &Error{Kind: KindFileIO, Path: path, Message: fmt.Sprintf("stat %s: %v", path, err), Cause: err}
		}
		if fi.IsDir() {
			return nil, &Error{Kind: KindFileIO, Path: path, Message: fmt.Sprintf("%s is a directory", path), Cause: os.ErrInvalid}
		}
		if fi.Size() > maxSize {
			return nil, &Error{
				Kind:    KindFileIO,
				Path:    path,
				Message: fmt.Sprintf("%s is %d bytes, limit is %d", path, fi.Size(), maxSize),
				Cause:   ErrTooLarge,
			}
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindFileIO, Path: path, Message: fmt.Sprintf("read %s: %v", path, err), Cause: err}
	}
	if maxSize > 0 && int64(len(b)) > maxSize {
		return nil, &Error{
			Kind:    KindFileIO,
			Path:    path,
			Message: fmt.Sprintf("%s is %d bytes, limit is %d", path, len(b), maxSize),
			Cause:   ErrTooLarge,
		}
	}
	return New(b), nil
}
