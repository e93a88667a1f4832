// Package storage defines the upload journal: a content-addressable store of
// uploaded blobs keyed by CIDv1 (raw codec, blake2b-256 multihash).
//
// The CID's multihash digest is the same blake2b-256 hash the ledger uses as
// the blob reference, so a journal lookup answers "has this exact file been
// stored before?" without a ledger query.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"

	"xdao.co/radup/cidutil"
)

// CAS is a minimal content-addressable storage interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written.
// - Get MUST return ErrNotFound when the CID is absent.
// - Has MUST return (false, nil) when the CID is absent; errors are reserved
//   for backend failures.
type CAS interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}

// CheckCID returns ErrInvalidCID for an undefined id and ErrCIDMismatch when
// data does not hash to id.
func CheckCID(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	got, err := cidutil.CIDv1RawBlake2b256CID(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrCIDMismatch
	}
	return nil
}
