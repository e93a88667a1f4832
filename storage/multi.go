package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// MultiCAS reads from backends in slice order and writes only to the first.
// A backend answering ErrNotFound is skipped; any other error stops the
// lookup.
type MultiCAS struct {
	Adapters []CAS
}

var _ CAS = MultiCAS{}

func (m MultiCAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, ErrNoBackends
	}
	return m.Adapters[0].Put(ctx, data)
}

func (m MultiCAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	return getInOrder(ctx, id, m.Adapters)
}

func (m MultiCAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	return hasAny(ctx, id, m.Adapters)
}

func getInOrder(ctx context.Context, id cid.Cid, backends []CAS) ([]byte, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	for _, b := range backends {
		out, err := b.Get(ctx, id)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// hasAny reports true as soon as one backend holds id. Backend errors are
// returned only when no backend answered true.
func hasAny(ctx context.Context, id cid.Cid, backends []CAS) (bool, error) {
	var firstErr error
	for _, b := range backends {
		ok, err := b.Has(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}
