package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/radup/cidutil"
)

type memCAS struct {
	mu   sync.Mutex
	objs map[string][]byte
	fail error
}

func newMem() *memCAS { return &memCAS{objs: map[string][]byte{}} }

func (m *memCAS) Put(_ context.Context, data []byte) (cid.Cid, error) {
	if m.fail != nil {
		return cid.Undef, m.fail
	}
	id, err := cidutil.CIDv1RawBlake2b256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[id.KeyString()] = append([]byte(nil), data...)
	return id, nil
}

func (m *memCAS) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objs[id.KeyString()]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memCAS) Has(_ context.Context, id cid.Cid) (bool, error) {
	if m.fail != nil {
		return false, m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objs[id.KeyString()]
	return ok, nil
}

func TestMultiCAS_WritesFirstReadsAll(t *testing.T) {
	ctx := context.Background()
	a, b := newMem(), newMem()
	m := MultiCAS{Adapters: []CAS{a, b}}

	id, err := b.Put(ctx, []byte("only in b"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := m.Get(ctx, id)
	if err != nil || string(got) != "only in b" {
		t.Fatalf("Get fallback: %q, %v", got, err)
	}
	if ok, err := m.Has(ctx, id); !ok || err != nil {
		t.Fatalf("Has fallback: %v, %v", ok, err)
	}

	id2, err := m.Put(ctx, []byte("new"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, _ := b.Has(ctx, id2); ok {
		t.Fatalf("MultiCAS wrote beyond the first adapter")
	}
	if _, err := (MultiCAS{}).Put(ctx, nil); !errors.Is(err, ErrNoBackends) {
		t.Fatalf("empty MultiCAS: %v", err)
	}
}

func TestMultiCAS_StopsOnBackendError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	a, b := newMem(), newMem()
	a.fail = boom
	id, _ := b.Put(ctx, []byte("x"))

	m := MultiCAS{Adapters: []CAS{a, b}}
	if _, err := m.Get(ctx, id); !errors.Is(err, boom) {
		t.Fatalf("Get: got %v want boom", err)
	}
	// Has still finds the object in b.
	if ok, err := m.Has(ctx, id); !ok || err != nil {
		t.Fatalf("Has: %v, %v", ok, err)
	}
}

func TestReplicatingCAS_PutAll(t *testing.T) {
	ctx := context.Background()
	a, b := newMem(), newMem()
	r := ReplicatingCAS{Backends: []NamedCAS{{Name: "a", CAS: a}, {Name: "b", CAS: b}}}

	id, per, err := r.PutAll(ctx, []byte("both"))
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if len(per) != 2 || !per["a"].Equals(id) || !per["b"].Equals(id) {
		t.Fatalf("per-backend CIDs: %v", per)
	}
	for _, m := range []*memCAS{a, b} {
		if ok, _ := m.Has(ctx, id); !ok {
			t.Fatalf("backend missing object")
		}
	}

	b.fail = errors.New("disk full")
	if _, err := r.Put(ctx, []byte("again")); err == nil {
		t.Fatalf("expected backend failure")
	}
}

func TestCheckCID(t *testing.T) {
	id, _ := cidutil.CIDv1RawBlake2b256CID([]byte("a"))
	if err := CheckCID(id, []byte("a")); err != nil {
		t.Fatalf("CheckCID: %v", err)
	}
	if err := CheckCID(id, []byte("b")); err != ErrCIDMismatch {
		t.Fatalf("mismatch: %v", err)
	}
	if err := CheckCID(cid.Undef, nil); err != ErrInvalidCID {
		t.Fatalf("undef: %v", err)
	}
}
