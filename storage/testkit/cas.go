// Package testkit holds the conformance suite every journal backend runs.
package testkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/radup/blob"
	"xdao.co/radup/storage"
)

// NewCAS returns a fresh, empty journal that no other test shares.
type NewCAS func(t *testing.T) storage.CAS

type check struct {
	name string
	run  func(t *testing.T, ctx context.Context, cas storage.CAS)
}

var checks = []check{
	{"PutGetRoundTrip", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		want := []byte("hello, radup journal")
		id := mustPut(t, ctx, cas, want)
		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get: got %q want %q", got, want)
		}
	}},
	{"KeyIsBlobHash", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		data := []byte("file uploaded to the ledger")
		id := mustPut(t, ctx, cas, data)
		if want := blob.Sum(data).CID(); !id.Equals(want) {
			t.Fatalf("Put CID: got %s want %s", id, want)
		}
	}},
	{"EmptyBlob", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		id := mustPut(t, ctx, cas, []byte{})
		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get empty: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("Get empty: got %v", got)
		}
	}},
	{"PutIdempotent", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		a := mustPut(t, ctx, cas, []byte("same bytes"))
		b := mustPut(t, ctx, cas, []byte("same bytes"))
		if !a.Equals(b) {
			t.Fatalf("second Put: got %s want %s", b, a)
		}
	}},
	{"DistinctBlobs", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		a := mustPut(t, ctx, cas, []byte("one"))
		b := mustPut(t, ctx, cas, []byte("two"))
		if a.Equals(b) {
			t.Fatalf("different bytes share CID %s", a)
		}
		got, err := cas.Get(ctx, a)
		if err != nil || string(got) != "one" {
			t.Fatalf("Get one: got %q, %v", got, err)
		}
	}},
	{"HasAndNotFound", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		data := []byte("missing")
		id := blob.Sum(data).CID()
		if ok, err := cas.Has(ctx, id); err != nil || ok {
			t.Fatalf("Has before Put: got %v, %v", ok, err)
		}
		if _, err := cas.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get before Put: got %v want not found", err)
		}
		mustPut(t, ctx, cas, data)
		if ok, err := cas.Has(ctx, id); err != nil || !ok {
			t.Fatalf("Has after Put: got %v, %v", ok, err)
		}
	}},
	{"RejectUndefCID", func(t *testing.T, ctx context.Context, cas storage.CAS) {
		if ok, _ := cas.Has(ctx, cid.Undef); ok {
			t.Fatalf("Has(undef) = true")
		}
		if _, err := cas.Get(ctx, cid.Undef); err == nil {
			t.Fatalf("Get(undef) succeeded")
		}
	}},
}

// RunCASConformance runs every check against a fresh journal from newCAS.
func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			c.run(t, context.Background(), newCAS(t))
		})
	}
}

func mustPut(t *testing.T, ctx context.Context, cas storage.CAS, data []byte) cid.Cid {
	t.Helper()
	id, err := cas.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put(%q): %v", data, err)
	}
	return id
}
