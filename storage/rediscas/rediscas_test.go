package rediscas

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"
	"xdao.co/radup/storage/testkit"
)

func TestRedisCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		mr := miniredis.RunT(t)
		client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return NewFromClient(client)
	})
}

func TestRedisCAS_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0, WithPrefix("test:"))
	defer c.Close()

	orig := []byte("original")
	id, err := c.Put(ctx, orig)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists("test:" + id.String()) {
		t.Fatalf("key not written under prefix")
	}

	mr.Set("test:"+id.String(), "corrupted")
	if _, err := c.Get(ctx, id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get: got %v want %v", err, storage.ErrCIDMismatch)
	}
	if _, err := c.Put(ctx, orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
}

func TestRedisCAS_OpenWithConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cas, closeFn, err := casregistry.OpenWithConfig("redis", casregistry.UsageDaemon, map[string]any{
		"addr": mr.Addr(),
		"db":   "0",
	})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	defer closeFn()
	if _, err := cas.Put(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
}
