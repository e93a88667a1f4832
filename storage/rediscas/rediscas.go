// Package rediscas is a journal backend on Redis. Each object is one string
// key, written with SET NX so the first write wins.
package rediscas

import (
	"bytes"
	"context"
	"errors"

	"github.com/ipfs/go-cid"
	backend "github.com/redis/go-redis/v9"

	"xdao.co/radup/cidutil"
	"xdao.co/radup/storage"
)

// DefaultPrefix namespaces journal keys.
const DefaultPrefix = "radup:journal:"

// CAS implements storage.CAS on a Redis client.
type CAS struct {
	client *backend.Client
	prefix string
}

var _ storage.CAS = (*CAS)(nil)

type Option func(*CAS)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *CAS) {
		c.prefix = prefix
	}
}

// New connects to addr.
func New(addr, password string, db int, opts ...Option) *CAS {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *CAS {
	c := &CAS{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CAS) key(id cid.Cid) string { return c.prefix + id.String() }

// Close closes the underlying client.
func (c *CAS) Close() error { return c.client.Close() }

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawBlake2b256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	created, err := c.client.SetNX(ctx, c.key(id), data, 0).Result()
	if err != nil {
		return cid.Undef, err
	}
	if created {
		return id, nil
	}
	existing, err := c.Get(ctx, id)
	if err != nil || !bytes.Equal(existing, data) {
		return cid.Undef, storage.ErrImmutable
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := storage.CheckCID(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
