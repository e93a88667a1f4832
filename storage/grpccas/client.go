package grpccas

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/radup/cidutil"
	"xdao.co/radup/storage"
)

// Client implements storage.CAS against a radup-journald daemon.
type Client struct {
	cc     *grpc.ClientConn
	client JournalClient

	// Timeout applies per RPC when non-zero, on top of the caller's context.
	Timeout time.Duration
}

var _ storage.CAS = (*Client)(nil)

// DialOptions tune a Client created by Dial.
type DialOptions struct {
	Timeout     time.Duration // per RPC, when non-zero
	MaxMsgBytes int           // send and receive limit, when non-zero
}

func (o DialOptions) grpcOptions() []grpc.DialOption {
	out := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if n := o.MaxMsgBytes; n > 0 {
		out = append(out, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(n), grpc.MaxCallSendMsgSize(n)))
	}
	return out
}

// Dial creates a client for target. The connection is established lazily on
// the first RPC.
func Dial(target string, opts DialOptions) (*Client, error) {
	cc, err := grpc.NewClient(target, opts.grpcOptions()...)
	if err != nil {
		return nil, fmt.Errorf("grpccas: dial %s: %w", target, err)
	}
	return NewClient(cc, opts.Timeout), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn, timeout time.Duration) *Client {
	return &Client{cc: cc, client: NewJournalClient(cc), Timeout: timeout}
}

// Close releases the connection; a nil Client is a no-op.
func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// call runs one RPC under the per-call timeout and maps its error.
func call[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, mapRPC(err)
	}
	return v, nil
}

func (c *Client) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	want, err := cidutil.CIDv1RawBlake2b256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	reply, err := call(ctx, c, func(ctx context.Context) (*wrapperspb.StringValue, error) {
		return c.client.Put(ctx, wrapperspb.Bytes(data))
	})
	if err != nil {
		return cid.Undef, err
	}
	got, err := cid.Decode(reply.GetValue())
	switch {
	case err != nil || !got.Defined():
		return cid.Undef, storage.ErrInvalidCID
	case !got.Equals(want):
		return cid.Undef, storage.ErrCIDMismatch
	}
	return got, nil
}

// Get re-checks the bytes against id; the daemon is not trusted.
func (c *Client) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	reply, err := call(ctx, c, func(ctx context.Context) (*wrapperspb.BytesValue, error) {
		return c.client.Get(ctx, wrapperspb.String(id.String()))
	})
	if err != nil {
		return nil, err
	}
	data := reply.GetValue()
	if err := storage.CheckCID(id, data); err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (c *Client) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	reply, err := call(ctx, c, func(ctx context.Context) (*wrapperspb.BoolValue, error) {
		return c.client.Has(ctx, wrapperspb.String(id.String()))
	})
	if err != nil {
		return false, err
	}
	return reply.GetValue(), nil
}
