package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/radup/internal/logging"
	"xdao.co/radup/storage"
	"xdao.co/radup/storage/localfs"
	"xdao.co/radup/storage/testkit"
)

func newBufconnClient(t *testing.T, backend storage.CAS) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logging.NewNop())))
	RegisterJournalServer(srv, &Server{CAS: backend})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return NewClient(cc, 2*time.Second)
}

func TestGRPCCAS_LocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		cas, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		return newBufconnClient(t, cas)
	})
}

// lyingCAS returns bytes that do not match the requested CID.
type lyingCAS struct{ storage.CAS }

func (lyingCAS) Get(context.Context, cid.Cid) ([]byte, error) { return []byte("lies"), nil }

func TestGRPCCAS_RejectsMismatchedBytes(t *testing.T) {
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := newBufconnClient(t, lyingCAS{cas})
	ctx := context.Background()

	id, err := client.Put(ctx, []byte("truth"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := client.Get(ctx, id); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Get: got %v want %v", err, storage.ErrCIDMismatch)
	}
}
