package grpccas

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/radup/cidutil"
	"xdao.co/radup/storage"
)

// Server exposes a storage.CAS over the journal gRPC service.
type Server struct {
	UnimplementedJournalServer
	CAS storage.CAS
}

var errNoBackend = status.Error(codes.FailedPrecondition, "journal daemon has no backend")

func (s *Server) backend() (storage.CAS, error) {
	if s == nil || s.CAS == nil {
		return nil, errNoBackend
	}
	return s.CAS, nil
}

func parseID(text string) (cid.Cid, error) {
	id, err := cid.Decode(text)
	if err != nil || !id.Defined() {
		return cid.Undef, status.Errorf(codes.InvalidArgument, "%v: %q", storage.ErrInvalidCID, text)
	}
	return id, nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	cas, err := s.backend()
	if err != nil {
		return nil, err
	}
	data := in.GetValue()
	want, err := cidutil.CIDv1RawBlake2b256CID(data)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "hash blob: %v", err)
	}
	got, err := cas.Put(ctx, data)
	if err != nil {
		return nil, toStatus(err)
	}
	if !got.Equals(want) {
		return nil, status.Errorf(codes.DataLoss, "%v: backend returned %s, want %s", storage.ErrCIDMismatch, got, want)
	}
	return wrapperspb.String(got.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	cas, err := s.backend()
	if err != nil {
		return nil, err
	}
	id, err := parseID(in.GetValue())
	if err != nil {
		return nil, err
	}
	data, err := cas.Get(ctx, id)
	if err == nil {
		err = storage.CheckCID(id, data)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(data), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	cas, err := s.backend()
	if err != nil {
		return nil, err
	}
	id, err := parseID(in.GetValue())
	if err != nil {
		return nil, err
	}
	ok, err := cas.Has(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(ok), nil
}

// LoggingInterceptor logs each RPC with its status code and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		level := slog.LevelDebug
		if code != codes.OK && code != codes.NotFound {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "journal rpc",
			"method", info.FullMethod,
			"code", code.String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

// toStatus is the server half of the sentinels table.
func toStatus(err error) error {
	for code, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return status.Error(code, err.Error())
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
