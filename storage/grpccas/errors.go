package grpccas

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/radup/storage"
)

// sentinels pairs status codes with storage errors in both directions.
var sentinels = map[codes.Code]error{
	codes.NotFound:        storage.ErrNotFound,
	codes.InvalidArgument: storage.ErrInvalidCID,
	codes.DataLoss:        storage.ErrCIDMismatch,
	codes.AlreadyExists:   storage.ErrImmutable,
}

// mapRPC converts a client-side RPC error. Known codes wrap the matching
// storage sentinel and keep the daemon's message.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if sentinel, ok := sentinels[st.Code()]; ok {
		return fmt.Errorf("%w (journald: %s)", sentinel, st.Message())
	}
	if st.Code() == codes.Unavailable {
		return fmt.Errorf("grpccas: journal daemon unavailable: %s", st.Message())
	}
	return err
}
