package netnode

import (
	"context"
	"errors"

	"github.com/adyalab/isocheck/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// RemoteConn implements generator.Conn by forwarding every call to a
// GeneratorServer running on another process, dialed with the same
// insecure-credentials-plus-JSON-codec options tinySQL's grpcQuery
// helper uses.
type RemoteConn struct {
	cc *grpc.ClientConn
}

// Dial connects to a netnode listening on addr.
func Dial(addr string) (*RemoteConn, error) {
	encoding.RegisterCodec(jsonCodec{})
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, err
	}
	return &RemoteConn{cc: cc}, nil
}

// Execute implements generator.Conn.
func (r *RemoteConn) Execute(ctx context.Context, op domain.Operation) (domain.Result, error) {
	req := &ExecuteRequest{Op: op}
	var resp ExecuteResponse
	if err := r.cc.Invoke(ctx, "/"+serviceName+"/Execute", req, &resp); err != nil {
		return domain.Result{}, err
	}
	if resp.Err != "" {
		return domain.Result{}, errors.New(resp.Err)
	}
	return resp.Result, nil
}

// Reset implements generator.Conn.
func (r *RemoteConn) Reset() error {
	var resp ResetResponse
	if err := r.cc.Invoke(context.Background(), "/"+serviceName+"/Reset", &ResetRequest{}, &resp); err != nil {
		return err
	}
	if resp.Err != "" {
		return errors.New(resp.Err)
	}
	return nil
}

// IsConnected reports the underlying gRPC channel's connectivity state.
func (r *RemoteConn) IsConnected() bool {
	st := r.cc.GetState()
	return st == connectivity.Ready || st == connectivity.Idle
}

// ProcessException implements generator.Conn; the transport layer already
// surfaces connectivity failures via IsConnected, so there is nothing
// further to react to here.
func (r *RemoteConn) ProcessException(err error) {}

// Close tears down the underlying gRPC channel.
func (r *RemoteConn) Close() error { return r.cc.Close() }
