package netnode

import (
	"context"
	"fmt"
	"net"

	"github.com/adyalab/isocheck/internal/generator"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Node exposes a local generator.Conn as a GeneratorServer, letting a
// remote isocheck process drive it as one of the workload's connections.
type Node struct {
	conn generator.Conn
}

// NewNode wraps conn for remote access.
func NewNode(conn generator.Conn) *Node { return &Node{conn: conn} }

// Execute implements GeneratorServer by forwarding to the wrapped
// connection, mirroring generator.runConnTxn's own error handling: a
// failed operation still calls ProcessException and is reported as data
// (ExecuteResponse.Err), never as a gRPC-level error.
func (n *Node) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	res, err := n.conn.Execute(ctx, req.Op)
	if err != nil {
		n.conn.ProcessException(err)
		return &ExecuteResponse{Err: err.Error()}, nil
	}
	return &ExecuteResponse{Result: res}, nil
}

// Reset implements GeneratorServer.
func (n *Node) Reset(ctx context.Context, req *ResetRequest) (*ResetResponse, error) {
	if err := n.conn.Reset(); err != nil {
		return &ResetResponse{Err: err.Error()}, nil
	}
	return &ResetResponse{}, nil
}

// Serve registers conn as a GeneratorServer and blocks serving gRPC on
// addr until ctx is cancelled, following main()'s gRPC startup block in
// tinySQL's cmd/server: register the JSON codec, listen, serve.
func Serve(ctx context.Context, addr string, conn generator.Conn) error {
	encoding.RegisterCodec(jsonCodec{})

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("netnode: listen on %s: %w", addr, err)
	}

	gs := grpc.NewServer()
	RegisterGeneratorServer(gs, NewNode(conn))

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
