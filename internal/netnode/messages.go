// Package netnode lets the workload generator drive connections that live
// in a separate process, over gRPC's hand-rolled-JSON-codec pattern from
// tinySQL's cmd/server/main.go: no protoc invocation, no generated
// .pb.go file -- a plain struct pair marshaled through encoding/json and
// a manually built grpc.ServiceDesc, exactly as the teacher's server does
// for its own Exec/Query RPCs. This backs spec.md §6's `--nodes
// host:port…` flag: each address becomes one remote generator.Conn.
package netnode

import "github.com/adyalab/isocheck/internal/domain"

// ExecuteRequest carries one operation to run on the remote connection.
type ExecuteRequest struct {
	Op domain.Operation
}

// ExecuteResponse carries the remote connection's result. Err is set
// (and Result left zero) when the remote Conn.Execute call itself
// returned an error -- the RPC plumbing itself succeeded either way.
type ExecuteResponse struct {
	Result domain.Result
	Err    string
}

// ResetRequest asks the remote connection to abandon its in-progress
// transaction.
type ResetRequest struct{}

// ResetResponse reports the outcome of a ResetRequest.
type ResetResponse struct {
	Err string
}
