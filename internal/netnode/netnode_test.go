package netnode_test

import (
	"context"
	"testing"
	"time"

	"github.com/adyalab/isocheck/internal/domain"
	"github.com/adyalab/isocheck/internal/generator"
	"github.com/adyalab/isocheck/internal/netnode"
)

func TestRemoteConnRoundTripsExecute(t *testing.T) {
	store := generator.NewStore()
	local := generator.NewConn(store)

	addr := "127.0.0.1:19099"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- netnode.Serve(ctx, addr, local) }()
	time.Sleep(100 * time.Millisecond)

	remote, err := netnode.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer remote.Close()

	obj := domain.Object{ID: 1, Table: "t0"}
	if _, err := remote.Execute(context.Background(), domain.Operation{Kind: domain.OpWrite, Object: obj, Value: 7}); err != nil {
		t.Fatalf("Execute write: %v", err)
	}
	res, err := remote.Execute(context.Background(), domain.Operation{Kind: domain.OpRead, Object: obj})
	if err != nil {
		t.Fatalf("Execute read: %v", err)
	}
	if len(res.Value) != 1 || res.Value[0] != 7 {
		t.Errorf("expected [7], got %v", res.Value)
	}

	if err := remote.Reset(); err != nil {
		t.Errorf("Reset: %v", err)
	}

	cancel()
	<-serveErr
}
