package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/store"
	"github.com/chazu/yield/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Each test gets its own runtime, server and in-memory listener so tests can
// run in parallel without sharing a worker.
// ---------------------------------------------------------------------------

func newTestRuntime(t *testing.T) *vm.Runtime {
	t.Helper()
	cfg := vm.DefaultConfig()
	cfg.Warnings = false
	cfg.JITThreshold = 1
	cfg.JITBackground = false
	rt := vm.NewRuntime(cfg)
	t.Cleanup(rt.Close)
	return rt
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// smallMatrix keeps matrix runs quick in tests.
var smallMatrix = conformance.Config{MaxPre: 1, Many: 4}

// startServer serves a new Server over bufconn and returns a client for it.
func startServer(t *testing.T, opts ...ServerOption) (*Client, *Server) {
	t.Helper()
	opts = append([]ServerOption{WithMatrix(smallMatrix)}, opts...)
	s := New(newTestRuntime(t), opts...)

	lis := bufconn.Listen(1 << 20)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	client, conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return client, s
}
