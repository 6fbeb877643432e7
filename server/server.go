// Package server exposes block dispatch over gRPC: clients classify single
// cases, run the conformance matrix and browse stored runs. Messages are
// CBOR encoded.
package server

import (
	"net"

	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/store"
	"github.com/chazu/yield/vm"
)

// Server is the inspection service wrapping a runtime.
type Server struct {
	worker *Worker
	grpc   *grpc.Server
	cfg    *serverConfig
	log    commonlog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	store    *store.Store
	variants []conformance.Variant
	matrix   conformance.Config
	many     int
	grpcOpts []grpc.ServerOption
}

// WithStore lets the server save and list runs.
func WithStore(st *store.Store) ServerOption {
	return func(c *serverConfig) { c.store = st }
}

// WithVariants sets the body variants used when a request names none.
func WithVariants(variants []conformance.Variant) ServerOption {
	return func(c *serverConfig) { c.variants = variants }
}

// WithMatrix sets the matrix run when a request leaves its size unset.
func WithMatrix(cfg conformance.Config) ServerOption {
	return func(c *serverConfig) {
		c.matrix = cfg
		if cfg.Many > 0 {
			c.many = cfg.Many
		}
	}
}

// WithGRPCOptions passes options to the underlying grpc.Server.
func WithGRPCOptions(opts ...grpc.ServerOption) ServerOption {
	return func(c *serverConfig) { c.grpcOpts = append(c.grpcOpts, opts...) }
}

// New creates a Server. All dispatch runs on one worker goroutine.
func New(rt *vm.Runtime, opts ...ServerOption) *Server {
	def := conformance.DefaultConfig()
	cfg := &serverConfig{
		variants: conformance.AllVariants(),
		matrix:   def,
		many:     def.Many,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		worker: NewWorker(rt),
		grpc:   grpc.NewServer(cfg.grpcOpts...),
		cfg:    cfg,
		log:    commonlog.GetLogger("yield.server"),
	}
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// GRPC returns the underlying grpc.Server.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("inspection service listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on addr ("host:port") and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Stop shuts down the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
	s.worker.Stop()
}
