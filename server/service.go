package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/store"
	"github.com/chazu/yield/vm"
)

// ServiceName is the full gRPC service name.
const ServiceName = "yield.v1.InspectionService"

// Method names of the inspection service.
const (
	MethodClassify          = "Classify"
	MethodRunMatrix         = "RunMatrix"
	MethodListRuns          = "ListRuns"
	MethodGetRun            = "GetRun"
	MethodDescribeSignature = "DescribeSignature"
)

// serviceDesc is written by hand: the messages are CBOR structs, not
// generated protobuf types.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodClassify, (*Server).classify),
		unary(MethodRunMatrix, (*Server).runMatrix),
		unary(MethodListRuns, (*Server).listRuns),
		unary(MethodGetRun, (*Server).getRun),
		unary(MethodDescribeSignature, (*Server).describeSignature),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "yield/v1/inspection",
}

func unary[Req, Resp any](name string, call func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

func invalid(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

func (s *Server) variants(names []string) ([]conformance.Variant, error) {
	if len(names) == 0 {
		return s.cfg.variants, nil
	}
	return conformance.ParseVariants(names)
}

func (s *Server) classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResponse, error) {
	typ, ok := vm.ParseType(req.Type)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown block type %q", req.Type)
	}
	sig, err := vm.ParseSignature(req.Signature)
	if err != nil {
		return nil, invalid(err)
	}
	entry, err := conformance.ParseEntry(req.Entry)
	if err != nil {
		return nil, invalid(err)
	}
	args, err := conformance.ParseArgShape(req.Args)
	if err != nil {
		return nil, invalid(err)
	}
	variants, err := s.variants(req.Variants)
	if err != nil {
		return nil, invalid(err)
	}
	c := conformance.Case{Type: typ, Sig: sig, Entry: entry, Args: args}
	if !c.Valid(s.cfg.many) {
		return nil, status.Errorf(codes.InvalidArgument, "%s passes several values to %s", args, entry)
	}

	v, err := s.worker.Do(ctx, func(tc *vm.ThreadContext) (any, error) {
		return conformance.Classify(tc, c, variants, s.cfg.many)
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	res := v.(*conformance.Classification)
	s.log.Debugf("classify %s: ok=%v", res.Case, res.OK())
	return &ClassifyResponse{Classification: res, OK: res.OK()}, nil
}

func (s *Server) runMatrix(ctx context.Context, req *RunMatrixRequest) (*RunMatrixResponse, error) {
	cfg := conformance.Config{MaxPre: req.MaxPre, Many: req.Many, Keywords: req.Keywords}
	if req.MaxPre == 0 && req.Many == 0 && !req.Keywords {
		cfg = s.cfg.matrix
	}
	for _, name := range req.Types {
		typ, ok := vm.ParseType(name)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown block type %q", name)
		}
		cfg.Types = append(cfg.Types, typ)
	}
	for _, name := range req.Entries {
		entry, err := conformance.ParseEntry(name)
		if err != nil {
			return nil, invalid(err)
		}
		cfg.Entries = append(cfg.Entries, entry)
	}
	variants, err := s.variants(req.Variants)
	if err != nil {
		return nil, invalid(err)
	}
	if req.Save && s.cfg.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "server has no store")
	}

	many := cfg.Many
	if many == 0 {
		many = s.cfg.many
	}
	cases := conformance.Matrix(cfg)
	v, err := s.worker.Do(ctx, func(tc *vm.ThreadContext) (any, error) {
		return conformance.Run(ctx, tc.Runtime(), cases, variants, many)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	report := v.(*conformance.Report)

	resp := &RunMatrixResponse{Report: report}
	if req.Save {
		if err := s.cfg.store.Save(report); err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		resp.Saved = true
	}
	return resp, nil
}

func (s *Server) listRuns(_ context.Context, req *ListRunsRequest) (*ListRunsResponse, error) {
	if s.cfg.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "server has no store")
	}
	runs, err := s.cfg.store.List(req.Limit)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp := &ListRunsResponse{Runs: make([]RunSummary, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, RunSummary{
			ID:       r.ID,
			Started:  r.Started.UnixNano(),
			Duration: r.Duration,
			Cases:    r.Cases,
			Checks:   r.Checks,
			Failed:   r.Failed,
		})
	}
	return resp, nil
}

func (s *Server) getRun(_ context.Context, req *GetRunRequest) (*RunMatrixResponse, error) {
	if s.cfg.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "server has no store")
	}
	report, err := s.cfg.store.Load(req.ID)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, status.Errorf(codes.NotFound, "run %s not found", req.ID)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &RunMatrixResponse{Report: report, Saved: true}, nil
}

func (s *Server) describeSignature(_ context.Context, req *DescribeSignatureRequest) (*DescribeSignatureResponse, error) {
	sig, err := vm.ParseSignature(req.Signature)
	if err != nil {
		return nil, invalid(err)
	}
	return &DescribeSignatureResponse{
		Signature:  sig.String(),
		Encoded:    sig.Encode(),
		Arity:      sig.ArityValue(),
		Required:   sig.Required(),
		Max:        sig.Max(),
		Spreadable: sig.IsSpreadable(),
	}, nil
}
