package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls the inspection service.
type Client struct {
	conn grpc.ClientConnInterface
}

// Dial connects to target without transport security. opts are added to
// the defaults.
func Dial(target string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResponse, error) {
	out := new(ClassifyResponse)
	if err := c.invoke(ctx, MethodClassify, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RunMatrix(ctx context.Context, req *RunMatrixRequest) (*RunMatrixResponse, error) {
	out := new(RunMatrixResponse)
	if err := c.invoke(ctx, MethodRunMatrix, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRuns(ctx context.Context, req *ListRunsRequest) (*ListRunsResponse, error) {
	out := new(ListRunsResponse)
	if err := c.invoke(ctx, MethodListRuns, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRun(ctx context.Context, req *GetRunRequest) (*RunMatrixResponse, error) {
	out := new(RunMatrixResponse)
	if err := c.invoke(ctx, MethodGetRun, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DescribeSignature(ctx context.Context, req *DescribeSignatureRequest) (*DescribeSignatureResponse, error) {
	out := new(DescribeSignatureResponse)
	if err := c.invoke(ctx, MethodDescribeSignature, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
