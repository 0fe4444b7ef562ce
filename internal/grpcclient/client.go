// Package grpcclient provides a client for an inference server exposing
// chunk transcription over gRPC.
//
// The service carries well-known wrapper messages: the request is a
// BytesValue holding one WAV-encoded chunk and the reply a StringValue with
// the recognized text.
package grpcclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Client wraps the inference connection.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// New creates a client for addr. Extra options are appended to the defaults.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
	}

	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ConfigInvalid, "inference client for %s", addr)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Transcribe sends one WAV-encoded chunk and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, TranscribeMethod, wrapperspb.Bytes(wav), out); err != nil {
		return "", errors.FromGRPCError(err)
	}
	return out.GetValue(), nil
}

// Check asks the server's health service whether transcription is serving.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return errors.Wrap(err, errors.Network, "inference health check")
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return errors.New(errors.Remote, fmt.Sprintf("inference not serving: %s", resp.GetStatus()))
	}
	return nil
}
