package detection

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// GRPCProber probes the standard gRPC health service of the inference backend
type GRPCProber struct {
	endpoint string
	service  string
	conn     *grpc.ClientConn
	client   healthpb.HealthClient
}

// NewGRPCProber creates a prober for endpoint (host:port). service may be
// empty to query overall server health. Extra dial options are appended.
func NewGRPCProber(endpoint, service string, opts ...grpc.DialOption) (*GRPCProber, error) {
	// Detect dead connections between probes
	kacp := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", endpoint, err)
	}

	return &GRPCProber{
		endpoint: endpoint,
		service:  service,
		conn:     conn,
		client:   healthpb.NewHealthClient(conn),
	}, nil
}

// Probe maps SERVING to connected, any other serving status to model-error
// and RPC failures to disconnected
func (p *GRPCProber) Probe(ctx context.Context) Status {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return StatusDisconnected
	}
	if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
		return StatusConnected
	}
	return StatusModelError
}

// Close releases the connection
func (p *GRPCProber) Close() error {
	return p.conn.Close()
}
