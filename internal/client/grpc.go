package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
)

// GRPCClient implements PresetsClient using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client rpc.PresetServiceClient
	health healthpb.HealthClient
	creds  Credentials
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr string, creds Credentials, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewPresetServiceClient(conn),
		health: healthpb.NewHealthClient(conn),
		creds:  creds,
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// outgoing attaches the caller credentials as request metadata.
func (c *GRPCClient) outgoing(ctx context.Context) context.Context {
	switch {
	case c.creds.Token != "":
		return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.creds.Token)
	case c.creds.UserID != "":
		return metadata.AppendToOutgoingContext(ctx, "x-user-id", c.creds.UserID)
	}
	return ctx
}

// fromStatus maps a gRPC status error onto an *APIError.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return transportError(err)
	}
	return newAPIError(httpStatusForCode(st.Code()), st.Message())
}

func (c *GRPCClient) SavePreset(ctx context.Context, req *SavePresetRequest) (*model.Preset, error) {
	resp, err := c.client.SavePreset(c.outgoing(ctx), req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp.Preset, nil
}

func (c *GRPCClient) GetPreset(ctx context.Context, id string) (*model.Preset, error) {
	resp, err := c.client.GetPreset(c.outgoing(ctx), &rpc.GetPresetRequest{ID: id})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp.Preset, nil
}

func (c *GRPCClient) SetVisibility(ctx context.Context, id string, isPublic bool) (*VisibilityResult, error) {
	resp, err := c.client.SetVisibility(c.outgoing(ctx), &rpc.SetVisibilityRequest{ID: id, IsPublic: isPublic})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

func (c *GRPCClient) DeletePreset(ctx context.Context, id string) error {
	_, err := c.client.DeletePreset(c.outgoing(ctx), &rpc.DeletePresetRequest{ID: id})
	return fromStatus(err)
}

func (c *GRPCClient) ListOwned(ctx context.Context, req *ListRequest) (*model.Page, error) {
	resp, err := c.client.ListOwned(c.outgoing(ctx), req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return pageFromResponse(resp), nil
}

func (c *GRPCClient) ListPublic(ctx context.Context, req *ListRequest) (*model.Page, error) {
	resp, err := c.client.ListPublic(c.outgoing(ctx), req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return pageFromResponse(resp), nil
}

func pageFromResponse(resp *rpc.ListPresetsResponse) *model.Page {
	presets := resp.Presets
	if presets == nil {
		presets = []*model.Preset{}
	}
	return &model.Page{Presets: presets, NextCursor: resp.NextCursor}
}

func (c *GRPCClient) ToggleReaction(ctx context.Context, presetID string, symbol model.Symbol) (*model.ToggleResult, error) {
	resp, err := c.client.ToggleReaction(c.outgoing(ctx), &rpc.ToggleReactionRequest{PresetID: presetID, Symbol: string(symbol)})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp.Result, nil
}

// Health reports the serving status of the preset service.
func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return "", fromStatus(err)
	}
	if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
		return "ok", nil
	}
	return resp.GetStatus().String(), nil
}
