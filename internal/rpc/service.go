package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "presets.v1.PresetService"

// Full method names, as seen by interceptors.
const (
	SavePresetMethod     = "/" + ServiceName + "/SavePreset"
	GetPresetMethod      = "/" + ServiceName + "/GetPreset"
	SetVisibilityMethod  = "/" + ServiceName + "/SetVisibility"
	DeletePresetMethod   = "/" + ServiceName + "/DeletePreset"
	ListOwnedMethod      = "/" + ServiceName + "/ListOwned"
	ListPublicMethod     = "/" + ServiceName + "/ListPublic"
	ToggleReactionMethod = "/" + ServiceName + "/ToggleReaction"
)

// PresetServiceServer is the server API for presets.v1.PresetService.
type PresetServiceServer interface {
	SavePreset(context.Context, *SavePresetRequest) (*SavePresetResponse, error)
	GetPreset(context.Context, *GetPresetRequest) (*GetPresetResponse, error)
	SetVisibility(context.Context, *SetVisibilityRequest) (*SetVisibilityResponse, error)
	DeletePreset(context.Context, *DeletePresetRequest) (*DeletePresetResponse, error)
	ListOwned(context.Context, *ListPresetsRequest) (*ListPresetsResponse, error)
	ListPublic(context.Context, *ListPresetsRequest) (*ListPresetsResponse, error)
	ToggleReaction(context.Context, *ToggleReactionRequest) (*ToggleReactionResponse, error)
}

// UnimplementedPresetServiceServer returns codes.Unimplemented for every
// method. Embed it to stay forward compatible.
type UnimplementedPresetServiceServer struct{}

func (UnimplementedPresetServiceServer) SavePreset(context.Context, *SavePresetRequest) (*SavePresetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SavePreset not implemented")
}
func (UnimplementedPresetServiceServer) GetPreset(context.Context, *GetPresetRequest) (*GetPresetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPreset not implemented")
}
func (UnimplementedPresetServiceServer) SetVisibility(context.Context, *SetVisibilityRequest) (*SetVisibilityResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetVisibility not implemented")
}
func (UnimplementedPresetServiceServer) DeletePreset(context.Context, *DeletePresetRequest) (*DeletePresetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeletePreset not implemented")
}
func (UnimplementedPresetServiceServer) ListOwned(context.Context, *ListPresetsRequest) (*ListPresetsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListOwned not implemented")
}
func (UnimplementedPresetServiceServer) ListPublic(context.Context, *ListPresetsRequest) (*ListPresetsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPublic not implemented")
}
func (UnimplementedPresetServiceServer) ToggleReaction(context.Context, *ToggleReactionRequest) (*ToggleReactionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ToggleReaction not implemented")
}

// RegisterPresetServiceServer registers srv on s.
func RegisterPresetServiceServer(s grpc.ServiceRegistrar, srv PresetServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for presets.v1.PresetService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PresetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SavePreset", Handler: unaryHandler(SavePresetMethod, PresetServiceServer.SavePreset)},
		{MethodName: "GetPreset", Handler: unaryHandler(GetPresetMethod, PresetServiceServer.GetPreset)},
		{MethodName: "SetVisibility", Handler: unaryHandler(SetVisibilityMethod, PresetServiceServer.SetVisibility)},
		{MethodName: "DeletePreset", Handler: unaryHandler(DeletePresetMethod, PresetServiceServer.DeletePreset)},
		{MethodName: "ListOwned", Handler: unaryHandler(ListOwnedMethod, PresetServiceServer.ListOwned)},
		{MethodName: "ListPublic", Handler: unaryHandler(ListPublicMethod, PresetServiceServer.ListPublic)},
		{MethodName: "ToggleReaction", Handler: unaryHandler(ToggleReactionMethod, PresetServiceServer.ToggleReaction)},
	},
	Streams: []grpc.StreamDesc{},
}

func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(PresetServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PresetServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PresetServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PresetServiceClient is the client API for presets.v1.PresetService.
type PresetServiceClient interface {
	SavePreset(ctx context.Context, in *SavePresetRequest, opts ...grpc.CallOption) (*SavePresetResponse, error)
	GetPreset(ctx context.Context, in *GetPresetRequest, opts ...grpc.CallOption) (*GetPresetResponse, error)
	SetVisibility(ctx context.Context, in *SetVisibilityRequest, opts ...grpc.CallOption) (*SetVisibilityResponse, error)
	DeletePreset(ctx context.Context, in *DeletePresetRequest, opts ...grpc.CallOption) (*DeletePresetResponse, error)
	ListOwned(ctx context.Context, in *ListPresetsRequest, opts ...grpc.CallOption) (*ListPresetsResponse, error)
	ListPublic(ctx context.Context, in *ListPresetsRequest, opts ...grpc.CallOption) (*ListPresetsResponse, error)
	ToggleReaction(ctx context.Context, in *ToggleReactionRequest, opts ...grpc.CallOption) (*ToggleReactionResponse, error)
}

type presetServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPresetServiceClient returns a client stub that sends every call with
// the JSON content-subtype.
func NewPresetServiceClient(cc grpc.ClientConnInterface) PresetServiceClient {
	return &presetServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *presetServiceClient) SavePreset(ctx context.Context, in *SavePresetRequest, opts ...grpc.CallOption) (*SavePresetResponse, error) {
	return invoke[SavePresetResponse](ctx, c.cc, SavePresetMethod, in, opts)
}

func (c *presetServiceClient) GetPreset(ctx context.Context, in *GetPresetRequest, opts ...grpc.CallOption) (*GetPresetResponse, error) {
	return invoke[GetPresetResponse](ctx, c.cc, GetPresetMethod, in, opts)
}

func (c *presetServiceClient) SetVisibility(ctx context.Context, in *SetVisibilityRequest, opts ...grpc.CallOption) (*SetVisibilityResponse, error) {
	return invoke[SetVisibilityResponse](ctx, c.cc, SetVisibilityMethod, in, opts)
}

func (c *presetServiceClient) DeletePreset(ctx context.Context, in *DeletePresetRequest, opts ...grpc.CallOption) (*DeletePresetResponse, error) {
	return invoke[DeletePresetResponse](ctx, c.cc, DeletePresetMethod, in, opts)
}

func (c *presetServiceClient) ListOwned(ctx context.Context, in *ListPresetsRequest, opts ...grpc.CallOption) (*ListPresetsResponse, error) {
	return invoke[ListPresetsResponse](ctx, c.cc, ListOwnedMethod, in, opts)
}

func (c *presetServiceClient) ListPublic(ctx context.Context, in *ListPresetsRequest, opts ...grpc.CallOption) (*ListPresetsResponse, error) {
	return invoke[ListPresetsResponse](ctx, c.cc, ListPublicMethod, in, opts)
}

func (c *presetServiceClient) ToggleReaction(ctx context.Context, in *ToggleReactionRequest, opts ...grpc.CallOption) (*ToggleReactionResponse, error) {
	return invoke[ToggleReactionResponse](ctx, c.cc, ToggleReactionMethod, in, opts)
}
