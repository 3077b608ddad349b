package server

import (
	"context"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
)

// SavePreset creates a preset owned by the caller.
func (s *PresetsServer) SavePreset(ctx context.Context, req *rpc.SavePresetRequest) (*rpc.SavePresetResponse, error) {
	preset, err := s.savePreset(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.SavePresetResponse{Preset: preset}, nil
}

// GetPreset loads one preset visible to the caller.
func (s *PresetsServer) GetPreset(ctx context.Context, req *rpc.GetPresetRequest) (*rpc.GetPresetResponse, error) {
	preset, err := s.getPreset(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.GetPresetResponse{Preset: preset}, nil
}

// SetVisibility publishes or unpublishes one of the caller's presets.
func (s *PresetsServer) SetVisibility(ctx context.Context, req *rpc.SetVisibilityRequest) (*rpc.SetVisibilityResponse, error) {
	resp, err := s.setVisibility(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return resp, nil
}

// DeletePreset soft-deletes one of the caller's presets.
func (s *PresetsServer) DeletePreset(ctx context.Context, req *rpc.DeletePresetRequest) (*rpc.DeletePresetResponse, error) {
	if err := s.deletePreset(ctx, req.ID); err != nil {
		return nil, grpcError(err)
	}
	return &rpc.DeletePresetResponse{}, nil
}

// ListOwned pages through the caller's presets for a tool.
func (s *PresetsServer) ListOwned(ctx context.Context, req *rpc.ListPresetsRequest) (*rpc.ListPresetsResponse, error) {
	return s.list(ctx, model.ScopeOwned, req)
}

// ListPublic pages through everyone's public presets for a tool.
func (s *PresetsServer) ListPublic(ctx context.Context, req *rpc.ListPresetsRequest) (*rpc.ListPresetsResponse, error) {
	return s.list(ctx, model.ScopePublic, req)
}

func (s *PresetsServer) list(ctx context.Context, scope model.Scope, req *rpc.ListPresetsRequest) (*rpc.ListPresetsResponse, error) {
	page, err := s.listPresets(ctx, scope, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.ListPresetsResponse{Presets: page.Presets, NextCursor: page.NextCursor}, nil
}

// ToggleReaction adds, switches or removes the caller's reaction.
func (s *PresetsServer) ToggleReaction(ctx context.Context, req *rpc.ToggleReactionRequest) (*rpc.ToggleReactionResponse, error) {
	result, err := s.toggleReaction(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.ToggleReactionResponse{Result: result}, nil
}
