package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/idgen"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
)

// The operations below are shared by the gRPC methods and the HTTP handlers.
// The caller always comes from the request context, never from the input.

func (s *PresetsServer) savePreset(ctx context.Context, in *rpc.SavePresetRequest) (*model.Preset, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	now := s.timestamp()
	preset := &model.Preset{
		ID:             id,
		OwnerID:        caller.UserID,
		ToolID:         in.ToolID,
		Name:           strings.TrimSpace(in.Name),
		Parameters:     in.Parameters,
		Visibility:     model.VisibilityFromPublic(in.IsPublic),
		CreatedAt:      now,
		UpdatedAt:      now,
		ReactionCounts: model.ReactionCounts{},
	}
	if err := model.ValidatePreset(preset); err != nil {
		return nil, err
	}

	if err := s.store.CreatePreset(ctx, preset); err != nil {
		return nil, fmt.Errorf("create preset: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicPresetCreated, scopeOf(preset), caller.UserID, events.PresetCreated{Preset: preset})
	return preset, nil
}

// loadVisible returns a preset the caller may see: not deleted, and public
// or owned by the caller.
func (s *PresetsServer) loadVisible(ctx context.Context, id string) (*model.Preset, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	caller := IdentityFrom(ctx)

	preset, err := s.store.GetPreset(ctx, id, caller.UserID)
	if err != nil {
		return nil, err
	}
	if preset.IsDeleted() {
		return nil, model.ErrNotFound
	}
	if !preset.IsPublic() && preset.OwnerID != caller.UserID {
		return nil, model.ErrNotFound
	}
	return preset, nil
}

func (s *PresetsServer) getPreset(ctx context.Context, id string) (*model.Preset, error) {
	return s.loadVisible(ctx, id)
}

func (s *PresetsServer) setVisibility(ctx context.Context, in *rpc.SetVisibilityRequest) (*rpc.SetVisibilityResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, inputError("id is required")
	}

	visibility := model.VisibilityFromPublic(in.IsPublic)
	changed, err := s.store.SetVisibility(ctx, in.ID, caller.UserID, visibility)
	if err != nil {
		return nil, err
	}

	if changed {
		// Both directions are announced publicly so that public listings can
		// drop a preset that was just made private.
		preset, err := s.store.GetPreset(ctx, in.ID, "")
		toolID := ""
		if err == nil {
			toolID = preset.ToolID
		} else {
			slog.Warn("failed to reload preset after visibility change", "preset_id", in.ID, "error", err)
		}
		scope := eventScope{presetID: in.ID, ownerID: caller.UserID, public: true}
		s.recordAndPublish(ctx, events.TopicPresetVisibilityChanged, scope, caller.UserID, events.PresetVisibilityChanged{
			PresetID:   in.ID,
			ToolID:     toolID,
			Visibility: visibility,
		})
	}

	return &rpc.SetVisibilityResponse{Visibility: visibility, Changed: changed}, nil
}

func (s *PresetsServer) deletePreset(ctx context.Context, id string) error {
	caller, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return inputError("id is required")
	}

	// Loaded first for the event payload; the soft delete itself re-checks
	// ownership under the row lock.
	preset, err := s.store.GetPreset(ctx, id, "")
	if err != nil {
		return err
	}

	if err := s.store.SoftDeletePreset(ctx, id, caller.UserID); err != nil {
		return err
	}

	s.recordAndPublish(ctx, events.TopicPresetDeleted, scopeOf(preset), caller.UserID, events.PresetDeleted{
		PresetID: id,
		ToolID:   preset.ToolID,
	})
	return nil
}

func (s *PresetsServer) listPresets(ctx context.Context, scope model.Scope, in *rpc.ListPresetsRequest) (*model.Page, error) {
	caller := IdentityFrom(ctx)

	filter := model.PresetFilter{
		Scope:    scope,
		ToolID:   in.ToolID,
		ViewerID: caller.UserID,
		Page:     in.Page,
		PageSize: in.PageSize,
	}
	if scope == model.ScopeOwned {
		if caller.IsAnonymous() {
			return nil, model.ErrUnauthenticated
		}
		filter.OwnerID = caller.UserID
	}

	if err := model.ValidateToolID(in.ToolID); err != nil {
		return nil, err
	}
	if in.Page < 0 {
		return nil, inputError("page must not be negative")
	}
	if in.PageSize < 0 {
		return nil, inputError("page_size must not be negative")
	}
	if in.Cursor != "" {
		after, err := model.ParseCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		filter.After = after
	}

	presets, err := s.store.ListPresets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return model.NewPage(presets, filter.Limit()), nil
}

func (s *PresetsServer) toggleReaction(ctx context.Context, in *rpc.ToggleReactionRequest) (*model.ToggleResult, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if in.PresetID == "" {
		return nil, inputError("preset_id is required")
	}
	symbol, err := model.ParseSymbol(in.Symbol)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, caller.UserID)
		switch {
		case err != nil:
			slog.Warn("rate limiter unavailable, allowing toggle", "user_id", caller.UserID, "error", err)
		case !ok:
			return nil, model.ErrRateLimited
		}
	}

	result, err := s.store.ToggleReaction(ctx, caller.UserID, in.PresetID, symbol)
	if err != nil {
		return nil, err
	}

	scope := eventScope{
		presetID: result.PresetID,
		ownerID:  result.OwnerID,
		public:   result.Visibility == model.VisibilityPublic,
	}
	s.recordAndPublish(ctx, events.TopicReactionToggled, scope, caller.UserID, events.ReactionToggled{
		PresetID:       result.PresetID,
		UserID:         caller.UserID,
		Transition:     result.Transition,
		ReactionCounts: result.ReactionCounts,
	})
	return result, nil
}

// getEvents returns the audit trail of a preset. Owners keep access after a
// soft delete; everyone else needs the preset to be visible.
func (s *PresetsServer) getEvents(ctx context.Context, id string) ([]*model.Event, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	caller := IdentityFrom(ctx)

	preset, err := s.store.GetPreset(ctx, id, "")
	if err != nil {
		return nil, err
	}
	isOwner := !caller.IsAnonymous() && preset.OwnerID == caller.UserID
	if !isOwner && (preset.IsDeleted() || !preset.IsPublic()) {
		return nil, model.ErrNotFound
	}

	evts, err := s.store.GetEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	return evts, nil
}

// isInputError reports whether err should be reported as a bad request.
func isInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie) || model.IsValidation(err)
}
