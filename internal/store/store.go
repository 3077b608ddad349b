package store

import (
	"context"

	"github.com/alfredjeanlab/presets/internal/model"
)

// Store defines the persistence interface for presets and the reaction ledger.
//
// Lookups of a missing preset return an error wrapping model.ErrNotFound.
// Owner-only mutations return model.ErrPermissionDenied for other callers.
type Store interface {
	// Presets
	CreatePreset(ctx context.Context, preset *model.Preset) error
	GetPreset(ctx context.Context, id, viewerID string) (*model.Preset, error) // includes soft-deleted rows
	ListPresets(ctx context.Context, filter model.PresetFilter) ([]*model.Preset, error)
	ListAllPresets(ctx context.Context) ([]*model.Preset, error) // every row, oldest first
	SetVisibility(ctx context.Context, id, callerID string, visibility model.Visibility) (changed bool, err error)
	SoftDeletePreset(ctx context.Context, id, callerID string) error

	// Reaction ledger
	ToggleReaction(ctx context.Context, userID, presetID string, symbol model.Symbol) (*model.ToggleResult, error)
	GetReaction(ctx context.Context, userID, presetID string) (*model.Reaction, error)
	ListAllReactions(ctx context.Context) ([]*model.Reaction, error)

	// Count drift
	FindCountDrift(ctx context.Context) ([]model.CountDrift, error)
	RepairReactionCounts(ctx context.Context, presetID string) (model.ReactionCounts, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, presetID string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
