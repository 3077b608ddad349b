// Package events defines the preset event topics and the publishers and
// subscribers that carry them over NATS.
package events

import (
	"context"

	"github.com/alfredjeanlab/presets/internal/model"
)

// Event topic constants
const (
	TopicPresetCreated           = "presets.preset.created"
	TopicPresetVisibilityChanged = "presets.preset.visibility_changed"
	TopicPresetDeleted           = "presets.preset.deleted"
	TopicReactionToggled         = "presets.reaction.toggled"
	TopicCountsRepaired          = "presets.reaction.repaired"

	// TopicAll matches every preset event.
	TopicAll = "presets.>"
)

// Event types

type PresetCreated struct {
	Preset *model.Preset `json:"preset"`
}

type PresetVisibilityChanged struct {
	PresetID   string           `json:"preset_id"`
	ToolID     string           `json:"tool_id,omitempty"`
	Visibility model.Visibility `json:"visibility"`
}

type PresetDeleted struct {
	PresetID string `json:"preset_id"`
	ToolID   string `json:"tool_id,omitempty"`
}

type ReactionToggled struct {
	PresetID       string                 `json:"preset_id"`
	UserID         string                 `json:"user_id"`
	Transition     model.ToggleTransition `json:"transition"`
	ReactionCounts model.ReactionCounts   `json:"reaction_counts"`
}

// CountsRepaired is published when the reconcile job rewrites a preset's
// stored counts from its ledger.
type CountsRepaired struct {
	PresetID string               `json:"preset_id"`
	Stored   model.ReactionCounts `json:"stored"`
	Ledger   model.ReactionCounts `json:"ledger"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
