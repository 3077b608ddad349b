package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/presets/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	PresetCount   int       `json:"preset_count"`
	DeletedCount  int       `json:"deleted_count"`
	ReactionCount int       `json:"reaction_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every preset (public, private and soft-deleted) followed
// by the reaction ledger as JSONL to w. Presets are sorted by ID; reactions
// by preset then user.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	presets, err := s.ListAllPresets(ctx)
	if err != nil {
		return fmt.Errorf("list presets: %w", err)
	}
	sort.Slice(presets, func(i, j int) bool {
		return presets[i].ID < presets[j].ID
	})

	reactions, err := s.ListAllReactions(ctx)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}

	deleted := 0
	for _, p := range presets {
		p.UserReaction = nil
		if p.IsDeleted() {
			deleted++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		PresetCount:   len(presets),
		DeletedCount:  deleted,
		ReactionCount: len(reactions),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, p := range presets {
		if err := enc.Encode(record{Type: "preset", Data: p}); err != nil {
			return fmt.Errorf("encode preset %s: %w", p.ID, err)
		}
	}

	for _, r := range reactions {
		if err := enc.Encode(record{Type: "reaction", Data: r}); err != nil {
			return fmt.Errorf("encode reaction %s/%s: %w", r.PresetID, r.UserID, err)
		}
	}

	return nil
}
