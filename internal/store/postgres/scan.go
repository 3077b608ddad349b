package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/presets/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanPreset scans a single row into a model.Preset.
// The row must contain the presetColumns followed by user_reaction.
func scanPreset(row scannable) (*model.Preset, error) {
	var p model.Preset
	var (
		params       []byte
		isPublic     bool
		deletedAt    sql.NullTime
		counts       []byte
		userReaction sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.ToolID,
		&p.Name,
		&params,
		&isPublic,
		&deletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
		&counts,
		&userReaction,
	)
	if err != nil {
		return nil, err
	}

	p.Visibility = model.VisibilityFromPublic(isPublic)
	if p.Parameters, err = model.ParseDocument(params); err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.ID, err)
	}
	if p.ReactionCounts, err = decodeCounts(counts); err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.ID, err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	if userReaction.Valid {
		s := model.Symbol(userReaction.String)
		p.UserReaction = &s
	}

	return &p, nil
}

// scanReaction scans a single ledger row into a model.Reaction.
func scanReaction(row scannable) (*model.Reaction, error) {
	var (
		r        model.Reaction
		reaction string
	)
	if err := row.Scan(&r.UserID, &r.PresetID, &reaction, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Symbol = model.Symbol(reaction)
	return &r, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.PresetID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// documentBytes encodes a parameter document for a JSONB column.
func documentBytes(d model.Document) ([]byte, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return data, nil
}

// decodeCounts parses a reaction_counts JSONB value. NULL and empty input
// yield an empty map.
func decodeCounts(data []byte) (model.ReactionCounts, error) {
	counts := model.ReactionCounts{}
	if len(data) == 0 {
		return counts, nil
	}
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("decode reaction counts: %w", err)
	}
	if counts == nil {
		counts = model.ReactionCounts{}
	}
	return counts, nil
}

// encodeCounts renders counts for a JSONB column, always as an object.
func encodeCounts(c model.ReactionCounts) []byte {
	if len(c) == 0 {
		return []byte("{}")
	}
	data, _ := json.Marshal(c)
	return data
}
