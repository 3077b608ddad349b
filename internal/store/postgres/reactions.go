package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/presets/internal/model"
)

// queryToggleReaction runs the toggle procedure. It must run inside a
// transaction: the preset row lock serializes concurrent toggles on the same
// preset, and the (user_id, preset_id) primary key keeps one ledger row per
// user. A private preset is treated as missing for everyone but its owner.
func queryToggleReaction(ctx context.Context, db executor, userID, presetID string, symbol model.Symbol) (*model.ToggleResult, error) {
	var (
		ownerID  string
		isPublic bool
		raw      []byte
	)
	err := db.QueryRowContext(ctx, `
		SELECT owner_id, is_public, reaction_counts FROM presets
		WHERE id = $1 AND NOT is_deleted
		FOR UPDATE`,
		presetID,
	).Scan(&ownerID, &isPublic, &raw)
	if err != nil {
		return nil, dbError(err, "toggle reaction")
	}
	if !isPublic && ownerID != userID {
		return nil, fmt.Errorf("toggle reaction: %w", model.ErrNotFound)
	}
	stored, err := decodeCounts(raw)
	if err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}

	current, err := currentReaction(ctx, db, userID, presetID)
	if err != nil {
		return nil, err
	}

	transition := model.ResolveToggle(current, symbol)
	switch transition.Op {
	case model.ToggleRemoved:
		_, err = db.ExecContext(ctx, `
			DELETE FROM preset_reactions WHERE user_id = $1 AND preset_id = $2`,
			userID, presetID,
		)
	default:
		_, err = db.ExecContext(ctx, `
			INSERT INTO preset_reactions (user_id, preset_id, reaction, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (user_id, preset_id)
			DO UPDATE SET reaction = EXCLUDED.reaction, updated_at = EXCLUDED.updated_at`,
			userID, presetID, string(*transition.Next),
		)
	}
	if err != nil {
		return nil, dbError(err, "toggle reaction: write ledger")
	}

	counts := stored.Apply(transition)
	if _, err := db.ExecContext(ctx, `
		UPDATE presets SET reaction_counts = $2 WHERE id = $1`,
		presetID, encodeCounts(counts),
	); err != nil {
		return nil, dbError(err, "toggle reaction: write counts")
	}

	return &model.ToggleResult{
		PresetID:       presetID,
		OwnerID:        ownerID,
		Visibility:     model.VisibilityFromPublic(isPublic),
		Transition:     transition,
		ReactionCounts: counts,
		UserReaction:   transition.Next,
	}, nil
}

// currentReaction returns the user's active symbol on the preset, or nil.
func currentReaction(ctx context.Context, db executor, userID, presetID string) (*model.Symbol, error) {
	var reaction string
	err := db.QueryRowContext(ctx, `
		SELECT reaction FROM preset_reactions
		WHERE user_id = $1 AND preset_id = $2`,
		userID, presetID,
	).Scan(&reaction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "toggle reaction: read ledger")
	}
	s := model.Symbol(reaction)
	return &s, nil
}

func queryGetReaction(ctx context.Context, db executor, userID, presetID string) (*model.Reaction, error) {
	row := db.QueryRowContext(ctx, `
		SELECT user_id, preset_id, reaction, updated_at FROM preset_reactions
		WHERE user_id = $1 AND preset_id = $2`,
		userID, presetID,
	)
	r, err := scanReaction(row)
	if err != nil {
		return nil, dbError(err, "get reaction")
	}
	return r, nil
}

func queryListAllReactions(ctx context.Context, db executor) ([]*model.Reaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, preset_id, reaction, updated_at FROM preset_reactions
		ORDER BY preset_id, user_id`)
	if err != nil {
		return nil, dbError(err, "list all reactions")
	}
	defer rows.Close()

	reactions := []*model.Reaction{}
	for rows.Next() {
		r, err := scanReaction(rows)
		if err != nil {
			return nil, dbError(err, "list all reactions")
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "list all reactions")
	}
	return reactions, nil
}

// queryFindCountDrift compares every preset's stored counts with a fresh
// aggregate of its ledger rows and returns the presets that disagree.
// It takes no locks; a row reported here may be fixed by a concurrent toggle
// before it is repaired.
func queryFindCountDrift(ctx context.Context, db executor) ([]model.CountDrift, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.reaction_counts, COALESCE(l.counts, '{}'::jsonb)
		FROM presets p
		LEFT JOIN (
			SELECT preset_id, jsonb_object_agg(reaction, n) AS counts
			FROM (
				SELECT preset_id, reaction, COUNT(*) AS n
				FROM preset_reactions
				GROUP BY preset_id, reaction
			) c
			GROUP BY preset_id
		) l ON l.preset_id = p.id
		WHERE p.reaction_counts <> COALESCE(l.counts, '{}'::jsonb)
		ORDER BY p.id`)
	if err != nil {
		return nil, dbError(err, "find count drift")
	}
	defer rows.Close()

	drift := []model.CountDrift{}
	for rows.Next() {
		var (
			id             string
			stored, ledger []byte
		)
		if err := rows.Scan(&id, &stored, &ledger); err != nil {
			return nil, dbError(err, "find count drift")
		}
		d := model.CountDrift{PresetID: id}
		if d.Stored, err = decodeCounts(stored); err != nil {
			return nil, fmt.Errorf("find count drift: %s: %w", id, err)
		}
		if d.Ledger, err = decodeCounts(ledger); err != nil {
			return nil, fmt.Errorf("find count drift: %s: %w", id, err)
		}
		// Zero-valued keys compare unequal in JSONB but are not drift.
		if d.Stored.Equal(d.Ledger) {
			continue
		}
		drift = append(drift, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "find count drift")
	}
	return drift, nil
}

// queryRepairReactionCounts must run inside a transaction. It takes the same
// row lock as the toggle procedure, recounts the ledger, and overwrites the
// stored counts. Soft-deleted presets are repaired too.
func queryRepairReactionCounts(ctx context.Context, db executor, presetID string) (model.ReactionCounts, error) {
	var id string
	err := db.QueryRowContext(ctx, `
		SELECT id FROM presets WHERE id = $1 FOR UPDATE`,
		presetID,
	).Scan(&id)
	if err != nil {
		return nil, dbError(err, "repair counts")
	}

	counts, err := ledgerCounts(ctx, db, presetID)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE presets SET reaction_counts = $2 WHERE id = $1`,
		presetID, encodeCounts(counts),
	); err != nil {
		return nil, dbError(err, "repair counts")
	}
	return counts, nil
}

// ledgerCounts aggregates the ledger rows of one preset.
func ledgerCounts(ctx context.Context, db executor, presetID string) (model.ReactionCounts, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT reaction, COUNT(*) FROM preset_reactions
		WHERE preset_id = $1
		GROUP BY reaction`,
		presetID,
	)
	if err != nil {
		return nil, dbError(err, "count ledger")
	}
	defer rows.Close()

	counts := model.ReactionCounts{}
	for rows.Next() {
		var (
			reaction string
			n        int
		)
		if err := rows.Scan(&reaction, &n); err != nil {
			return nil, dbError(err, "count ledger")
		}
		counts[model.Symbol(reaction)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "count ledger")
	}
	return counts, nil
}
