package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/presets/internal/model"
)

// presetColumns is the column list used for SELECT statements on the presets
// table, aliased as p. The viewer's reaction is appended by the caller.
const presetColumns = `p.id, p.owner_id, p.tool_id, p.name, p.parameters,
	p.is_public, p.deleted_at, p.created_at, p.updated_at, p.reaction_counts`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dbError maps driver errors onto the model taxonomy: missing rows become
// model.ErrNotFound, everything else is a transient storage failure.
func dbError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	return model.Transient(fmt.Errorf("%s: %w", op, err))
}

func queryCreatePreset(ctx context.Context, db executor, p *model.Preset) error {
	params, err := documentBytes(p.Parameters)
	if err != nil {
		return err
	}
	if p.ReactionCounts == nil {
		p.ReactionCounts = model.ReactionCounts{}
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO presets (
			id, owner_id, tool_id, name, parameters, is_public,
			created_at, updated_at, reaction_counts
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, '{}'::jsonb
		)`,
		p.ID,
		p.OwnerID,
		p.ToolID,
		p.Name,
		params,
		p.IsPublic(),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return dbError(err, "create preset")
}

// viewerJoin returns the select expression and join clause that annotate each
// row with the viewer's own reaction. Without a viewer the column is NULL.
func viewerJoin(viewerPlaceholder string) (string, string) {
	if viewerPlaceholder == "" {
		return "NULL::text AS user_reaction", ""
	}
	return "r.reaction AS user_reaction",
		" LEFT JOIN preset_reactions r ON r.preset_id = p.id AND r.user_id = " + viewerPlaceholder
}

func queryGetPreset(ctx context.Context, db executor, id, viewerID string) (*model.Preset, error) {
	args := []any{id}
	placeholder := ""
	if viewerID != "" {
		args = append(args, viewerID)
		placeholder = "$2"
	}
	sel, join := viewerJoin(placeholder)

	row := db.QueryRowContext(ctx,
		`SELECT `+presetColumns+`, `+sel+` FROM presets p`+join+` WHERE p.id = $1`,
		args...,
	)
	p, err := scanPreset(row)
	if err != nil {
		return nil, dbError(err, "get preset")
	}
	return p, nil
}

// queryListPresets returns one page of non-deleted presets ordered by
// created_at DESC, id DESC. Offset paging may duplicate or skip rows near the
// page boundary when rows are written concurrently; a seek cursor (After)
// does not.
func queryListPresets(ctx context.Context, db executor, filter model.PresetFilter) ([]*model.Preset, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	viewerPlaceholder := ""
	if filter.ViewerID != "" {
		viewerPlaceholder = nextArg()
		args = append(args, filter.ViewerID)
	}
	sel, join := viewerJoin(viewerPlaceholder)

	whereClauses = append(whereClauses, "NOT p.is_deleted")

	whereClauses = append(whereClauses, "p.tool_id = "+nextArg())
	args = append(args, filter.ToolID)

	switch filter.Scope {
	case model.ScopeOwned:
		whereClauses = append(whereClauses, "p.owner_id = "+nextArg())
		args = append(args, filter.OwnerID)
	case model.ScopePublic:
		whereClauses = append(whereClauses, "p.is_public")
	default:
		return nil, fmt.Errorf("list presets: unknown scope %q", filter.Scope)
	}

	if filter.After != nil {
		cp := nextArg()
		ip := nextArg()
		whereClauses = append(whereClauses, fmt.Sprintf("(p.created_at, p.id) < (%s, %s)", cp, ip))
		args = append(args, filter.After.CreatedAt, filter.After.ID)
	}

	query := "SELECT " + presetColumns + ", " + sel + " FROM presets p" + join +
		" WHERE " + strings.Join(whereClauses, " AND ") +
		" ORDER BY p.created_at DESC, p.id DESC LIMIT " + nextArg()
	args = append(args, filter.Limit())

	if offset := filter.Offset(); offset > 0 {
		query += " OFFSET " + nextArg()
		args = append(args, offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "list presets")
	}
	return collectPresets(rows, "list presets")
}

func queryListAllPresets(ctx context.Context, db executor) ([]*model.Preset, error) {
	sel, _ := viewerJoin("")
	rows, err := db.QueryContext(ctx,
		`SELECT `+presetColumns+`, `+sel+` FROM presets p ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, dbError(err, "list all presets")
	}
	return collectPresets(rows, "list all presets")
}

func collectPresets(rows *sql.Rows, op string) ([]*model.Preset, error) {
	defer rows.Close()

	presets := []*model.Preset{}
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, dbError(err, op)
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, op)
	}
	return presets, nil
}

// lockPresetForOwner locks the preset row and checks it is live and owned by
// callerID. Missing, soft-deleted and other users' private rows are all
// reported as not found.
func lockPresetForOwner(ctx context.Context, db executor, id, callerID string) (isPublic bool, err error) {
	var (
		ownerID   string
		isDeleted bool
	)
	err = db.QueryRowContext(ctx, `
		SELECT owner_id, is_public, is_deleted FROM presets
		WHERE id = $1
		FOR UPDATE`,
		id,
	).Scan(&ownerID, &isPublic, &isDeleted)
	if err != nil {
		return false, dbError(err, "lock preset")
	}
	if isDeleted {
		return false, fmt.Errorf("lock preset: %w", model.ErrNotFound)
	}
	if ownerID != callerID {
		if !isPublic {
			return false, fmt.Errorf("lock preset: %w", model.ErrNotFound)
		}
		return false, model.ErrPermissionDenied
	}
	return isPublic, nil
}

// querySetVisibility must run inside a transaction. It reports whether the
// stored value changed; setting the current value again is a no-op.
func querySetVisibility(ctx context.Context, db executor, id, callerID string, visibility model.Visibility) (bool, error) {
	isPublic, err := lockPresetForOwner(ctx, db, id, callerID)
	if err != nil {
		return false, err
	}
	want := visibility == model.VisibilityPublic
	if isPublic == want {
		return false, nil
	}

	_, err = db.ExecContext(ctx, `
		UPDATE presets SET is_public = $2, updated_at = NOW()
		WHERE id = $1`,
		id, want,
	)
	if err != nil {
		return false, dbError(err, "set visibility")
	}
	return true, nil
}

// querySoftDeletePreset must run inside a transaction. Ledger rows are kept.
func querySoftDeletePreset(ctx context.Context, db executor, id, callerID string) error {
	if _, err := lockPresetForOwner(ctx, db, id, callerID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		UPDATE presets SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		id,
	)
	return dbError(err, "soft delete preset")
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return dbError(db.QueryRowContext(ctx, `
		INSERT INTO preset_events (topic, preset_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic,
		e.PresetID,
		e.Actor,
		[]byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt), "record event")
}

func queryGetEvents(ctx context.Context, db executor, presetID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, preset_id, actor, payload, created_at
		FROM preset_events
		WHERE preset_id = $1
		ORDER BY id`,
		presetID,
	)
	if err != nil {
		return nil, dbError(err, "get events")
	}
	defer rows.Close()

	events := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, dbError(err, "get events")
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "get events")
	}
	return events, nil
}
