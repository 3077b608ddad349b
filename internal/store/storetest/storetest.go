// Package storetest provides an in-memory store.Store for tests of the
// layers above the database. It follows the same visibility, ownership and
// toggle rules as the Postgres store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/store"
)

type reactionKey struct {
	userID, presetID string
}

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	presets   map[string]*model.Preset
	reactions map[reactionKey]*model.Reaction
	events    []*model.Event
	nextEvent int64
	failWith  error
	failOn    map[string]error
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		presets:   make(map[string]*model.Preset),
		reactions: make(map[reactionKey]*model.Reaction),
		failOn:    make(map[string]error),
	}
}

// Fail makes every subsequent call return err wrapped as transient. A nil
// err restores normal operation.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// FailOn makes the named method (e.g. "ToggleReaction") return err until
// cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, method)
		return
	}
	s.failOn[method] = err
}

// Events returns a copy of every recorded event, oldest first.
func (s *Store) Events() []*model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Event(nil), s.events...)
}

// Put inserts or replaces a preset as-is, bypassing validation.
func (s *Store) Put(p *model.Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := p.Clone()
	c.UserReaction = nil
	s.presets[p.ID] = c
}

// SetStoredCounts overwrites the denormalized counts without touching the
// ledger, producing drift.
func (s *Store) SetStoredCounts(presetID string, counts model.ReactionCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.presets[presetID]; ok {
		p.ReactionCounts = counts.Clone()
	}
}

// check must be called with mu held.
func (s *Store) check(method string) error {
	if err, ok := s.failOn[method]; ok {
		return err
	}
	if s.failWith != nil {
		return model.Transient(s.failWith)
	}
	return nil
}

func (s *Store) annotate(p *model.Preset, viewerID string) *model.Preset {
	c := p.Clone()
	c.UserReaction = nil
	if viewerID != "" {
		if r, ok := s.reactions[reactionKey{viewerID, p.ID}]; ok {
			sym := r.Symbol
			c.UserReaction = &sym
		}
	}
	return c
}

func (s *Store) CreatePreset(_ context.Context, preset *model.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("CreatePreset"); err != nil {
		return err
	}
	if _, ok := s.presets[preset.ID]; ok {
		return fmt.Errorf("create preset: duplicate id %q", preset.ID)
	}
	if preset.ReactionCounts == nil {
		preset.ReactionCounts = model.ReactionCounts{}
	}
	s.presets[preset.ID] = s.annotate(preset, "")
	return nil
}

func (s *Store) GetPreset(_ context.Context, id, viewerID string) (*model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("GetPreset"); err != nil {
		return nil, err
	}
	p, ok := s.presets[id]
	if !ok {
		return nil, fmt.Errorf("get preset %s: %w", id, model.ErrNotFound)
	}
	return s.annotate(p, viewerID), nil
}

func (s *Store) ListPresets(_ context.Context, filter model.PresetFilter) ([]*model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("ListPresets"); err != nil {
		return nil, err
	}

	var matched []*model.Preset
	for _, p := range s.presets {
		if p.IsDeleted() || p.ToolID != filter.ToolID {
			continue
		}
		switch filter.Scope {
		case model.ScopeOwned:
			if p.OwnerID != filter.OwnerID {
				continue
			}
		case model.ScopePublic:
			if !p.IsPublic() {
				continue
			}
		default:
			return nil, fmt.Errorf("list presets: unknown scope %q", filter.Scope)
		}
		if c := filter.After; c != nil {
			if p.CreatedAt.After(c.CreatedAt) || (p.CreatedAt.Equal(c.CreatedAt) && p.ID >= c.ID) {
				continue
			}
		}
		matched = append(matched, p)
	}
	sortNewestFirst(matched)

	start := min(filter.Offset(), len(matched))
	end := min(start+filter.Limit(), len(matched))

	out := make([]*model.Preset, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, s.annotate(p, filter.ViewerID))
	}
	return out, nil
}

func sortNewestFirst(presets []*model.Preset) {
	sort.Slice(presets, func(i, j int) bool {
		a, b := presets[i], presets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (s *Store) ListAllPresets(_ context.Context) ([]*model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("ListAllPresets"); err != nil {
		return nil, err
	}
	out := make([]*model.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, s.annotate(p, ""))
	}
	sortNewestFirst(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ownedLive returns the preset for an owner-only mutation. Must be called
// with mu held.
func (s *Store) ownedLive(id, callerID string) (*model.Preset, error) {
	p, ok := s.presets[id]
	if !ok || p.IsDeleted() {
		return nil, fmt.Errorf("preset %s: %w", id, model.ErrNotFound)
	}
	if p.OwnerID != callerID {
		if p.Visibility != model.VisibilityPublic {
			return nil, fmt.Errorf("preset %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("preset %s: %w", id, model.ErrPermissionDenied)
	}
	return p, nil
}

func (s *Store) SetVisibility(_ context.Context, id, callerID string, visibility model.Visibility) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("SetVisibility"); err != nil {
		return false, err
	}
	p, err := s.ownedLive(id, callerID)
	if err != nil {
		return false, err
	}
	if p.Visibility == visibility {
		return false, nil
	}
	p.Visibility = visibility
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) SoftDeletePreset(_ context.Context, id, callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("SoftDeletePreset"); err != nil {
		return err
	}
	p, err := s.ownedLive(id, callerID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

func (s *Store) ToggleReaction(_ context.Context, userID, presetID string, symbol model.Symbol) (*model.ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("ToggleReaction"); err != nil {
		return nil, err
	}

	p, ok := s.presets[presetID]
	if !ok || p.IsDeleted() || (!p.IsPublic() && p.OwnerID != userID) {
		return nil, fmt.Errorf("toggle reaction on %s: %w", presetID, model.ErrNotFound)
	}

	key := reactionKey{userID, presetID}
	var current *model.Symbol
	if r, ok := s.reactions[key]; ok {
		sym := r.Symbol
		current = &sym
	}

	t := model.ResolveToggle(current, symbol)
	if t.Next == nil {
		delete(s.reactions, key)
	} else {
		s.reactions[key] = &model.Reaction{
			UserID:    userID,
			PresetID:  presetID,
			Symbol:    *t.Next,
			UpdatedAt: time.Now().UTC(),
		}
	}
	p.ReactionCounts = p.ReactionCounts.Apply(t)

	return &model.ToggleResult{
		PresetID:       presetID,
		OwnerID:        p.OwnerID,
		Visibility:     p.Visibility,
		Transition:     t,
		ReactionCounts: p.ReactionCounts.Clone(),
		UserReaction:   t.Next,
	}, nil
}

func (s *Store) GetReaction(_ context.Context, userID, presetID string) (*model.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("GetReaction"); err != nil {
		return nil, err
	}
	r, ok := s.reactions[reactionKey{userID, presetID}]
	if !ok {
		return nil, fmt.Errorf("get reaction: %w", model.ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (s *Store) ListAllReactions(_ context.Context) ([]*model.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("ListAllReactions"); err != nil {
		return nil, err
	}
	out := make([]*model.Reaction, 0, len(s.reactions))
	for _, r := range s.reactions {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PresetID != out[j].PresetID {
			return out[i].PresetID < out[j].PresetID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// ledger must be called with mu held.
func (s *Store) ledger(presetID string) model.ReactionCounts {
	counts := model.ReactionCounts{}
	for k, r := range s.reactions {
		if k.presetID == presetID {
			counts[r.Symbol]++
		}
	}
	return counts
}

func (s *Store) FindCountDrift(_ context.Context) ([]model.CountDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("FindCountDrift"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.presets))
	for id := range s.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	drift := []model.CountDrift{}
	for _, id := range ids {
		stored := s.presets[id].ReactionCounts
		ledger := s.ledger(id)
		if !stored.Equal(ledger) {
			drift = append(drift, model.CountDrift{PresetID: id, Stored: stored.Clone(), Ledger: ledger})
		}
	}
	return drift, nil
}

func (s *Store) RepairReactionCounts(_ context.Context, presetID string) (model.ReactionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("RepairReactionCounts"); err != nil {
		return nil, err
	}
	p, ok := s.presets[presetID]
	if !ok {
		return nil, fmt.Errorf("repair %s: %w", presetID, model.ErrNotFound)
	}
	p.ReactionCounts = s.ledger(presetID)
	return p.ReactionCounts.Clone(), nil
}

func (s *Store) RecordEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("RecordEvent"); err != nil {
		return err
	}
	s.nextEvent++
	event.ID = s.nextEvent
	event.CreatedAt = time.Now().UTC()
	c := *event
	s.events = append(s.events, &c)
	return nil
}

func (s *Store) GetEvents(_ context.Context, presetID string) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("GetEvents"); err != nil {
		return nil, err
	}
	out := []*model.Event{}
	for _, e := range s.events {
		if e.PresetID == presetID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// RunInTransaction runs fn against the store and restores the previous
// state when fn fails. Transactions are serialized with each other.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	presets := make(map[string]*model.Preset, len(s.presets))
	for id, p := range s.presets {
		presets[id] = p.Clone()
	}
	reactions := make(map[reactionKey]*model.Reaction, len(s.reactions))
	for k, r := range s.reactions {
		c := *r
		reactions[k] = &c
	}
	nEvents, nextEvent := len(s.events), s.nextEvent
	s.mu.Unlock()

	err := fn(s)
	if err != nil {
		s.mu.Lock()
		s.presets, s.reactions = presets, reactions
		s.events, s.nextEvent = s.events[:nEvents], nextEvent
		s.mu.Unlock()
	}
	return err
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ErrClosed can be passed to Fail to simulate a dropped connection.
var ErrClosed = errors.New("connection closed")
