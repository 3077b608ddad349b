// Package optimistic keeps a client-side view of presets in step with the
// server. Every mutation is applied to the local list synchronously, sent
// to the server in the background, and then either reconciled with the
// server's answer or reverted to the item's prior state with a Notice.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/presets/internal/client"
	"github.com/alfredjeanlab/presets/internal/idgen"
	"github.com/alfredjeanlab/presets/internal/model"
)

// DefaultTimeout bounds every server call. A call that has not answered by
// then is treated as failed.
const DefaultTimeout = 10 * time.Second

var (
	// ErrBusy is returned when a mutation targets an item whose previous
	// mutation is still in flight.
	ErrBusy = errors.New("a change to this preset is still in progress")

	// ErrUnknownItem is returned when a mutation targets an id the list does
	// not hold.
	ErrUnknownItem = errors.New("preset is not in this list")
)

// Backend is the subset of client.PresetsClient the list dispatches to.
type Backend interface {
	SavePreset(ctx context.Context, req *client.SavePresetRequest) (*model.Preset, error)
	SetVisibility(ctx context.Context, id string, isPublic bool) (*client.VisibilityResult, error)
	DeletePreset(ctx context.Context, id string) error
	ToggleReaction(ctx context.Context, presetID string, symbol model.Symbol) (*model.ToggleResult, error)
}

// Action names the kind of mutation.
type Action string

const (
	ActionSave           Action = "save"
	ActionDelete         Action = "delete"
	ActionSetVisibility  Action = "set_visibility"
	ActionToggleReaction Action = "toggle_reaction"
)

// Phase is the per-item state. An item goes Idle -> Applied when mutated
// and back to Idle when the server answers, whether or not it was reverted.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseApplied Phase = "applied"
)

// Notice is a user-visible report of a reverted mutation.
type Notice struct {
	Action   Action
	PresetID string
	Err      error
}

// Message renders the notice for display.
func (n Notice) Message() string {
	verb := strings.ReplaceAll(string(n.Action), "_", " ")
	switch {
	case errors.Is(n.Err, model.ErrTransient):
		return fmt.Sprintf("Could not %s: the server did not respond. Your change was undone.", verb)
	case errors.Is(n.Err, model.ErrPermissionDenied):
		return fmt.Sprintf("Could not %s: only the owner can do that.", verb)
	case errors.Is(n.Err, model.ErrNotFound):
		return fmt.Sprintf("Could not %s: the preset no longer exists.", verb)
	case errors.Is(n.Err, model.ErrRateLimited):
		return fmt.Sprintf("Could not %s: too many reactions, try again shortly.", verb)
	}
	return fmt.Sprintf("Could not %s: %v", verb, n.Err)
}

// Pending tracks one dispatched mutation.
type Pending struct {
	done        chan struct{}
	placeholder string
	id          string
	err         error
}

// Done is closed once the server has answered and the list is reconciled
// or reverted.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the mutation settles and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// ID is the item's id. For a save it is the placeholder until the call
// settles and the server-assigned id afterwards (unless it failed).
func (p *Pending) ID() string {
	select {
	case <-p.done:
		return p.id
	default:
		return p.placeholder
	}
}

// Option configures a List.
type Option func(*List)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(l *List) { l.timeout = d }
}

// WithNotice registers the callback that surfaces reverted mutations. It is
// called outside the list's lock.
func WithNotice(fn func(Notice)) Option {
	return func(l *List) { l.onNotice = fn }
}

// WithChange registers a callback invoked with the new items after every
// optimistic apply, reconcile and revert.
func WithChange(fn func([]*model.Preset)) Option {
	return func(l *List) { l.onChange = fn }
}

// WithOwner sets the owner id stamped on optimistically inserted presets.
func WithOwner(userID string) Option {
	return func(l *List) { l.ownerID = userID }
}

// List is an owned, concurrency-safe container for one rendered list of
// presets (e.g. "my presets for this tool" or "public presets").
type List struct {
	backend  Backend
	timeout  time.Duration
	ownerID  string
	onNotice func(Notice)
	onChange func([]*model.Preset)
	now      func() time.Time

	mu       sync.Mutex
	items    []*model.Preset
	inflight map[string]bool
	// gen counts Loads. Snapshots from an earlier generation are stale and
	// are not restored over freshly loaded items.
	gen uint64
}

// NewList creates an empty list dispatching to b.
func NewList(b Backend, opts ...Option) *List {
	l := &List{
		backend:  b,
		timeout:  DefaultTimeout,
		now:      time.Now,
		inflight: make(map[string]bool),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load replaces the list contents, e.g. after fetching the first page.
// Placeholders of saves still in flight stay at the top. Mutations in
// flight settle against the loaded items: on success their outcome is
// applied, on failure the loaded item is left as the server returned it.
func (l *List) Load(items []*model.Preset) {
	l.mu.Lock()
	l.gen++
	var out []*model.Preset
	for _, p := range l.items {
		if l.inflight[p.ID] && idgen.IsPlaceholder(p.ID) {
			out = append(out, p)
		}
	}
	for _, p := range items {
		if indexOf(out, p.ID) < 0 {
			out = append(out, p.Clone())
		}
	}
	l.items = out
	l.mu.Unlock()
	l.changed(out)
}

// Append adds a further page, skipping ids already present (offset paging
// may repeat an item across a page boundary).
func (l *List) Append(page []*model.Preset) {
	l.update(func(items []*model.Preset) []*model.Preset {
		out := make([]*model.Preset, len(items), len(items)+len(page))
		copy(out, items)
		for _, p := range page {
			if indexOf(out, p.ID) < 0 {
				out = append(out, p.Clone())
			}
		}
		return out
	})
}

// Items returns a copy of the current items.
func (l *List) Items() []*model.Preset {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneAll(l.items)
}

// Get returns a copy of the item with the given id.
func (l *List) Get(id string) (*model.Preset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := indexOf(l.items, id); i >= 0 {
		return l.items[i].Clone(), true
	}
	return nil, false
}

// Phase reports whether a mutation on id is in flight.
func (l *List) Phase(id string) Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight[id] {
		return PhaseApplied
	}
	return PhaseIdle
}

// Save inserts a placeholder preset at the top of the list and creates it
// on the server. On success the placeholder is replaced by the server's
// preset; on failure it is removed.
func (l *List) Save(ctx context.Context, req *client.SavePresetRequest) *Pending {
	now := l.now().UTC()
	placeholder := &model.Preset{
		ID:             idgen.Placeholder(),
		OwnerID:        l.ownerID,
		ToolID:         req.ToolID,
		Name:           strings.TrimSpace(req.Name),
		Parameters:     req.Parameters,
		Visibility:     model.VisibilityFromPublic(req.IsPublic),
		CreatedAt:      now,
		UpdatedAt:      now,
		ReactionCounts: model.ReactionCounts{},
	}

	l.mu.Lock()
	snap := capture(l.items, placeholder.ID)
	snap.gen = l.gen
	l.items = insertFirst(l.items, placeholder)
	l.inflight[placeholder.ID] = true
	items := l.items
	l.mu.Unlock()
	l.changed(items)

	return l.dispatch(ctx, ActionSave, snap, func(ctx context.Context) (func([]*model.Preset) []*model.Preset, string, error) {
		saved, err := l.backend.SavePreset(ctx, req)
		if err != nil {
			return nil, "", err
		}
		return func(items []*model.Preset) []*model.Preset {
			return adoptSaved(items, placeholder.ID, saved.Clone())
		}, saved.ID, nil
	})
}

// Delete removes the preset from the list and soft-deletes it on the
// server. On failure it reappears where it was.
func (l *List) Delete(ctx context.Context, id string) (*Pending, error) {
	snap, err := l.apply(id, func(items []*model.Preset) []*model.Preset {
		return removeItem(items, id)
	})
	if err != nil {
		return nil, err
	}
	return l.dispatch(ctx, ActionDelete, snap, func(ctx context.Context) (func([]*model.Preset) []*model.Preset, string, error) {
		if err := l.backend.DeletePreset(ctx, id); err != nil {
			return nil, "", err
		}
		return func(items []*model.Preset) []*model.Preset {
			return removeItem(items, id)
		}, id, nil
	}), nil
}

// SetVisibility flips the preset's visibility locally and on the server.
func (l *List) SetVisibility(ctx context.Context, id string, isPublic bool) (*Pending, error) {
	vis := model.VisibilityFromPublic(isPublic)
	snap, err := l.apply(id, func(items []*model.Preset) []*model.Preset {
		return replaceItem(items, id, withVisibility(items[indexOf(items, id)], vis))
	})
	if err != nil {
		return nil, err
	}
	return l.dispatch(ctx, ActionSetVisibility, snap, func(ctx context.Context) (func([]*model.Preset) []*model.Preset, string, error) {
		res, err := l.backend.SetVisibility(ctx, id, isPublic)
		if err != nil {
			return nil, "", err
		}
		return func(items []*model.Preset) []*model.Preset {
			if i := indexOf(items, id); i >= 0 {
				return replaceItem(items, id, withVisibility(items[i], res.Visibility))
			}
			return items
		}, id, nil
	}), nil
}

// ToggleReaction applies the viewer's reaction toggle locally and on the
// server, then adopts the server's counts. The call is never retried.
func (l *List) ToggleReaction(ctx context.Context, id string, symbol model.Symbol) (*Pending, error) {
	symbol, err := model.ParseSymbol(string(symbol))
	if err != nil {
		return nil, err
	}
	snap, err := l.apply(id, func(items []*model.Preset) []*model.Preset {
		return replaceItem(items, id, withToggle(items[indexOf(items, id)], symbol))
	})
	if err != nil {
		return nil, err
	}
	return l.dispatch(ctx, ActionToggleReaction, snap, func(ctx context.Context) (func([]*model.Preset) []*model.Preset, string, error) {
		res, err := l.backend.ToggleReaction(ctx, id, symbol)
		if err != nil {
			return nil, "", err
		}
		return func(items []*model.Preset) []*model.Preset {
			if i := indexOf(items, id); i >= 0 {
				return replaceItem(items, id, withToggleResult(items[i], res))
			}
			return items
		}, id, nil
	}), nil
}

// apply runs the optimistic step for an existing item under the lock and
// marks it in flight.
func (l *List) apply(id string, reduce func([]*model.Preset) []*model.Preset) (snapshot, error) {
	l.mu.Lock()
	if l.inflight[id] {
		l.mu.Unlock()
		return snapshot{}, ErrBusy
	}
	if indexOf(l.items, id) < 0 {
		l.mu.Unlock()
		return snapshot{}, ErrUnknownItem
	}
	snap := capture(l.items, id)
	snap.gen = l.gen
	l.items = reduce(l.items)
	l.inflight[id] = true
	items := l.items
	l.mu.Unlock()

	l.changed(items)
	return snap, nil
}

// call performs the server request. It returns the reconcile reducer (nil
// when nothing needs adopting) and the item's final id.
type call func(ctx context.Context) (func([]*model.Preset) []*model.Preset, string, error)

func (l *List) dispatch(ctx context.Context, action Action, snap snapshot, fn call) *Pending {
	p := &Pending{done: make(chan struct{}), placeholder: snap.id, id: snap.id}
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		reconcile, finalID, err := fn(callCtx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, model.ErrTransient) {
			err = model.Transient(fmt.Errorf("no response within %s: %w", l.timeout, err))
		}

		l.mu.Lock()
		delete(l.inflight, snap.id)
		if err != nil {
			if snap.item == nil || snap.gen == l.gen {
				l.items = restore(l.items, snap)
			}
		} else if reconcile != nil {
			l.items = reconcile(l.items)
		}
		items := l.items
		l.mu.Unlock()

		if err == nil && finalID != "" {
			p.id = finalID
		}
		p.err = err
		l.changed(items)

		if err != nil {
			slog.Warn("optimistic: reverted", "action", action, "preset_id", snap.id, "error", err)
			if l.onNotice != nil {
				l.onNotice(Notice{Action: action, PresetID: snap.id, Err: err})
			}
		}
		close(p.done)
	}()
	return p
}

func (l *List) update(reduce func([]*model.Preset) []*model.Preset) {
	l.mu.Lock()
	l.items = reduce(l.items)
	items := l.items
	l.mu.Unlock()
	l.changed(items)
}

func (l *List) changed(items []*model.Preset) {
	if l.onChange != nil {
		l.onChange(cloneAll(items))
	}
}

func cloneAll(items []*model.Preset) []*model.Preset {
	out := make([]*model.Preset, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}
