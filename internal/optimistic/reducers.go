package optimistic

import (
	"github.com/alfredjeanlab/presets/internal/model"
)

// The reducers below never mutate their inputs: each returns a new slice
// (or a cloned preset) so a caller holding an earlier view keeps it intact.

// snapshot is an item as it was immediately before an optimistic apply.
// A nil item means the id was absent (an optimistic insert).
type snapshot struct {
	id    string
	index int
	item  *model.Preset
	gen   uint64
}

func indexOf(items []*model.Preset, id string) int {
	for i, p := range items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func capture(items []*model.Preset, id string) snapshot {
	i := indexOf(items, id)
	if i < 0 {
		return snapshot{id: id, index: -1}
	}
	return snapshot{id: id, index: i, item: items[i].Clone()}
}

func insertFirst(items []*model.Preset, p *model.Preset) []*model.Preset {
	out := make([]*model.Preset, 0, len(items)+1)
	out = append(out, p)
	return append(out, items...)
}

// replaceItem swaps the item with the given id for p, keeping its position.
// Items with other ids are shared, not copied.
func replaceItem(items []*model.Preset, id string, p *model.Preset) []*model.Preset {
	i := indexOf(items, id)
	if i < 0 {
		return items
	}
	out := make([]*model.Preset, len(items))
	copy(out, items)
	out[i] = p
	return out
}

// adoptSaved puts the server's copy of a saved preset where its placeholder
// was, or at the top if the placeholder is gone. A copy already loaded from
// the server is replaced rather than duplicated.
func adoptSaved(items []*model.Preset, placeholderID string, saved *model.Preset) []*model.Preset {
	if indexOf(items, placeholderID) >= 0 {
		return replaceItem(removeItem(items, saved.ID), placeholderID, saved)
	}
	if indexOf(items, saved.ID) >= 0 {
		return replaceItem(items, saved.ID, saved)
	}
	return insertFirst(items, saved)
}

func removeItem(items []*model.Preset, id string) []*model.Preset {
	i := indexOf(items, id)
	if i < 0 {
		return items
	}
	out := make([]*model.Preset, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// restore puts the snapshotted item back: removed items are reinserted at
// their old position (clamped), changed ones are replaced, and optimistic
// inserts are dropped.
func restore(items []*model.Preset, s snapshot) []*model.Preset {
	if s.item == nil {
		return removeItem(items, s.id)
	}
	if indexOf(items, s.id) >= 0 {
		return replaceItem(items, s.id, s.item)
	}
	at := min(max(s.index, 0), len(items))
	out := make([]*model.Preset, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, s.item)
	return append(out, items[at:]...)
}

func withVisibility(p *model.Preset, v model.Visibility) *model.Preset {
	c := p.Clone()
	c.Visibility = v
	return c
}

// withToggle applies the same transition the server's toggle procedure will
// perform, using the viewer's currently known reaction.
func withToggle(p *model.Preset, chosen model.Symbol) *model.Preset {
	c := p.Clone()
	t := model.ResolveToggle(c.UserReaction, chosen)
	c.ReactionCounts = c.ReactionCounts.Apply(t)
	c.UserReaction = t.Next
	return c
}

// withToggleResult adopts the server's authoritative counts and reaction.
func withToggleResult(p *model.Preset, r *model.ToggleResult) *model.Preset {
	c := p.Clone()
	c.ReactionCounts = r.ReactionCounts.Clone()
	if r.UserReaction != nil {
		s := *r.UserReaction
		c.UserReaction = &s
	} else {
		c.UserReaction = nil
	}
	return c
}
