package model

import (
	"sort"
	"time"
)

// Visibility controls who can list and load a preset.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// String returns the string representation of the visibility.
func (v Visibility) String() string {
	return string(v)
}

// IsValid checks whether the visibility is a known value.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic:
		return true
	}
	return false
}

// VisibilityFromPublic maps the boundary's isPublic flag onto a Visibility.
func VisibilityFromPublic(isPublic bool) Visibility {
	if isPublic {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

// Preset is a named, saved configuration document for a tool, owned by one user.
type Preset struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	ToolID         string         `json:"tool_id"`
	Name           string         `json:"name"`
	Parameters     Document       `json:"parameters"`
	Visibility     Visibility     `json:"visibility"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
	ReactionCounts ReactionCounts `json:"reaction_counts"`

	// UserReaction is the viewer's own active reaction, populated only when a
	// listing or lookup is made on behalf of a viewer.
	UserReaction *Symbol `json:"user_reaction,omitempty"`
}

// IsPublic reports whether the preset is listed publicly.
func (p *Preset) IsPublic() bool {
	return p.Visibility == VisibilityPublic
}

// IsDeleted reports whether the preset has been soft-deleted.
func (p *Preset) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Clone returns a deep copy of p. Parameters are immutable and shared.
func (p *Preset) Clone() *Preset {
	if p == nil {
		return nil
	}
	c := *p
	c.ReactionCounts = p.ReactionCounts.Clone()
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	if p.UserReaction != nil {
		s := *p.UserReaction
		c.UserReaction = &s
	}
	return &c
}

// ReactionCounts is the denormalized per-symbol count of ledger rows for a preset.
// Symbols with a zero count are absent from the map.
type ReactionCounts map[Symbol]int

// Clone returns a copy of the counts; a nil map clones to an empty one.
func (c ReactionCounts) Clone() ReactionCounts {
	out := make(ReactionCounts, len(c))
	for s, n := range c {
		out[s] = n
	}
	return out
}

// Get returns the count for s, zero when absent.
func (c ReactionCounts) Get(s Symbol) int {
	return c[s]
}

// Apply returns a new map with the toggle transition applied: the previous
// symbol (if any) is decremented, floored at zero, and the next symbol (if
// any) is incremented. The receiver is not modified.
func (c ReactionCounts) Apply(t ToggleTransition) ReactionCounts {
	out := c.Clone()
	if t.Prev != nil {
		if n := out[*t.Prev] - 1; n > 0 {
			out[*t.Prev] = n
		} else {
			delete(out, *t.Prev)
		}
	}
	if t.Next != nil {
		out[*t.Next]++
	}
	return out
}

// Total returns the sum of all counts.
func (c ReactionCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Symbols returns the symbols with a non-zero count in AllowedSymbols order.
func (c ReactionCounts) Symbols() []Symbol {
	out := make([]Symbol, 0, len(c))
	for s, n := range c {
		if n > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank() < out[j].rank() })
	return out
}
