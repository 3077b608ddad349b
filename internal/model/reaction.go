package model

import (
	"fmt"
	"time"
)

// Symbol is a reaction emoji. Only AllowedSymbols are accepted by the store.
type Symbol string

const (
	SymbolThumbsUp Symbol = "👍"
	SymbolHeart    Symbol = "❤️"
	SymbolLaugh    Symbol = "😂"
	SymbolWow      Symbol = "😮"
	SymbolParty    Symbol = "🎉"
	SymbolFire     Symbol = "🔥"
)

// AllowedSymbols is the closed set of reaction symbols, in display order.
var AllowedSymbols = []Symbol{
	SymbolThumbsUp,
	SymbolHeart,
	SymbolLaugh,
	SymbolWow,
	SymbolParty,
	SymbolFire,
}

// symbolAliases lets CLI users type a name instead of the emoji.
var symbolAliases = map[string]Symbol{
	"+1":       SymbolThumbsUp,
	"thumbsup": SymbolThumbsUp,
	"heart":    SymbolHeart,
	"laugh":    SymbolLaugh,
	"wow":      SymbolWow,
	"party":    SymbolParty,
	"tada":     SymbolParty,
	"fire":     SymbolFire,
}

// String returns the string representation of the symbol.
func (s Symbol) String() string {
	return string(s)
}

// IsValid reports whether s is one of AllowedSymbols.
func (s Symbol) IsValid() bool {
	return s.rank() >= 0
}

func (s Symbol) rank() int {
	for i, a := range AllowedSymbols {
		if a == s {
			return i
		}
	}
	return -1
}

// ParseSymbol accepts an allowed emoji or one of its aliases.
func ParseSymbol(v string) (Symbol, error) {
	if s := Symbol(v); s.IsValid() {
		return s, nil
	}
	if s, ok := symbolAliases[v]; ok {
		return s, nil
	}
	return "", &ValidationError{Errors: []FieldError{{
		Field:   "symbol",
		Message: fmt.Sprintf("unsupported reaction %q", v),
	}}}
}

// Reaction is a single ledger row: the one symbol a user currently has
// active on a preset.
type Reaction struct {
	UserID    string    `json:"user_id"`
	PresetID  string    `json:"preset_id"`
	Symbol    Symbol    `json:"symbol"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToggleOp names the ledger mutation a toggle performs.
type ToggleOp string

const (
	ToggleAdded    ToggleOp = "added"
	ToggleRemoved  ToggleOp = "removed"
	ToggleSwitched ToggleOp = "switched"
)

// ToggleTransition describes a user's reaction before and after a toggle.
// A nil Prev means the user had no reaction; a nil Next means un-react.
type ToggleTransition struct {
	Op   ToggleOp `json:"op"`
	Prev *Symbol  `json:"prev,omitempty"`
	Next *Symbol  `json:"next,omitempty"`
}

// ResolveToggle computes the transition for a user choosing chosen while
// holding current (nil when the user has no reaction).
func ResolveToggle(current *Symbol, chosen Symbol) ToggleTransition {
	next := chosen
	switch {
	case current == nil:
		return ToggleTransition{Op: ToggleAdded, Next: &next}
	case *current == chosen:
		prev := *current
		return ToggleTransition{Op: ToggleRemoved, Prev: &prev}
	default:
		prev := *current
		return ToggleTransition{Op: ToggleSwitched, Prev: &prev, Next: &next}
	}
}

// ToggleResult is returned by the toggle procedure once it commits.
// OwnerID and Visibility describe the preset at the time of the toggle.
type ToggleResult struct {
	PresetID       string           `json:"preset_id"`
	OwnerID        string           `json:"owner_id"`
	Visibility     Visibility       `json:"visibility"`
	Transition     ToggleTransition `json:"transition"`
	ReactionCounts ReactionCounts   `json:"reaction_counts"`
	UserReaction   *Symbol          `json:"user_reaction,omitempty"`
}

// CountDrift records a preset whose stored counts disagree with its ledger.
type CountDrift struct {
	PresetID string         `json:"preset_id"`
	Stored   ReactionCounts `json:"stored"`
	Ledger   ReactionCounts `json:"ledger"`
	Repaired bool           `json:"repaired"`
}

// Equal reports whether two count maps hold the same non-zero entries.
func (c ReactionCounts) Equal(other ReactionCounts) bool {
	for s, n := range c {
		if n != 0 && other[s] != n {
			return false
		}
	}
	for s, n := range other {
		if n != 0 && c[s] != n {
			return false
		}
	}
	return true
}
