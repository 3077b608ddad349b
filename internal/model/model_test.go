package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestVisibility_IsValid(t *testing.T) {
	for _, tc := range []struct {
		v    Visibility
		want bool
	}{
		{VisibilityPrivate, true},
		{VisibilityPublic, true},
		{Visibility(""), false},
		{Visibility("friends"), false},
	} {
		if got := tc.v.IsValid(); got != tc.want {
			t.Errorf("Visibility(%q).IsValid() = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestVisibilityFromPublic(t *testing.T) {
	if got := VisibilityFromPublic(true); got != VisibilityPublic {
		t.Errorf("VisibilityFromPublic(true) = %q", got)
	}
	if got := VisibilityFromPublic(false); got != VisibilityPrivate {
		t.Errorf("VisibilityFromPublic(false) = %q", got)
	}
}

func TestSymbol_Parse(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Symbol
		wantErr bool
	}{
		{"👍", SymbolThumbsUp, false},
		{"❤️", SymbolHeart, false},
		{"fire", SymbolFire, false},
		{"+1", SymbolThumbsUp, false},
		{"🦄", "", true},
		{"", "", true},
	} {
		got, err := ParseSymbol(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseSymbol(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if err != nil && !IsValidation(err) {
			t.Errorf("ParseSymbol(%q) err = %T, want *ValidationError", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseSymbol(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func sym(s Symbol) *Symbol { return &s }

func TestResolveToggle(t *testing.T) {
	for _, tc := range []struct {
		name    string
		current *Symbol
		chosen  Symbol
		op      ToggleOp
		prev    *Symbol
		next    *Symbol
	}{
		{"NoReaction", nil, SymbolThumbsUp, ToggleAdded, nil, sym(SymbolThumbsUp)},
		{"SameSymbol", sym(SymbolThumbsUp), SymbolThumbsUp, ToggleRemoved, sym(SymbolThumbsUp), nil},
		{"OtherSymbol", sym(SymbolThumbsUp), SymbolHeart, ToggleSwitched, sym(SymbolThumbsUp), sym(SymbolHeart)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveToggle(tc.current, tc.chosen)
			if got.Op != tc.op {
				t.Errorf("op = %q, want %q", got.Op, tc.op)
			}
			if !equalSymPtr(got.Prev, tc.prev) {
				t.Errorf("prev = %v, want %v", got.Prev, tc.prev)
			}
			if !equalSymPtr(got.Next, tc.next) {
				t.Errorf("next = %v, want %v", got.Next, tc.next)
			}
		})
	}
}

func equalSymPtr(a, b *Symbol) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestReactionCounts_Apply(t *testing.T) {
	counts := ReactionCounts{}

	counts = counts.Apply(ResolveToggle(nil, SymbolThumbsUp))
	if counts.Get(SymbolThumbsUp) != 1 {
		t.Fatalf("after add: %v", counts)
	}

	counts = counts.Apply(ResolveToggle(sym(SymbolThumbsUp), SymbolHeart))
	if counts.Get(SymbolThumbsUp) != 0 || counts.Get(SymbolHeart) != 1 {
		t.Fatalf("after switch: %v", counts)
	}
	if _, ok := counts[SymbolThumbsUp]; ok {
		t.Errorf("zero count should be dropped, got %v", counts)
	}

	counts = counts.Apply(ResolveToggle(sym(SymbolHeart), SymbolHeart))
	if len(counts) != 0 {
		t.Fatalf("after remove: %v", counts)
	}
}

func TestReactionCounts_ApplyFloorsAtZero(t *testing.T) {
	counts := ReactionCounts{SymbolFire: 2}
	got := counts.Apply(ResolveToggle(sym(SymbolHeart), SymbolHeart))
	if got.Get(SymbolHeart) != 0 {
		t.Errorf("decrement of absent symbol went negative: %v", got)
	}
	if got.Get(SymbolFire) != 2 {
		t.Errorf("unrelated symbol changed: %v", got)
	}
	if counts.Get(SymbolFire) != 2 || len(counts) != 1 {
		t.Errorf("Apply mutated receiver: %v", counts)
	}
}

func TestReactionCounts_SymbolsOrder(t *testing.T) {
	counts := ReactionCounts{SymbolFire: 1, SymbolThumbsUp: 3, SymbolWow: 0}
	got := counts.Symbols()
	if len(got) != 2 || got[0] != SymbolThumbsUp || got[1] != SymbolFire {
		t.Errorf("Symbols() = %v", got)
	}
	if counts.Total() != 4 {
		t.Errorf("Total() = %d, want 4", counts.Total())
	}
}

func TestReactionCounts_Equal(t *testing.T) {
	a := ReactionCounts{SymbolFire: 1, SymbolHeart: 0}
	b := ReactionCounts{SymbolFire: 1}
	if !a.Equal(b) || !b.Equal(a) {
		t.Error("zero entries should not affect equality")
	}
	if a.Equal(ReactionCounts{SymbolFire: 2}) {
		t.Error("different counts reported equal")
	}
}

func TestPreset_CloneIsDeep(t *testing.T) {
	now := time.Now()
	p := &Preset{
		ID:             "ps-1",
		ReactionCounts: ReactionCounts{SymbolFire: 1},
		DeletedAt:      &now,
		UserReaction:   sym(SymbolFire),
	}
	c := p.Clone()
	c.ReactionCounts[SymbolFire] = 5
	*c.UserReaction = SymbolHeart
	if p.ReactionCounts[SymbolFire] != 1 || *p.UserReaction != SymbolFire {
		t.Error("Clone shares mutable state with the original")
	}
	if !c.IsDeleted() {
		t.Error("clone lost DeletedAt")
	}
}

func TestPreset_JSON(t *testing.T) {
	p := &Preset{
		ID:             "ps-1",
		OwnerID:        "u1",
		ToolID:         "team-picker",
		Name:           "Weekly Shuffle",
		Parameters:     MustDocument(map[string]any{"teamSize": 3}),
		Visibility:     VisibilityPrivate,
		ReactionCounts: ReactionCounts{SymbolThumbsUp: 2},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Preset
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Parameters.Equal(p.Parameters) {
		t.Errorf("parameters = %s", data)
	}
	if got.ReactionCounts[SymbolThumbsUp] != 2 {
		t.Errorf("reaction_counts = %v", got.ReactionCounts)
	}
	if got.UserReaction != nil {
		t.Errorf("user_reaction should be omitted, got %v", *got.UserReaction)
	}
}
