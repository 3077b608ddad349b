package optimistic

import (
	"testing"

	"github.com/alfredjeanlab/presets/internal/model"
)

func preset(id string) *model.Preset {
	return &model.Preset{ID: id, ReactionCounts: model.ReactionCounts{}}
}

func ids(items []*model.Preset) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func equalIDs(t *testing.T, got []*model.Preset, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func TestWithToggle_Transitions(t *testing.T) {
	up, heart := model.SymbolThumbsUp, model.SymbolHeart
	p := preset("a")
	p.ReactionCounts = model.ReactionCounts{up: 2}

	added := withToggle(p, heart)
	if added.ReactionCounts.Get(heart) != 1 || added.ReactionCounts.Get(up) != 2 || *added.UserReaction != heart {
		t.Fatalf("add: %+v %v", added.ReactionCounts, added.UserReaction)
	}

	switched := withToggle(added, up)
	if switched.ReactionCounts.Get(heart) != 0 || switched.ReactionCounts.Get(up) != 3 || *switched.UserReaction != up {
		t.Fatalf("switch: %+v %v", switched.ReactionCounts, switched.UserReaction)
	}
	if _, ok := switched.ReactionCounts[heart]; ok {
		t.Fatal("zero count should be dropped")
	}

	removed := withToggle(switched, up)
	if removed.ReactionCounts.Get(up) != 2 || removed.UserReaction != nil {
		t.Fatalf("remove: %+v %v", removed.ReactionCounts, removed.UserReaction)
	}

	// Inputs are untouched.
	if p.UserReaction != nil || p.ReactionCounts.Get(up) != 2 || p.ReactionCounts.Get(heart) != 0 {
		t.Fatalf("input mutated: %+v", p)
	}
}

func TestWithToggle_FloorsAtZero(t *testing.T) {
	// Stale local counts: the viewer's reaction is known but the count is 0.
	fire := model.SymbolFire
	p := preset("a")
	p.UserReaction = &fire
	got := withToggle(p, fire)
	if got.ReactionCounts.Get(fire) != 0 || got.UserReaction != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestWithToggleResult(t *testing.T) {
	p := withToggle(preset("a"), model.SymbolWow)
	got := withToggleResult(p, &model.ToggleResult{ReactionCounts: model.ReactionCounts{model.SymbolWow: 4}})
	if got.ReactionCounts.Get(model.SymbolWow) != 4 || got.UserReaction != nil {
		t.Fatalf("got %+v", got)
	}
	if p.UserReaction == nil {
		t.Fatal("input mutated")
	}
}

func TestRestore(t *testing.T) {
	items := []*model.Preset{preset("a"), preset("b"), preset("c")}

	t.Run("Insert", func(t *testing.T) {
		snap := capture(items, "tmp-1")
		after := insertFirst(items, preset("tmp-1"))
		equalIDs(t, restore(after, snap), "a", "b", "c")
	})

	t.Run("Remove", func(t *testing.T) {
		snap := capture(items, "b")
		after := removeItem(items, "b")
		equalIDs(t, after, "a", "c")
		equalIDs(t, restore(after, snap), "a", "b", "c")
		equalIDs(t, items, "a", "b", "c")
	})

	t.Run("RemoveThenShrunk", func(t *testing.T) {
		snap := capture(items, "c")
		after := removeItem(removeItem(items, "c"), "b")
		equalIDs(t, restore(after, snap), "a", "c")
	})

	t.Run("Replace", func(t *testing.T) {
		snap := capture(items, "a")
		after := replaceItem(items, "a", withVisibility(items[0], model.VisibilityPublic))
		if !after[0].IsPublic() || items[0].IsPublic() {
			t.Fatal("replace should not touch the input")
		}
		restored := restore(after, snap)
		if restored[0].IsPublic() {
			t.Fatal("visibility not reverted")
		}
	})
}

func TestAdoptSaved(t *testing.T) {
	saved := preset("ps-1")
	for _, tc := range []struct {
		name  string
		items []*model.Preset
		want  []string
	}{
		{"ReplacesPlaceholder", []*model.Preset{preset("a"), preset("tmp"), preset("b")}, []string{"a", "ps-1", "b"}},
		{"PlaceholderGone", []*model.Preset{preset("a")}, []string{"ps-1", "a"}},
		{"AlreadyLoaded", []*model.Preset{preset("a"), preset("ps-1")}, []string{"a", "ps-1"}},
		{"BothPresent", []*model.Preset{preset("tmp"), preset("ps-1"), preset("a")}, []string{"ps-1", "a"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := adoptSaved(tc.items, "tmp", saved)
			equalIDs(t, got, tc.want...)
			if got[indexOf(got, "ps-1")] != saved {
				t.Fatal("saved preset not adopted")
			}
		})
	}
}
