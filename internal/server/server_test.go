package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
	"github.com/alfredjeanlab/presets/internal/store/storetest"
)

// testCtx creates a fresh PresetsServer with an in-memory store.
func testCtx(t *testing.T, opts ...Option) (*PresetsServer, *storetest.Store) {
	t.Helper()
	ms := storetest.New()
	return NewPresetsServer(ms, events.NoopPublisher{}, opts...), ms
}

// as returns a context carrying the given caller.
func as(userID string) context.Context {
	return withIdentity(context.Background(), model.Identity{UserID: userID})
}

// requireCode asserts that err is a gRPC error with the given status code.
func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected gRPC error with code %v, got nil", code)
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != code {
		t.Fatalf("expected code=%v, got %v (%s)", code, st.Code(), st.Message())
	}
}

// requireEvent asserts exactly n events were recorded, with the last having the given topic.
func requireEvent(t *testing.T, ms *storetest.Store, n int, topic string) {
	t.Helper()
	evts := ms.Events()
	if len(evts) != n {
		t.Fatalf("expected %d event(s), got %d", n, len(evts))
	}
	if evts[n-1].Topic != topic {
		t.Fatalf("expected topic=%q, got %q", topic, evts[n-1].Topic)
	}
}

// mustSave creates a preset through the server.
func mustSave(t *testing.T, s *PresetsServer, owner, tool, name string, public bool) *model.Preset {
	t.Helper()
	resp, err := s.SavePreset(as(owner), &rpc.SavePresetRequest{
		ToolID:     tool,
		Name:       name,
		Parameters: model.MustDocument(map[string]any{"teamSize": 3}),
		IsPublic:   public,
	})
	if err != nil {
		t.Fatalf("SavePreset: %v", err)
	}
	return resp.Preset
}

func TestSavePreset(t *testing.T) {
	s, ms := testCtx(t)
	params := model.MustDocument(map[string]any{"teamSize": 3, "names": []any{"a", "b"}, "shuffle": true})

	resp, err := s.SavePreset(as("alice"), &rpc.SavePresetRequest{
		ToolID:     "team-picker",
		Name:       "  Weekly Shuffle ",
		Parameters: params,
	})
	if err != nil {
		t.Fatalf("SavePreset: %v", err)
	}
	p := resp.Preset
	if p.OwnerID != "alice" || p.Name != "Weekly Shuffle" || p.Visibility != model.VisibilityPrivate {
		t.Errorf("preset = %+v", p)
	}
	if len(p.ID) == 0 || p.ID[:3] != "ps-" {
		t.Errorf("id = %q, want ps- prefix", p.ID)
	}
	if p.CreatedAt.Nanosecond()%1000 != 0 {
		t.Errorf("created_at %v not truncated to microseconds", p.CreatedAt)
	}
	if len(p.ReactionCounts) != 0 {
		t.Errorf("counts = %v, want empty", p.ReactionCounts)
	}
	requireEvent(t, ms, 1, events.TopicPresetCreated)

	got, err := s.GetPreset(as("alice"), &rpc.GetPresetRequest{ID: p.ID})
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	if !got.Preset.Parameters.Equal(params) {
		t.Errorf("parameters changed: %v", got.Preset.Parameters.AsInterface())
	}
}

func TestSavePreset_DuplicateNamesAllowed(t *testing.T) {
	s, _ := testCtx(t)
	a := mustSave(t, s, "alice", "dice", "Same", false)
	b := mustSave(t, s, "alice", "dice", "Same", false)
	if a.ID == b.ID {
		t.Fatal("duplicate names should get distinct ids")
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	for _, tc := range []struct {
		name string
		call func(*PresetsServer, *model.Preset) error
		code codes.Code
	}{
		{"Save/Anonymous", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.SavePreset(context.Background(), &rpc.SavePresetRequest{ToolID: "dice", Name: "x"})
			return err
		}, codes.Unauthenticated},
		{"Save/MissingName", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.SavePreset(as("alice"), &rpc.SavePresetRequest{ToolID: "dice"})
			return err
		}, codes.InvalidArgument},
		{"Save/BadTool", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.SavePreset(as("alice"), &rpc.SavePresetRequest{ToolID: "Bad Tool!", Name: "x"})
			return err
		}, codes.InvalidArgument},
		{"Get/MissingID", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.GetPreset(as("alice"), &rpc.GetPresetRequest{})
			return err
		}, codes.InvalidArgument},
		{"Get/NotFound", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.GetPreset(as("alice"), &rpc.GetPresetRequest{ID: "ps-missing"})
			return err
		}, codes.NotFound},
		{"Get/PrivateToOthers", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.GetPreset(as("bob"), &rpc.GetPresetRequest{ID: p.ID})
			return err
		}, codes.NotFound},
		{"SetVisibility/PrivateToOthers", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.SetVisibility(as("bob"), &rpc.SetVisibilityRequest{ID: p.ID, IsPublic: true})
			return err
		}, codes.NotFound},
		{"SetVisibility/NonOwnerOfPublic", func(s *PresetsServer, _ *model.Preset) error {
			pub, err := s.SavePreset(as("alice"), &rpc.SavePresetRequest{ToolID: "dice", Name: "Shared", IsPublic: true})
			if err != nil {
				return err
			}
			_, err = s.SetVisibility(as("bob"), &rpc.SetVisibilityRequest{ID: pub.Preset.ID, IsPublic: false})
			return err
		}, codes.PermissionDenied},
		{"SetVisibility/Missing", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.SetVisibility(as("alice"), &rpc.SetVisibilityRequest{ID: "ps-missing", IsPublic: true})
			return err
		}, codes.NotFound},
		{"Delete/PrivateToOthers", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.DeletePreset(as("bob"), &rpc.DeletePresetRequest{ID: p.ID})
			return err
		}, codes.NotFound},
		{"Delete/NonOwnerOfPublic", func(s *PresetsServer, _ *model.Preset) error {
			pub, err := s.SavePreset(as("alice"), &rpc.SavePresetRequest{ToolID: "dice", Name: "Shared", IsPublic: true})
			if err != nil {
				return err
			}
			_, err = s.DeletePreset(as("bob"), &rpc.DeletePresetRequest{ID: pub.Preset.ID})
			return err
		}, codes.PermissionDenied},
		{"Delete/Anonymous", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.DeletePreset(context.Background(), &rpc.DeletePresetRequest{ID: p.ID})
			return err
		}, codes.Unauthenticated},
		{"ListOwned/Anonymous", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.ListOwned(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice"})
			return err
		}, codes.Unauthenticated},
		{"ListPublic/MissingTool", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{})
			return err
		}, codes.InvalidArgument},
		{"ListPublic/NegativePage", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice", Page: -1})
			return err
		}, codes.InvalidArgument},
		{"ListPublic/BadCursor", func(s *PresetsServer, _ *model.Preset) error {
			_, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice", Cursor: "%%%"})
			return err
		}, codes.InvalidArgument},
		{"Toggle/BadSymbol", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.ToggleReaction(as("alice"), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: "🦄"})
			return err
		}, codes.InvalidArgument},
		{"Toggle/PrivateToOthers", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.ToggleReaction(as("bob"), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: "👍"})
			return err
		}, codes.NotFound},
		{"Toggle/Anonymous", func(s *PresetsServer, p *model.Preset) error {
			_, err := s.ToggleReaction(context.Background(), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: "👍"})
			return err
		}, codes.Unauthenticated},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := testCtx(t)
			p := mustSave(t, s, "alice", "dice", "Mine", false)
			requireCode(t, tc.call(s, p), tc.code)
		})
	}
}

func TestGRPCError_StorageFailureIsUnavailable(t *testing.T) {
	s, ms := testCtx(t)
	ms.Fail(storetest.ErrClosed)
	_, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice"})
	requireCode(t, err, codes.Unavailable)
	if st, _ := status.FromError(err); st.Message() != model.ErrTransient.Error() {
		t.Errorf("message leaks cause: %q", st.Message())
	}
}

func TestSetVisibility_Idempotent(t *testing.T) {
	s, ms := testCtx(t)
	p := mustSave(t, s, "alice", "dice", "Mine", false)

	resp, err := s.SetVisibility(as("alice"), &rpc.SetVisibilityRequest{ID: p.ID, IsPublic: true})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Changed || resp.Visibility != model.VisibilityPublic {
		t.Fatalf("first publish = %+v", resp)
	}
	requireEvent(t, ms, 2, events.TopicPresetVisibilityChanged)

	resp, err = s.SetVisibility(as("alice"), &rpc.SetVisibilityRequest{ID: p.ID, IsPublic: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Changed {
		t.Error("second publish reported a change")
	}
	requireEvent(t, ms, 2, events.TopicPresetVisibilityChanged)
}

func TestDeletePreset(t *testing.T) {
	s, ms := testCtx(t)
	p := mustSave(t, s, "alice", "dice", "Mine", true)

	if _, err := s.DeletePreset(as("alice"), &rpc.DeletePresetRequest{ID: p.ID}); err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	requireEvent(t, ms, 2, events.TopicPresetDeleted)

	_, err := s.DeletePreset(as("alice"), &rpc.DeletePresetRequest{ID: p.ID})
	requireCode(t, err, codes.NotFound)

	_, err = s.GetPreset(as("alice"), &rpc.GetPresetRequest{ID: p.ID})
	requireCode(t, err, codes.NotFound)

	for _, list := range []func(context.Context, *rpc.ListPresetsRequest) (*rpc.ListPresetsResponse, error){s.ListOwned, s.ListPublic} {
		resp, err := list(as("alice"), &rpc.ListPresetsRequest{ToolID: "dice"})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Presets) != 0 {
			t.Errorf("deleted preset still listed: %v", resp.Presets)
		}
	}

	_, err = s.ToggleReaction(as("bob"), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: "🔥"})
	requireCode(t, err, codes.NotFound)

	// The owner keeps the audit trail.
	evts, err := s.getEvents(as("alice"), p.ID)
	if err != nil {
		t.Fatalf("getEvents: %v", err)
	}
	if len(evts) != 2 {
		t.Errorf("got %d events, want 2", len(evts))
	}
	if _, err := s.getEvents(as("bob"), p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("non-owner getEvents err = %v", err)
	}
}

func TestListPresets_Scopes(t *testing.T) {
	s, _ := testCtx(t)
	mustSave(t, s, "alice", "dice", "A private", false)
	pub := mustSave(t, s, "alice", "dice", "A public", true)
	mustSave(t, s, "bob", "dice", "B public", true)
	mustSave(t, s, "bob", "coin", "B other tool", true)

	owned, err := s.ListOwned(as("alice"), &rpc.ListPresetsRequest{ToolID: "dice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(owned.Presets) != 2 {
		t.Errorf("owned = %d presets, want 2", len(owned.Presets))
	}

	public, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(public.Presets) != 2 {
		t.Fatalf("public = %d presets, want 2", len(public.Presets))
	}
	for _, p := range public.Presets {
		if !p.IsPublic() {
			t.Errorf("private preset %s in public listing", p.ID)
		}
		if p.UserReaction != nil {
			t.Errorf("anonymous listing carries a user reaction")
		}
	}

	if _, err := s.ToggleReaction(as("carol"), &rpc.ToggleReactionRequest{PresetID: pub.ID, Symbol: "❤️"}); err != nil {
		t.Fatal(err)
	}
	viewed, err := s.ListPublic(as("carol"), &rpc.ListPresetsRequest{ToolID: "dice"})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range viewed.Presets {
		switch {
		case p.ID == pub.ID && (p.UserReaction == nil || *p.UserReaction != model.SymbolHeart):
			t.Errorf("viewer reaction missing on %s", p.ID)
		case p.ID != pub.ID && p.UserReaction != nil:
			t.Errorf("unexpected viewer reaction on %s", p.ID)
		}
	}
}

func TestListPresets_PagingIsCompleteAndOrdered(t *testing.T) {
	s, _ := testCtx(t)
	const n = 37
	for range n {
		mustSave(t, s, "alice", "dice", "p", true)
	}

	seen := make(map[string]bool)
	for page := 0; ; page++ {
		resp, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice", Page: page})
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range resp.Presets {
			if seen[p.ID] {
				t.Fatalf("preset %s returned twice", p.ID)
			}
			seen[p.ID] = true
		}
		if len(resp.Presets) < model.DefaultPageSize {
			break
		}
	}
	if len(seen) != n {
		t.Fatalf("paged %d presets, want %d", len(seen), n)
	}

	// Cursor paging covers the same set.
	cursorSeen := make(map[string]bool)
	cursor := ""
	for {
		resp, err := s.ListPublic(context.Background(), &rpc.ListPresetsRequest{ToolID: "dice", PageSize: 10, Cursor: cursor})
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range resp.Presets {
			cursorSeen[p.ID] = true
			if i > 0 && p.CreatedAt.After(resp.Presets[i-1].CreatedAt) {
				t.Fatalf("page not ordered newest first")
			}
		}
		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	if len(cursorSeen) != n {
		t.Fatalf("cursor paging saw %d presets, want %d", len(cursorSeen), n)
	}
}

func TestToggleReaction_Sequence(t *testing.T) {
	s, ms := testCtx(t)
	p := mustSave(t, s, "bob", "dice", "Loaded", true)

	toggle := func(user, sym string) *model.ToggleResult {
		t.Helper()
		resp, err := s.ToggleReaction(as(user), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: sym})
		if err != nil {
			t.Fatalf("toggle %s %s: %v", user, sym, err)
		}
		return resp.Result
	}

	r := toggle("alice", "👍")
	if r.ReactionCounts.Get(model.SymbolThumbsUp) != 1 || r.Transition.Op != model.ToggleAdded {
		t.Fatalf("add: %+v", r)
	}
	r = toggle("alice", "❤️")
	if r.ReactionCounts.Get(model.SymbolThumbsUp) != 0 || r.ReactionCounts.Get(model.SymbolHeart) != 1 {
		t.Fatalf("switch: %+v", r.ReactionCounts)
	}
	r = toggle("carol", "heart")
	if r.ReactionCounts.Get(model.SymbolHeart) != 2 {
		t.Fatalf("second user: %+v", r.ReactionCounts)
	}
	r = toggle("alice", "❤️")
	if r.ReactionCounts.Get(model.SymbolHeart) != 1 || r.UserReaction != nil {
		t.Fatalf("remove: %+v", r)
	}
	requireEvent(t, ms, 5, events.TopicReactionToggled)

	drift, err := ms.FindCountDrift(context.Background())
	if err != nil || len(drift) != 0 {
		t.Fatalf("drift = %v, %v", drift, err)
	}
}

func TestToggleReaction_ConcurrentCountsStayConsistent(t *testing.T) {
	s, ms := testCtx(t)
	p := mustSave(t, s, "bob", "dice", "Busy", true)
	symbols := model.AllowedSymbols

	const users = 20
	var wg sync.WaitGroup
	errs := make(chan error, users+2)
	toggle := func(user string, sym model.Symbol) {
		defer wg.Done()
		_, err := s.ToggleReaction(as(user), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: string(sym)})
		errs <- err
	}
	for i := range users {
		wg.Add(1)
		go toggle(fmt.Sprintf("user-%02d", i), symbols[i%len(symbols)])
	}
	// A double click: the second toggle undoes the first.
	wg.Add(2)
	go toggle("alice", model.SymbolFire)
	go toggle("alice", model.SymbolFire)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	got, err := s.GetPreset(as("alice"), &rpc.GetPresetRequest{ID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if total := got.Preset.ReactionCounts.Total(); total != users {
		t.Fatalf("total reactions = %d, want %d (%v)", total, users, got.Preset.ReactionCounts)
	}
	if got.Preset.UserReaction != nil {
		t.Fatalf("double click left a reaction: %v", *got.Preset.UserReaction)
	}
	for i, sym := range symbols {
		want := 0
		for u := range users {
			if u%len(symbols) == i {
				want++
			}
		}
		if n := got.Preset.ReactionCounts.Get(sym); n != want {
			t.Errorf("count %s = %d, want %d", sym, n, want)
		}
	}

	drift, err := ms.FindCountDrift(context.Background())
	if err != nil || len(drift) != 0 {
		t.Fatalf("drift = %v, %v", drift, err)
	}
}

type stubLimiter struct {
	allow bool
	err   error
	calls int
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) {
	l.calls++
	return l.allow, l.err
}

func TestToggleReaction_RateLimited(t *testing.T) {
	lim := &stubLimiter{allow: false}
	s, ms := testCtx(t, WithRateLimiter(lim))
	p := mustSave(t, s, "bob", "dice", "Loaded", true)

	_, err := s.ToggleReaction(as("alice"), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: "👍"})
	requireCode(t, err, codes.ResourceExhausted)
	if lim.calls != 1 {
		t.Errorf("limiter called %d times", lim.calls)
	}
	if _, err := ms.GetReaction(context.Background(), "alice", p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("rate-limited toggle reached the ledger: %v", err)
	}
}

func TestToggleReaction_LimiterErrorFailsOpen(t *testing.T) {
	lim := &stubLimiter{err: errors.New("redis down")}
	s, _ := testCtx(t, WithRateLimiter(lim))
	p := mustSave(t, s, "bob", "dice", "Loaded", true)

	if _, err := s.ToggleReaction(as("alice"), &rpc.ToggleReactionRequest{PresetID: p.ID, Symbol: "👍"}); err != nil {
		t.Fatalf("toggle with failing limiter: %v", err)
	}
}

func TestRecordAndPublish_FailuresDoNotFailCalls(t *testing.T) {
	s, ms := testCtx(t)
	ms.FailOn("RecordEvent", errors.New("disk full"))
	mustSave(t, s, "alice", "dice", "Still saved", false)
	if len(ms.Events()) != 0 {
		t.Error("event recorded despite failure")
	}
}
