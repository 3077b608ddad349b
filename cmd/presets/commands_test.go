package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/presets/internal/client"
	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/server"
	"github.com/alfredjeanlab/presets/internal/store/storetest"
	"github.com/alfredjeanlab/presets/internal/ui"
)

// testServer is a live HTTP server over an in-memory store.
type testServer struct {
	url string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ui.ForceNoColor()
	ps := server.NewPresetsServer(storetest.New(), events.NoopPublisher{})
	srv := httptest.NewServer(ps.NewHTTPHandler(nil))
	t.Cleanup(srv.Close)
	return &testServer{url: srv.URL}
}

// as points the package-level client at the server, acting as user.
func (s *testServer) as(t *testing.T, user string) *client.HTTPClient {
	t.Helper()
	c := client.NewHTTPClient(s.url, client.Credentials{UserID: user})
	httpClient = c
	presetsClient = c
	jsonOutput = false
	t.Cleanup(func() {
		httpClient = nil
		presetsClient = nil
	})
	return c
}

func run(t *testing.T, cmd *cobra.Command, args []string, flags map[string]string) (string, error) {
	t.Helper()
	// Commands are package globals; flags must not leak into the next call.
	for name, v := range flags {
		f := cmd.Flags().Lookup(name)
		def := f.DefValue
		defer func() {
			_ = f.Value.Set(def)
			f.Changed = false
		}()
		if err := cmd.Flags().Set(name, v); err != nil {
			t.Fatalf("set --%s: %v", name, err)
		}
	}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

var savedID = regexp.MustCompile(`Saved (\S+)`)

func savePreset(t *testing.T, name string, public bool) string {
	t.Helper()
	flags := map[string]string{"tool": "dice", "name": name, "params": `{"sides": 20}`}
	if public {
		flags["public"] = "true"
	}
	out, err := run(t, saveCmd, nil, flags)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	m := savedID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("save output = %q", out)
	}
	return m[1]
}

func TestSaveShowList(t *testing.T) {
	srv := newTestServer(t)
	srv.as(t, "alice")

	id := savePreset(t, "Attack roll", true)

	out, err := run(t, showCmd, []string{id}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{id, "Attack roll", "dice", "alice", "public", `"sides": 20`} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, listCmd, nil, map[string]string{"tool": "dice"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "1 presets") {
		t.Errorf("list output:\n%s", out)
	}

	// Another user sees it publicly but owns nothing.
	srv.as(t, "bob")
	out, _ = run(t, listCmd, nil, map[string]string{"tool": "dice", "public": "true"})
	if !strings.Contains(out, id) {
		t.Errorf("public list missing %s:\n%s", id, out)
	}
	out, _ = run(t, listCmd, nil, map[string]string{"tool": "dice"})
	if !strings.Contains(out, "no presets") {
		t.Errorf("owned list for bob:\n%s", out)
	}
}

func TestRun_RestoresFlagsBetweenCalls(t *testing.T) {
	srv := newTestServer(t)
	srv.as(t, "alice")
	savePreset(t, "Shared", true)

	if _, err := run(t, listCmd, nil, map[string]string{"tool": "dice", "public": "true"}); err != nil {
		t.Fatal(err)
	}
	if f := listCmd.Flags().Lookup("public"); f.Value.String() != "false" || f.Changed {
		t.Fatalf("--public left as %s (changed=%v)", f.Value, f.Changed)
	}

	srv.as(t, "bob")
	out, err := run(t, listCmd, nil, map[string]string{"tool": "dice"})
	if err != nil || !strings.Contains(out, "no presets") {
		t.Fatalf("bob's owned list = %q, %v", out, err)
	}
}

func TestSave_ValidationError(t *testing.T) {
	srv := newTestServer(t)
	srv.as(t, "alice")

	_, err := run(t, saveCmd, nil, map[string]string{"tool": "dice", "name": "   "})
	if !model.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestPublishUnpublish(t *testing.T) {
	srv := newTestServer(t)
	srv.as(t, "alice")
	id := savePreset(t, "Secret", false)

	out, err := run(t, unpublishCmd, []string{id}, nil)
	if err != nil || !strings.Contains(out, "already private") {
		t.Fatalf("unpublish = %q, %v", out, err)
	}
	out, err = run(t, publishCmd, []string{id}, nil)
	if err != nil || !strings.Contains(out, "now public") {
		t.Fatalf("publish = %q, %v", out, err)
	}

	srv.as(t, "mallory")
	if _, err := run(t, unpublishCmd, []string{id}, nil); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("non-owner unpublish err = %v", err)
	}
}

func TestReactToggles(t *testing.T) {
	srv := newTestServer(t)
	srv.as(t, "alice")
	id := savePreset(t, "Shared", true)

	srv.as(t, "bob")
	out, err := run(t, reactCmd, []string{id, "fire"}, nil)
	if err != nil || !strings.Contains(out, "Reacted 🔥") || !strings.Contains(out, "🔥 1") {
		t.Fatalf("first react = %q, %v", out, err)
	}
	out, err = run(t, reactCmd, []string{id, "🔥"}, nil)
	if err != nil || !strings.Contains(out, "Removed reaction") {
		t.Fatalf("second react = %q, %v", out, err)
	}

	if _, err := run(t, reactCmd, []string{id, "poop"}, nil); !model.IsValidation(err) {
		t.Fatalf("unknown symbol err = %v", err)
	}
}

func TestDeleteThenShow(t *testing.T) {
	srv := newTestServer(t)
	srv.as(t, "alice")
	id := savePreset(t, "Gone", true)

	if out, err := run(t, deleteCmd, []string{id}, nil); err != nil || !strings.Contains(out, "Deleted "+id) {
		t.Fatalf("delete = %q, %v", out, err)
	}
	if _, err := run(t, showCmd, []string{id}, nil); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("show after delete err = %v", err)
	}

	// The owner keeps the audit trail.
	out, err := run(t, eventsCmd, []string{id}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, events.TopicPresetCreated) || !strings.Contains(out, events.TopicPresetDeleted) {
		t.Fatalf("events output:\n%s", out)
	}
}

func TestEvents_NeedsHTTP(t *testing.T) {
	httpClient = nil
	if _, err := run(t, eventsCmd, []string{"ps-x"}, nil); !errors.Is(err, errHTTPOnly) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(`{"mode": "file"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		value string
		stdin string
		want  any
	}{
		{"inline", `{"mode": "inline"}`, "", map[string]any{"mode": "inline"}},
		{"file", "@" + path, "", map[string]any{"mode": "file"}},
		{"stdin", "-", `[1, 2]`, []any{1.0, 2.0}},
		{"empty is null", "", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := readParams(tc.value, strings.NewReader(tc.stdin))
			if err != nil {
				t.Fatal(err)
			}
			if !doc.Equal(model.MustDocument(tc.want)) {
				t.Fatalf("doc = %v, want %v", doc.AsInterface(), tc.want)
			}
		})
	}

	if _, err := readParams("{not json", strings.NewReader("")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := readParams("@"+filepath.Join(t.TempDir(), "missing.json"), strings.NewReader("")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestEventPresetID(t *testing.T) {
	tests := map[string]string{
		`{"preset_id": "ps-a", "visibility": "public"}`: "ps-a",
		`{"preset": {"id": "ps-b", "name": "x"}}`:       "ps-b",
		`{"other": true}`:                               "",
		`not json`:                                      "",
	}
	for in, want := range tests {
		if got := eventPresetID([]byte(in)); got != want {
			t.Errorf("eventPresetID(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	if !matchTopic(nil, events.TopicPresetDeleted) {
		t.Error("no filter should match everything")
	}
	if !matchTopic([]string{"presets.reaction.>"}, events.TopicReactionToggled) {
		t.Error("wildcard should match")
	}
	if matchTopic([]string{"presets.reaction.>"}, events.TopicPresetCreated) {
		t.Error("wildcard should not match another branch")
	}
	if !matchTopic([]string{events.TopicPresetCreated}, events.TopicPresetCreated) {
		t.Error("exact topic should match")
	}
	if !matchTopic([]string{"presets.*.deleted"}, events.TopicPresetDeleted) {
		t.Error("single-segment wildcard should match")
	}
	if matchTopic([]string{"presets.*"}, events.TopicPresetDeleted) {
		t.Error("single-segment wildcard should not span segments")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchNATS(t *testing.T) {
	ui.ForceNoColor()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}

	pub, err := events.NewNATSPublisher(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- watchNATS(ctx, out, srv.ClientURL(), []string{"presets.preset.>"}, "ps-a")
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "ps-a") {
		if time.Now().After(deadline) {
			t.Fatalf("no event printed; got %q", out.String())
		}
		_ = pub.Publish(ctx, events.TopicPresetDeleted, events.PresetDeleted{PresetID: "ps-b"})
		_ = pub.Publish(ctx, events.TopicReactionToggled, events.ReactionToggled{PresetID: "ps-a"})
		_ = pub.Publish(ctx, events.TopicPresetDeleted, events.PresetDeleted{PresetID: "ps-a"})
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchNATS returned %v", err)
	}

	got := out.String()
	if strings.Contains(got, "ps-b") || strings.Contains(got, events.TopicReactionToggled) {
		t.Fatalf("filters not applied:\n%s", got)
	}
	if !strings.Contains(got, events.TopicPresetDeleted) {
		t.Fatalf("missing deleted event:\n%s", got)
	}
}

func TestAdminToken(t *testing.T) {
	out, err := run(t, adminTokenCmd, []string{"alice"}, map[string]string{
		"secret": "s3cret",
		"name":   "Alice",
		"ttl":    "1h",
	})
	if err != nil {
		t.Fatal(err)
	}
	id, err := server.NewAuthenticator("s3cret").Identify("Bearer "+strings.TrimSpace(out), "")
	if err != nil {
		t.Fatalf("token rejected: %v", err)
	}
	if id.UserID != "alice" || id.DisplayName != "Alice" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestAdminToken_NoSecret(t *testing.T) {
	t.Setenv("PRESETS_JWT_SECRET", "")
	if _, err := run(t, adminTokenCmd, []string{"alice"}, nil); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestPrintDrift(t *testing.T) {
	ui.ForceNoColor()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printDrift(cmd, nil)
	if !strings.Contains(buf.String(), "match the ledger") {
		t.Fatalf("clean output = %q", buf.String())
	}

	buf.Reset()
	printDrift(cmd, []model.CountDrift{{
		PresetID: "ps-a",
		Stored:   model.ReactionCounts{model.SymbolFire: 5},
		Ledger:   model.ReactionCounts{model.SymbolFire: 1},
		Repaired: true,
	}})
	out := buf.String()
	for _, want := range []string{"ps-a", "🔥5", "🔥1", "true", "1 drifted presets"} {
		if !strings.Contains(out, want) {
			t.Errorf("drift output missing %q:\n%s", want, out)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })

	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tc := range tests {
		if got := relativeTime(tc.at); got != tc.want {
			t.Errorf("relativeTime(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}
