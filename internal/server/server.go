package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
	"github.com/alfredjeanlab/presets/internal/store"
)

// PresetsServer implements rpc.PresetServiceServer and the HTTP API on top of
// the same store.
type PresetsServer struct {
	rpc.UnimplementedPresetServiceServer
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	limiter   RateLimiter
	now       func() time.Time
}

// Option configures a PresetsServer.
type Option func(*PresetsServer)

// WithRateLimiter limits reaction toggles per caller. Without one, toggles
// are unlimited.
func WithRateLimiter(l RateLimiter) Option {
	return func(s *PresetsServer) { s.limiter = l }
}

// NewPresetsServer returns a new PresetsServer backed by the given store and publisher.
func NewPresetsServer(s store.Store, p events.Publisher, opts ...Option) *PresetsServer {
	srv := &PresetsServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// timestamp returns the current time at the precision Postgres stores, so
// that cursors built from a response match the persisted row.
func (s *PresetsServer) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// eventScope names who may observe an event on the live stream: the owner
// always, everyone when public.
type eventScope struct {
	presetID string
	ownerID  string
	public   bool
}

func scopeOf(p *model.Preset) eventScope {
	return eventScope{presetID: p.ID, ownerID: p.OwnerID, public: p.IsPublic()}
}

// recordAndPublish persists an event to the store and publishes it to NATS.
// Both operations are best-effort; failures are logged but do not block the caller.
func (s *PresetsServer) recordAndPublish(ctx context.Context, topic string, scope eventScope, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "preset_id", scope.presetID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:    topic,
		PresetID: scope.presetID,
		Actor:    actor,
		Payload:  payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "preset_id", scope.presetID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "preset_id", scope.presetID, "error", err)
	}
	s.sseHub.broadcast(topic, scope, payload)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }
