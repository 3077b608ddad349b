package events

import "context"

// NoopPublisher discards every event. The server uses it when PRESETS_NATS_URL
// is unset; events are still persisted and streamed over SSE.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
