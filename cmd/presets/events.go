package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alfredjeanlab/presets/internal/client"
	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var errHTTPOnly = errors.New("this command needs the HTTP transport; drop --grpc")

var eventsCmd = &cobra.Command{
	Use:     "events <id>",
	Short:   "Show the audit trail of a preset you own",
	GroupID: "activity",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if httpClient == nil {
			return errHTTPOnly
		}
		evts, err := httpClient.GetEvents(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		if len(evts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no events")
			return nil
		}
		for _, e := range evts {
			printEventLine(cmd.OutOrStdout(), e.CreatedAt, e.Topic, e.PresetID, e.Actor, e.Payload)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live preset events",
	Long: `Stream live preset events until interrupted.

By default events come from the server's event stream and are filtered to
what the caller may see. With --nats (or a NATS URL on the active remote)
the command subscribes to the bus directly, which is an operator view that
includes private presets.`,
	GroupID: "activity",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topic")
		presetID, _ := cmd.Flags().GetString("preset")
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("PRESETS_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, cmd.OutOrStdout(), natsURL, topics, presetID)
		}
		if httpClient == nil {
			return errHTTPOnly
		}
		return watchStream(ctx, cmd.OutOrStdout(), httpClient, topics, presetID)
	},
}

// watchStream prints events from the server's SSE endpoint.
func watchStream(ctx context.Context, w io.Writer, c *client.HTTPClient, topics []string, presetID string) error {
	err := c.StreamEvents(ctx, topics, presetID, func(ev client.StreamEvent) error {
		if jsonOutput {
			return printJSON(w, ev)
		}
		printEventLine(w, nowFunc(), ev.Topic, eventPresetID(ev.Data), "", ev.Data)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// watchNATS subscribes to the bus and prints every matching message.
func watchNATS(ctx context.Context, w io.Writer, natsURL string, topics []string, presetID string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if !matchTopic(topics, msg.Topic) {
				continue
			}
			id := eventPresetID(msg.Data)
			if presetID != "" && id != presetID {
				continue
			}
			if jsonOutput {
				if err := printJSON(w, client.StreamEvent{Topic: msg.Topic, Data: msg.Data}); err != nil {
					return err
				}
				continue
			}
			printEventLine(w, nowFunc(), msg.Topic, id, "", msg.Data)
		}
	}
}

// matchTopic applies the stream's topic patterns on the client side: "*"
// matches one segment and a trailing ">" matches the rest.
func matchTopic(patterns []string, topic string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchPattern(strings.Split(p, "."), strings.Split(topic, ".")) {
			return true
		}
	}
	return false
}

func matchPattern(pat, top []string) bool {
	for i, pp := range pat {
		if pp == ">" {
			return i < len(top)
		}
		if i >= len(top) || (pp != "*" && pp != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// eventPresetID extracts the preset id from an event payload. Created events
// carry the whole preset; the others carry preset_id.
func eventPresetID(data []byte) string {
	var payload struct {
		PresetID string `json:"preset_id"`
		Preset   *struct {
			ID string `json:"id"`
		} `json:"preset"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.PresetID != "" {
		return payload.PresetID
	}
	if payload.Preset != nil {
		return payload.Preset.ID
	}
	return ""
}

func init() {
	watchCmd.Flags().StringSlice("topic", nil, "only show these topics; * matches one segment, > the rest")
	watchCmd.Flags().String("preset", "", "only show events for this preset")
	watchCmd.Flags().String("nats", "", "subscribe to this NATS server directly")
}
