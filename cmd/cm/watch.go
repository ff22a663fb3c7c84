package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/configmonkey/internal/client"
	"github.com/alfredjeanlab/configmonkey/internal/events"
	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [domain]",
	Short:   "Stream registry changes as they happen",
	GroupID: "registry",
	Long: `Stream registry changes as they happen.

Events come from NATS when a NATS URL is known (--nats, CONFIGMONKEY_NATS_URL
or the active remote), and from the server's event stream otherwise. Pass a
domain to see only that domain's changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		natsURL, _ := cmd.Flags().GetString("nats")
		domain := ""
		if len(args) == 1 {
			domain = args[0]
		}

		sub, err := openSubscriber(natsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchEvents(ctx, ch, domain, newPrinter(cmd.OutOrStdout()))
	},
}

func openSubscriber(natsURL string) (events.Subscriber, error) {
	if natsURL == "" {
		natsURL = envOr("CONFIGMONKEY_NATS_URL", activeRemote().NATSURL)
	}
	if natsURL == "" {
		return client.NewSSESubscriber(httpURL, authToken), nil
	}
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return sub, nil
}

// watchEvent is one decoded registry event. Only the fields of its topic's
// payload are set.
type watchEvent struct {
	Topic  string       `json:"topic" yaml:"topic"`
	Time   time.Time    `json:"time" yaml:"time"`
	Domain string       `json:"domain" yaml:"domain"`
	Key    string       `json:"key,omitempty" yaml:"key,omitempty"`
	Index  int64        `json:"index,omitempty" yaml:"index,omitempty"`
	Value  *model.Value `json:"value,omitempty" yaml:"value,omitempty"`
}

// decodeEvent reads any registry event payload.
func decodeEvent(m events.Message, now time.Time) (watchEvent, error) {
	var raw struct {
		Domain  json.RawMessage `json:"domain"`
		Slug    string          `json:"slug"`
		Key     string          `json:"key"`
		Config  *model.Config   `json:"config"`
		Version *model.Version  `json:"version"`
	}
	if err := json.Unmarshal(m.Data, &raw); err != nil {
		return watchEvent{}, fmt.Errorf("decoding %s event: %w", m.Topic, err)
	}
	ev := watchEvent{Topic: m.Topic, Time: now, Key: raw.Key, Domain: raw.Slug}

	// "domain" is an object for domain.created and a slug elsewhere.
	if len(raw.Domain) > 0 {
		var d model.Domain
		if json.Unmarshal(raw.Domain, &d) == nil && d.Slug != "" {
			ev.Domain = d.Slug
		} else if err := json.Unmarshal(raw.Domain, &ev.Domain); err != nil {
			return watchEvent{}, fmt.Errorf("decoding %s event domain: %w", m.Topic, err)
		}
	}
	if raw.Config != nil {
		ev.Key = raw.Config.Key
	}
	if raw.Version != nil {
		ev.Index = raw.Version.Index
		ev.Value = &raw.Version.Value
	}
	return ev, nil
}

func (e watchEvent) summary() string {
	switch {
	case e.Value != nil:
		return fmt.Sprintf("%s/%s #%d = %s", e.Domain, e.Key, e.Index, renderValue(*e.Value))
	case e.Key != "":
		return e.Domain + "/" + e.Key
	default:
		return e.Domain
	}
}

// watchEvents prints events from ch until ctx ends or ch closes.
func watchEvents(ctx context.Context, ch <-chan events.Message, domain string, p printer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := decodeEvent(m, time.Now())
			if err != nil {
				slog.Warn("skipping event", "err", err)
				continue
			}
			if domain != "" && ev.Domain != domain {
				continue
			}
			err = p.print(ev, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ui.RenderMuted(ev.Time.Local().Format("15:04:05")), ev.Topic, ev.summary())
			})
			if err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "topic pattern to follow (NATS wildcards)")
	watchCmd.Flags().String("nats", "", "NATS URL (defaults to CONFIGMONKEY_NATS_URL or the active remote)")
}
