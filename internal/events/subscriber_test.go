package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

var _ Subscriber = (*NATSSubscriber)(nil)

// startTestNATS runs an embedded NATS server on a random port and returns
// its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

// pubSub connects a publisher and a subscriber to a fresh server.
func pubSub(t *testing.T) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m, ok := <-ch:
		require.True(t, ok, "channel closed")
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Message{}
	}
}

func TestNATSSubscriber_RoundTrip(t *testing.T) {
	pub, sub := pubSub(t)

	ch, cancel, err := sub.Subscribe(TopicAll)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, pub.Publish(context.Background(), TopicDomainDeleted, DomainDeleted{Slug: "billing"}))

	m := receive(t, ch)
	require.Equal(t, TopicDomainDeleted, m.Topic)
	var got DomainDeleted
	require.NoError(t, json.Unmarshal(m.Data, &got))
	require.Equal(t, "billing", got.Slug)
}

func TestNATSSubscriber_TopicPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{TopicAll, []string{TopicDomainCreated, TopicConfigCreated, TopicConfigDeleted, TopicVersionCreated}},
		{"configmonkey.config.*", []string{TopicConfigCreated, TopicConfigDeleted}},
		{TopicVersionCreated, []string{TopicVersionCreated}},
	}
	for _, tc := range tests {
		t.Run(tc.pattern, func(t *testing.T) {
			pub, sub := pubSub(t)
			ch, cancel, err := sub.Subscribe(tc.pattern)
			require.NoError(t, err)
			defer cancel()

			for _, topic := range []string{TopicDomainCreated, TopicConfigCreated, TopicConfigDeleted, TopicVersionCreated} {
				require.NoError(t, pub.Publish(context.Background(), topic, ConfigDeleted{Domain: "billing", Key: topic}))
			}
			require.NoError(t, pub.conn.Flush())

			var got []string
			for range tc.want {
				got = append(got, receive(t, ch).Topic)
			}
			require.Equal(t, tc.want, got)
			select {
			case m := <-ch:
				t.Fatalf("unexpected event on %s", m.Topic)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestNATSSubscriber_CancelClosesChannel(t *testing.T) {
	_, sub := pubSub(t)

	ch, cancel, err := sub.Subscribe(TopicAll)
	require.NoError(t, err)
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)
}

func TestNATSSubscriber_CancelDuringMessages(t *testing.T) {
	pub, sub := pubSub(t)

	ch, cancel, err := sub.Subscribe(TopicAll)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 200 {
			_ = pub.Publish(context.Background(), TopicVersionCreated, VersionCreated{Domain: "billing", Key: "k"})
			if i == 100 {
				_ = pub.conn.Flush()
			}
		}
	}()

	cancel()
	<-done

	_, ok := <-ch
	require.False(t, ok, "cancel discards buffered events")
}

func TestNATSSubscriber_Options(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url, nats.Name("cm-watch"), nats.ReconnectHandler(func(*nats.Conn) {}))
	require.NoError(t, err)
	defer sub.Close()

	require.True(t, sub.conn.IsConnected())
	require.Equal(t, "cm-watch", sub.conn.Opts.Name, "caller options override the defaults")
	require.Equal(t, -1, sub.conn.Opts.MaxReconnect)
}

func TestNewNATSSubscriber_Unreachable(t *testing.T) {
	_, err := NewNATSSubscriber("nats://127.0.0.1:1", nats.MaxReconnects(0), nats.Timeout(200*time.Millisecond))
	require.ErrorContains(t, err, "127.0.0.1:1")
}
