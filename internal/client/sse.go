package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/alfredjeanlab/configmonkey/internal/events"
)

// SSESubscriber implements events.Subscriber over the server's
// GET /v1/events/stream endpoint, for hosts without NATS access.
type SSESubscriber struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu      sync.Mutex
	cancels []func()
}

var _ events.Subscriber = (*SSESubscriber)(nil)

// NewSSESubscriber creates a subscriber against the given base URL.
func NewSSESubscriber(baseURL, token string) *SSESubscriber {
	return &SSESubscriber{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Subscribe opens one event stream filtered to topic, which may use NATS
// style wildcards. The channel closes when the stream ends or cancel runs.
func (s *SSESubscriber) Subscribe(topic string) (<-chan events.Message, func(), error) {
	ctx, stop := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v1/events/stream?topics="+url.QueryEscape(topic), nil)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		stop()
		var body [512]byte
		n, _ := resp.Body.Read(body[:])
		return nil, nil, errorResponse(resp.StatusCode, body[:n])
	}

	ch := make(chan events.Message, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		readSSE(ctx, bufio.NewScanner(resp.Body), ch)
	}()

	var once sync.Once
	cancel := func() { once.Do(stop) }
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
	return ch, cancel, nil
}

// readSSE parses "event:" and "data:" fields and emits one message per
// blank-line-terminated event. Comments and ids are skipped.
func readSSE(ctx context.Context, sc *bufio.Scanner, ch chan<- events.Message) {
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var (
		topic string
		data  []string
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				select {
				case ch <- events.Message{Topic: topic, Data: []byte(strings.Join(data, "\n"))}:
				case <-ctx.Done():
					return
				}
			}
			topic, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

// Close cancels every open stream.
func (s *SSESubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	return nil
}
