package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSSEPath is the push endpoint of the Prophecy API.
const DefaultSSEPath = "/api/sse"

// SSEConfig holds configuration for the server-sent events transport
type SSEConfig struct {
	URL            string
	Header         http.Header   // e.g. the session cookie
	ConnectTimeout time.Duration // bounds the wait for response headers only
}

// DefaultSSEConfig returns the configuration for an API at baseURL
func DefaultSSEConfig(baseURL string) SSEConfig {
	return SSEConfig{
		URL:            strings.TrimRight(baseURL, "/") + DefaultSSEPath,
		Header:         http.Header{},
		ConnectTimeout: 10 * time.Second,
	}
}

// SSE streams named events from a text/event-stream endpoint
type SSE struct {
	config SSEConfig
	client *http.Client
}

// NewSSE creates a new SSE transport
func NewSSE(config SSEConfig) *SSE {
	return &SSE{
		config: config,
		client: &http.Client{
			// No overall timeout: the response body is a standing stream.
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: config.ConnectTimeout,
			},
		},
	}
}

// Subscribe opens the stream and blocks until it ends
func (s *SSE) Subscribe(ctx context.Context, h Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range s.config.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", s.config.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("event stream returned status code: %d, response: %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return fmt.Errorf("unexpected content type %q", ct)
	}

	log.Debug().Str("url", s.config.URL).Msg("event stream opened")
	h.Opened()

	err = readEvents(resp.Body, h)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// readEvents parses the event-stream format until the body ends.
func readEvents(body io.Reader, h Handler) error {
	reader := bufio.NewReader(body)

	var (
		event string
		id    string
		data  bytes.Buffer
		seen  bool
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read event stream: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if seen {
				msg := Message{Event: event, ID: id, Data: bytes.TrimSuffix(data.Bytes(), []byte("\n"))}
				if msg.Event == "" {
					msg.Event = "message"
				}
				msg.Data = append([]byte(nil), msg.Data...)
				h.Received(msg)
			}
			event, seen = "", false
			data.Reset()
			continue
		}

		if strings.HasPrefix(line, ":") {
			// Comment lines are keep-alives; they still count as traffic.
			h.Received(Message{Event: "ping"})
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			seen = true
		case "id":
			id = value
		case "retry":
			// The connector owns the reconnect delay.
		}
	}
}
