package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultWebSocketPath is the WebSocket flavour of the push endpoint.
const DefaultWebSocketPath = "/api/ws"

// WebSocketConfig holds configuration for the WebSocket transport
type WebSocketConfig struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
}

// DefaultWebSocketConfig returns the configuration for an API at baseURL.
// http(s) schemes are rewritten to ws(s).
func DefaultWebSocketConfig(baseURL string) WebSocketConfig {
	url := strings.TrimRight(baseURL, "/") + DefaultWebSocketPath
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return WebSocketConfig{
		URL:              url,
		Header:           http.Header{},
		HandshakeTimeout: 10 * time.Second,
		MaxMessageSize:   1 << 20, // 1MB
		ReadBufferSize:   4096,
		WriteBufferSize:  1024,
	}
}

// WebSocket receives enveloped events over a WebSocket connection
type WebSocket struct {
	config WebSocketConfig
	dialer *websocket.Dialer
}

// NewWebSocket creates a new WebSocket transport
func NewWebSocket(config WebSocketConfig) *WebSocket {
	return &WebSocket{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
	}
}

// Subscribe dials the endpoint and blocks until the connection ends
func (w *WebSocket) Subscribe(ctx context.Context, h Handler) error {
	conn, resp, err := w.dialer.DialContext(ctx, w.config.URL, w.config.Header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", w.config.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", w.config.URL, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller cancels.
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	conn.SetReadLimit(w.config.MaxMessageSize)
	conn.SetPingHandler(func(appData string) error {
		h.Received(Message{Event: "ping"})
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	log.Debug().Str("url", w.config.URL).Msg("websocket opened")
	h.Opened()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read websocket: %w", err)
		}
		h.Received(decodeEnvelope(raw))
	}
}
