package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// natsBufferSize bounds messages queued between the NATS reader and the handler.
const natsBufferSize = 256

// NATSConfig holds configuration for the NATS transport
type NATSConfig struct {
	URL            string
	Subject        string // e.g. "prophecy.events.>"
	Token          string
	Name           string
	ConnectTimeout time.Duration
}

// DefaultNATSConfig returns default NATS transport configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		Subject:        "prophecy.events.>",
		Name:           "prophecy-mirror",
		ConnectTimeout: 5 * time.Second,
	}
}

// NATS receives events published on a subject hierarchy. The subject
// "prophecy.events.round.created" carries event type "round:created".
type NATS struct {
	config NATSConfig
}

// NewNATS creates a new NATS transport
func NewNATS(config NATSConfig) *NATS {
	return &NATS{config: config}
}

// Subscribe connects, subscribes and blocks until the connection drops
func (n *NATS) Subscribe(ctx context.Context, h Handler) error {
	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	opts := []nats.Option{
		nats.Name(n.config.Name),
		nats.Timeout(n.timeout()),
		// The connector owns reconnection and backoff.
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				err = ErrStreamClosed
			}
			report(fmt.Errorf("NATS disconnected: %w", err))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			report(ErrStreamClosed)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	if n.config.Token != "" {
		opts = append(opts, nats.Token(n.config.Token))
	}

	nc, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	prefix := strings.TrimSuffix(strings.TrimSuffix(n.config.Subject, ">"), "*")
	msgCh := make(chan *nats.Msg, natsBufferSize)
	sub, err := nc.ChanSubscribe(n.config.Subject, msgCh)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", n.config.Subject, err)
	}
	defer sub.Unsubscribe()

	// FlushWithContext refuses contexts without a deadline.
	flushCtx, cancel := context.WithTimeout(ctx, n.timeout())
	err = nc.FlushWithContext(flushCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("flush subscription: %w", err)
	}

	log.Debug().
		Str("url", nc.ConnectedUrl()).
		Str("subject", n.config.Subject).
		Msg("NATS subscription opened")
	h.Opened()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-msgCh:
			h.Received(messageFromNATS(prefix, m))
		case err := <-errCh:
			if errors.Is(err, ErrStreamClosed) && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (n *NATS) timeout() time.Duration {
	if n.config.ConnectTimeout > 0 {
		return n.config.ConnectTimeout
	}
	return nats.DefaultTimeout
}

// messageFromNATS prefers an enveloped type, then the Event-Type header,
// then the subject suffix.
func messageFromNATS(prefix string, m *nats.Msg) Message {
	msg := decodeEnvelope(m.Data)
	if msg.Event != "" {
		return msg
	}
	if eventType := m.Header.Get("Event-Type"); eventType != "" {
		return Message{Event: eventType, Data: m.Data}
	}
	suffix := strings.TrimPrefix(m.Subject, prefix)
	if i := strings.LastIndex(suffix, "."); i > 0 {
		suffix = suffix[:i] + ":" + suffix[i+1:]
	}
	return Message{Event: suffix, Data: m.Data}
}
