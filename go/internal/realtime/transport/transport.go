// Package transport opens push connections to the Prophecy event stream.
//
// Every transport follows the same contract: Subscribe blocks for the
// lifetime of one connection, reports the successful open exactly once,
// hands every inbound message to the handler in delivery order, and returns
// when the connection ends. Reconnection is the caller's job.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrStreamClosed is returned when the server ends the stream cleanly.
var ErrStreamClosed = errors.New("stream closed by server")

// Message is one named event as delivered by the push endpoint.
type Message struct {
	Event string
	Data  []byte
	ID    string
}

// Handler receives connection callbacks. Calls are made from the
// transport's goroutine and never concurrently.
type Handler interface {
	Opened()
	Received(msg Message)
}

// Transport opens one push connection per Subscribe call.
type Transport interface {
	Subscribe(ctx context.Context, h Handler) error
}

// envelope is the framing used by transports without named events.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   string          `json:"id,omitempty"`
}

// decodeEnvelope turns a framed payload into a Message. A frame that is not
// an envelope is still delivered, untyped, so it counts as traffic.
func decodeEnvelope(raw []byte) Message {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		return Message{Data: raw}
	}
	return Message{Event: env.Type, Data: env.Data, ID: env.ID}
}
