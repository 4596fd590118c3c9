package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/prophecy/go/internal/realtime"
)

// InitialDataEndpoint returns every entity the session may see in one read.
const InitialDataEndpoint = "/api/initial-data"

// SessionCookie is the cookie the Prophecy API authenticates with.
const SessionCookie = "session"

type ProphecyClient struct {
	*BaseClient
}

func NewProphecyClient(baseURL, sessionToken string) *ProphecyClient {
	client := &ProphecyClient{
		BaseClient: NewBaseClient(strings.TrimRight(baseURL, "/")),
	}

	if sessionToken != "" {
		client.SetHeader("Cookie", SessionCookie+"="+sessionToken)
	}

	return client
}

// initialDataResponse is the success/data pair returned by the endpoint.
type initialDataResponse struct {
	Success bool               `json:"success"`
	Data    *realtime.Snapshot `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// FetchSnapshot implements realtime.SnapshotSource.
func (c *ProphecyClient) FetchSnapshot(ctx context.Context) (*realtime.Snapshot, error) {
	body, err := c.Get(ctx, InitialDataEndpoint)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			if msg := decodeErrorDescriptor(statusErr.Body); msg != "" {
				return nil, fmt.Errorf("%w: %s (status %d)", realtime.ErrSnapshotPayload, msg, statusErr.StatusCode)
			}
		}
		return nil, err
	}

	var resp initialDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal initial data: %w", err)
	}

	if !resp.Success || resp.Data == nil {
		msg := resp.Error
		if msg == "" {
			msg = "no data"
		}
		return nil, fmt.Errorf("%w: %s", realtime.ErrSnapshotPayload, msg)
	}

	return resp.Data, nil
}

func decodeErrorDescriptor(body []byte) string {
	var resp initialDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error
}
