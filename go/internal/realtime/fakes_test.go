package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prophecy/go/internal/models"
	"github.com/mcdev12/prophecy/go/internal/realtime/transport"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// fakeSource returns snapshots from fn, counting calls. A non-nil gate
// holds every fetch until it is closed.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
	fn    func(call int) (*Snapshot, error)
}

func staticSource(snap *Snapshot) *fakeSource {
	return &fakeSource{fn: func(int) (*Snapshot, error) { return snap, nil }}
}

func (f *fakeSource) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.fn(call)
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTransport hands every Subscribe call to the test as a fakeConn.
type fakeTransport struct {
	conns chan *fakeConn
}

type fakeConn struct {
	ctx context.Context
	h   transport.Handler
	end chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: make(chan *fakeConn, 16)}
}

func (f *fakeTransport) Subscribe(ctx context.Context, h transport.Handler) error {
	c := &fakeConn{ctx: ctx, h: h, end: make(chan error, 1)}
	select {
	case f.conns <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.end:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("expected a connection attempt")
		return nil
	}
}

func (f *fakeTransport) none(t *testing.T) {
	t.Helper()
	select {
	case <-f.conns:
		t.Fatal("unexpected connection attempt")
	case <-time.After(50 * time.Millisecond):
	}
}

func (c *fakeConn) open() { c.h.Opened() }

func (c *fakeConn) send(event string, payload any) {
	data, ok := payload.(string)
	if !ok {
		raw, _ := json.Marshal(payload)
		data = string(raw)
	}
	c.h.Received(transport.Message{Event: event, Data: []byte(data)})
}

func (c *fakeConn) fail(err error) { c.end <- err }

func (c *fakeConn) closed() bool { return c.ctx.Err() != nil }

// harness runs a Syncer on a fake clock.
type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	syncer *Syncer
	tr     *fakeTransport
	src    *fakeSource
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
}

func newHarness(t *testing.T, session *Session, src *fakeSource) *harness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.Clock = clock
	tr := newFakeTransport()

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t:      t,
		clock:  clock,
		syncer: NewSyncer(cfg, session, src, tr),
		tr:     tr,
		src:    src,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { h.done <- h.syncer.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.once.Do(func() {
		h.cancel()
		select {
		case err := <-h.done:
			require.NoError(h.t, err)
		case <-time.After(waitFor):
			h.t.Fatal("syncer did not stop")
		}
	})
}

// advance moves the fake clock once exactly one timer is armed.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(h.t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(d)
}

func (h *harness) waitState(state State) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.syncer.State() == state }, waitFor, time.Millisecond)
}

// connected runs the initial snapshot and opens the first connection.
func (h *harness) connected() *fakeConn {
	h.t.Helper()
	c := h.tr.next(h.t)
	c.open()
	h.waitState(StateConnected)
	return c
}

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Users:       []models.User{{ID: "u1", Username: "cassandra"}},
		Rounds:      []models.Round{{ID: "r1", Title: "Spring"}},
		Prophecies:  []models.Prophecy{},
		Ratings:     []models.Rating{},
		CurrentUser: &models.User{ID: "u1", Username: "cassandra"},
	}
}

func roundIDs(s *Store) []string {
	var ids []string
	for _, r := range s.Rounds().All() {
		ids = append(ids, r.ID)
	}
	return ids
}
