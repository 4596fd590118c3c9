package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prophecy/go/internal/realtime/transport"
	"github.com/rs/zerolog/log"
)

// State is the position of a Syncer in its connection lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateRetrying   State = "disconnected-retrying"
	StateClosed     State = "closed"
)

// ConnectionStatus is the derived health of the push connection. It may
// lag reality by up to the heartbeat window.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

var (
	// ErrAlreadyStarted is returned when Run is called twice.
	ErrAlreadyStarted = errors.New("syncer already started")
	// ErrHeartbeatExpired marks a connection that went silent.
	ErrHeartbeatExpired = errors.New("no traffic within heartbeat window")
)

// Config holds configuration for a Syncer
type Config struct {
	Backoff         Backoff
	HeartbeatWindow time.Duration
	Clock           clockwork.Clock
}

// DefaultConfig returns the reconnect and heartbeat policy of the web client
func DefaultConfig() Config {
	return Config{
		Backoff: Backoff{
			Base: 1 * time.Second,
			Max:  30 * time.Second,
		},
		HeartbeatWindow: 45 * time.Second,
		Clock:           clockwork.NewRealClock(),
	}
}

type connEventKind int

const (
	connOpened connEventKind = iota
	connMessage
	connEnded
)

// connEvent is a transport callback tagged with the connection generation
// it belongs to.
type connEvent struct {
	gen  uint64
	kind connEventKind
	msg  transport.Message
	err  error
}

// snapshotResult carries the fetch sequence number it was started under so
// a slow reload cannot overwrite a newer one.
type snapshotResult struct {
	seq     uint64
	snap    *Snapshot
	err     error
	initial bool
}

// Syncer keeps a session's store live: it loads the snapshot, holds a push
// connection open once the session is ready, and applies every event to
// the store. All state changes happen on the goroutine running Run.
type Syncer struct {
	session    *Session
	loader     *Loader
	dispatcher *Dispatcher
	transport  transport.Transport
	config     Config
	clock      clockwork.Clock

	started atomic.Bool

	mu           sync.RWMutex
	state        State
	status       ConnectionStatus
	lastActivity time.Time
	changes      chan ConnectionStatus

	// Owned by the run loop.
	events     chan connEvent
	snapshots  chan snapshotResult
	gen        uint64
	fetchSeq   uint64
	installed  uint64
	attempts   int
	cancelConn context.CancelFunc
	heartbeat  clockwork.Timer
	retry      clockwork.Timer
	wg         sync.WaitGroup
}

// NewSyncer creates a syncer for session. Several syncers may share one
// session over time; only the first to complete a snapshot fetches it.
func NewSyncer(config Config, session *Session, source SnapshotSource, tr transport.Transport) *Syncer {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &Syncer{
		session:    session,
		loader:     NewLoader(source, session),
		dispatcher: NewDispatcher(session.Store()),
		transport:  tr,
		config:     config,
		clock:      config.Clock,
		state:      StateIdle,
		status:     StatusDisconnected,
		changes:    make(chan ConnectionStatus, 16),
		events:     make(chan connEvent, 256),
		snapshots:  make(chan snapshotResult, 2),
	}
}

func (s *Syncer) Session() *Session { return s.session }

// Ready reports whether the session's snapshot has been installed.
func (s *Syncer) Ready() bool { return s.session.Ready() }

// State returns the current lifecycle state
func (s *Syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns the current connection status
func (s *Syncer) Status() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LastActivity returns when the push connection last showed traffic.
func (s *Syncer) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Changes delivers connection status transitions. It is closed when Run
// returns. Transitions are dropped if the reader falls behind.
func (s *Syncer) Changes() <-chan ConnectionStatus {
	return s.changes
}

// Run drives the syncer until ctx is cancelled. Connection and snapshot
// failures are recovered internally and never returned.
func (s *Syncer) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer s.shutdown()

	log.Info().
		Str("session_id", s.session.ID).
		Bool("ready", s.session.Ready()).
		Msg("syncer started")

	if s.session.Ready() {
		s.connect(ctx)
	} else {
		s.startFetch(ctx, true)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-s.snapshots:
			s.handleSnapshot(ctx, res)
		case ev := <-s.events:
			s.handleConnEvent(ev)
		case <-timerChan(s.heartbeat):
			s.heartbeat = nil
			s.fail(ErrHeartbeatExpired)
		case <-timerChan(s.retry):
			s.retry = nil
			s.reconnect(ctx)
		}
	}
}

func (s *Syncer) startFetch(ctx context.Context, initial bool) {
	s.fetchSeq++
	go s.fetchSnapshot(ctx, s.fetchSeq, initial)
}

// fetchSnapshot runs off the loop; its result is installed by the loop, or
// discarded if the syncer has stopped.
func (s *Syncer) fetchSnapshot(ctx context.Context, seq uint64, initial bool) {
	snap, err := s.loader.Fetch(ctx)
	select {
	case s.snapshots <- snapshotResult{seq: seq, snap: snap, err: err, initial: initial}:
	case <-ctx.Done():
	}
}

func (s *Syncer) handleSnapshot(ctx context.Context, res snapshotResult) {
	if res.err != nil {
		// Already logged by the loader. Readiness stays as it was.
		return
	}
	if res.seq < s.installed {
		log.Debug().
			Uint64("seq", res.seq).
			Uint64("installed", s.installed).
			Msg("discarding superseded snapshot")
		return
	}
	s.installed = res.seq
	s.loader.Install(res.snap)

	if res.initial && s.State() == StateIdle {
		s.connect(ctx)
	}
}

// connect opens a new connection, closing any previous one first.
func (s *Syncer) connect(ctx context.Context) {
	s.closeConn()

	s.gen++
	gen := s.gen
	connCtx, cancel := context.WithCancel(ctx)
	s.cancelConn = cancel
	s.setState(StateConnecting)

	h := &connHandler{gen: gen, events: s.events, done: connCtx.Done()}
	connID := uuid.New().String()

	log.Debug().
		Str("connection_id", connID).
		Uint64("generation", gen).
		Int("attempts", s.attempts).
		Msg("opening push connection")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.transport.Subscribe(connCtx, h)
		h.post(connEvent{gen: gen, kind: connEnded, err: err})
	}()
}

func (s *Syncer) reconnect(ctx context.Context) {
	log.Info().
		Str("session_id", s.session.ID).
		Int("attempts", s.attempts).
		Msg("reconnecting push connection")

	s.connect(ctx)
	s.startFetch(ctx, false)
}

func (s *Syncer) handleConnEvent(ev connEvent) {
	if ev.gen != s.gen {
		return
	}

	switch ev.kind {
	case connOpened:
		s.attempts = 0
		s.armHeartbeat()
		s.touch()
		s.setState(StateConnected)
		s.setStatus(StatusConnected)
		log.Info().Str("session_id", s.session.ID).Msg("push connection established")

	case connMessage:
		s.armHeartbeat()
		s.touch()
		s.dispatcher.Dispatch(EventType(ev.msg.Event), ev.msg.Data)

	case connEnded:
		if ev.err == nil {
			ev.err = transport.ErrStreamClosed
		}
		s.fail(ev.err)
	}
}

// fail tears the current connection down and schedules the next attempt.
func (s *Syncer) fail(err error) {
	if s.State() == StateRetrying {
		return
	}

	s.closeConn()
	stopTimer(s.heartbeat)
	s.heartbeat = nil

	delay := s.config.Backoff.Delay(s.attempts)
	s.attempts++
	s.retry = s.clock.NewTimer(delay)

	s.setStatus(StatusDisconnected)
	s.setState(StateRetrying)

	log.Warn().
		Err(err).
		Str("session_id", s.session.ID).
		Int("attempts", s.attempts).
		Dur("delay", delay).
		Msg("push connection lost, scheduling reconnect")
}

// closeConn cancels the active connection. Callbacks it already queued are
// ignored because the generation moves on.
func (s *Syncer) closeConn() {
	if s.cancelConn != nil {
		s.cancelConn()
		s.cancelConn = nil
	}
	s.gen++
}

func (s *Syncer) armHeartbeat() {
	stopTimer(s.heartbeat)
	s.heartbeat = s.clock.NewTimer(s.config.HeartbeatWindow)
}

func (s *Syncer) shutdown() {
	s.closeConn()
	stopTimer(s.heartbeat)
	stopTimer(s.retry)
	s.heartbeat, s.retry = nil, nil
	s.wg.Wait()

	s.setState(StateClosed)
	s.setStatus(StatusDisconnected)
	close(s.changes)

	log.Info().Str("session_id", s.session.ID).Msg("syncer stopped")
}

func (s *Syncer) touch() {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Syncer) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Syncer) setStatus(status ConnectionStatus) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.changes <- status:
	default:
		log.Warn().Str("status", string(status)).Msg("status change channel full, dropping transition")
	}
}

// connHandler forwards transport callbacks into the run loop. Once the
// connection is cancelled, callbacks are dropped instead of blocking.
type connHandler struct {
	gen    uint64
	events chan<- connEvent
	done   <-chan struct{}
}

func (h *connHandler) Opened() {
	h.post(connEvent{gen: h.gen, kind: connOpened})
}

func (h *connHandler) Received(msg transport.Message) {
	h.post(connEvent{gen: h.gen, kind: connMessage, msg: msg})
}

func (h *connHandler) post(ev connEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// timerChan returns t's channel, or nil so an unarmed timer never fires in
// a select.
func timerChan(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

// stopTimer stops t and drains its channel if it already fired.
func stopTimer(t clockwork.Timer) {
	if t == nil {
		return
	}
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
