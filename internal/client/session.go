package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

var (
	ErrEditPending = errors.New("an edit for this item is already in flight")
	ErrUnknownItem = errors.New("item not in local view")
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSynced:
		return "synced"
	default:
		return "disconnected"
	}
}

// API is the CRUD surface as seen from a session.
type API interface {
	Snapshot(ctx context.Context) ([]domain.Item, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Item, error)
}

// Transport is the server-push event channel.
type Transport interface {
	// Open establishes the push channel. The returned connection's
	// Events channel is closed when the transport closes for any
	// reason.
	Open(ctx context.Context) (TransportConn, error)
}

type TransportConn interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

type Options struct {
	// ReconnectDelay is the fixed wait between reconnect attempts.
	// Defaults to 3s. Retries are unbounded.
	ReconnectDelay time.Duration

	// EditTimeout bounds one quantity-change request. Defaults to 10s.
	EditTimeout time.Duration

	// Render, when set, is called after every view mutation with a
	// sorted copy of the items and the set of ids with an outstanding
	// edit. It must tolerate an empty view.
	Render func(items []domain.Item, pending map[int64]bool)

	// OnEditFailed, when set, is called when an accepted edit comes
	// back rejected and the speculative value has been reverted.
	OnEditFailed func(id int64, err error)
}

// Session keeps one client's local view reconciled against the event
// stream. All state lives on a single goroutine inside Run, which
// multiplexes incoming events, user edits, and edit results; an
// in-flight edit never blocks event application, and event
// application always wins.
type Session struct {
	api       API
	transport Transport
	opts      Options

	view *View

	edits   chan editRequest
	results chan editResult

	mu    sync.Mutex
	state State
}

type editRequest struct {
	id       int64
	quantity int
	reply    chan error
}

type editResult struct {
	id    int64
	token uint64
	err   error
}

func NewSession(api API, transport Transport, opts Options) *Session {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.EditTimeout <= 0 {
		opts.EditTimeout = 10 * time.Second
	}
	return &Session{
		api:       api,
		transport: transport,
		opts:      opts,
		view:      NewView(),
		edits:     make(chan editRequest),
		results:   make(chan editResult, 16),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Edit requests a quantity change for one item. It returns nil once
// the edit is accepted (speculatively applied and sent), ErrEditPending
// when an edit for the id is already outstanding, or ErrUnknownItem.
// The eventual server rejection, if any, arrives via OnEditFailed.
func (s *Session) Edit(ctx context.Context, id int64, quantity int) error {
	req := editRequest{id: id, quantity: quantity, reply: make(chan error, 1)}
	select {
	case s.edits <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the session until ctx is done: connect, sync a snapshot,
// process events and edits, and on transport loss retry forever with a
// fixed delay. The view is kept across disconnects but is stale until
// the next snapshot replaces it.
func (s *Session) Run(ctx context.Context) error {
	for {
		s.setState(StateConnecting)

		conn, items, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				return ctx.Err()
			}
			log.Printf("[client] connect failed, retrying in %s: %v", s.opts.ReconnectDelay, err)
			s.setState(StateDisconnected)
			if err := s.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		s.view.ReplaceAll(items)
		s.setState(StateSynced)
		s.render()

		s.loop(ctx, conn)
		conn.Close()
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[client] transport closed, reconnecting in %s", s.opts.ReconnectDelay)
		if err := s.sleep(ctx); err != nil {
			return err
		}
	}
}

// connect opens the transport and fetches the snapshot concurrently;
// both must succeed before the session is synced.
func (s *Session) connect(ctx context.Context) (TransportConn, []domain.Item, error) {
	type openRes struct {
		conn TransportConn
		err  error
	}
	type snapRes struct {
		items []domain.Item
		err   error
	}

	openCh := make(chan openRes, 1)
	snapCh := make(chan snapRes, 1)

	go func() {
		conn, err := s.transport.Open(ctx)
		openCh <- openRes{conn, err}
	}()
	go func() {
		items, err := s.api.Snapshot(ctx)
		snapCh <- snapRes{items, err}
	}()

	open := <-openCh
	snap := <-snapCh

	if open.err != nil {
		return nil, nil, open.err
	}
	if snap.err != nil {
		open.conn.Close()
		return nil, nil, snap.err
	}
	return open.conn, snap.items, nil
}

// loop is the single-threaded heart of reconciliation. It returns when
// the transport closes or ctx is done.
func (s *Session) loop(ctx context.Context, conn TransportConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			s.view.Apply(ev)
			s.render()
		case req := <-s.edits:
			s.startEdit(ctx, req)
		case res := <-s.results:
			s.finishEdit(res)
		}
	}
}

func (s *Session) startEdit(ctx context.Context, req editRequest) {
	if _, ok := s.view.Get(req.id); !ok {
		req.reply <- ErrUnknownItem
		return
	}
	token, ok := s.view.BeginEdit(req.id, req.quantity)
	if !ok {
		req.reply <- ErrEditPending
		return
	}
	req.reply <- nil
	s.render()

	// The request runs off-loop so a slow server stalls only this
	// item, never event application. The result is fed back into the
	// loop to keep all state single-threaded.
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, s.opts.EditTimeout)
		defer cancel()
		_, err := s.api.UpdateQuantity(reqCtx, req.id, req.quantity)
		select {
		case s.results <- editResult{id: req.id, token: token, err: err}:
		case <-ctx.Done():
		}
	}()
}

// finishEdit settles an edit result. A success needs no action: the
// speculative value stands until the echoed ChangeEvent confirms or
// corrects it, and that event also clears the pending marker. A
// failure reverts the speculative write, unless an event already
// settled the item first.
func (s *Session) finishEdit(res editResult) {
	if res.err == nil {
		return
	}
	if s.view.RevertEdit(res.id, res.token) {
		s.render()
	}
	log.Printf("[client] edit of item %d failed: %v", res.id, res.err)
	if s.opts.OnEditFailed != nil {
		s.opts.OnEditFailed(res.id, res.err)
	}
}

func (s *Session) render() {
	if s.opts.Render == nil {
		return
	}
	s.opts.Render(s.view.Items(), s.view.PendingIDs())
}

func (s *Session) sleep(ctx context.Context) error {
	timer := time.NewTimer(s.opts.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
