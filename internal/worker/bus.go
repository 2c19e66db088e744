package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

var (
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrNotInitialized is returned by a request sent before Initialize.
	ErrNotInitialized = errors.New("not initialized")
	// ErrWorkerError rejects requests after a worker-level fault.
	ErrWorkerError = apperr.Transport("Worker error occurred", nil)
	// ErrTerminated rejects requests pending at, or sent after, Terminate.
	ErrTerminated = apperr.Transport("worker terminated", nil)
)

// State is the lifecycle state of a Bus.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateTerminated
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Bus.
type Options struct {
	// Name identifies the worker in logs.
	Name string
	// Spawn starts the worker. Called once by Initialize with a context
	// that is never cancelled; Terminate ends the worker.
	Spawn func(ctx context.Context) (Port, error)
	// OnReady runs after the worker starts and before the bus is Ready.
	// It may send requests with the context it is given; other requests
	// fail with ErrNotInitialized until Initialize returns.
	OnReady func(ctx context.Context, b *Bus) error
	// Timeout bounds each request unless overridden with WithTimeout.
	// Zero means no deadline.
	Timeout time.Duration
	Logger  *slog.Logger
}

type result struct {
	data json.RawMessage
	err  error
}

// Bus is the client side of one worker.
type Bus struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	port    Port
	nextID  int64
	pending map[int64]chan result

	stop     chan struct{}
	stopOnce sync.Once
}

// New returns an uninitialized bus.
func New(opts Options) *Bus {
	return &Bus{
		opts:    opts,
		logger:  logging.Or(opts.Logger).With("worker", opts.Name),
		pending: make(map[int64]chan result),
		stop:    make(chan struct{}),
	}
}

// Initialize starts the worker and runs the ready hook. It may be called
// exactly once. Cancelling ctx aborts startup but not a started worker.
func (b *Bus) Initialize(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateUninitialized {
		b.mu.Unlock()
		return ErrAlreadyInitialized
	}
	b.state = StateInitializing
	b.mu.Unlock()

	port, err := b.opts.Spawn(context.WithoutCancel(ctx))
	if err != nil {
		b.setState(StateErrored)
		return fmt.Errorf("spawn %s worker: %w", b.opts.Name, err)
	}
	b.mu.Lock()
	b.port = port
	b.mu.Unlock()
	go b.listen(port)

	if b.opts.OnReady != nil {
		if err := b.opts.OnReady(context.WithValue(ctx, readyHookKey{}, b), b); err != nil {
			b.shutdown(StateErrored, ErrWorkerError)
			return fmt.Errorf("%s worker ready hook: %w", b.opts.Name, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateInitializing {
		return fmt.Errorf("%s worker: %s during initialize", b.opts.Name, b.state)
	}
	b.state = StateReady
	b.logger.Info("worker ready")
	return nil
}

// State returns the current lifecycle state.
func (b *Bus) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Pending returns the number of requests awaiting a response.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Request sends payload as msgType and waits for the matching response,
// the context, or the request timeout.
func (b *Bus) Request(ctx context.Context, msgType string, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Validation(msgType+": encode payload", err)
	}

	b.mu.Lock()
	switch b.state {
	case StateUninitialized:
		b.mu.Unlock()
		return nil, ErrNotInitialized
	case StateInitializing:
		if ctx.Value(readyHookKey{}) != b || b.port == nil {
			b.mu.Unlock()
			return nil, ErrNotInitialized
		}
	case StateTerminated:
		b.mu.Unlock()
		return nil, ErrTerminated
	case StateErrored:
		b.mu.Unlock()
		return nil, ErrWorkerError
	}
	b.nextID++
	id := b.nextID
	ch := make(chan result, 1)
	b.pending[id] = ch
	port := b.port
	b.mu.Unlock()

	timeout := b.opts.Timeout
	if d, ok := timeoutFrom(ctx); ok {
		timeout = d
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := port.PostMessage(Request{ID: id, Type: msgType, Payload: raw}); err != nil {
		b.forget(id)
		return nil, fmt.Errorf("%s: %w", msgType, err)
	}

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		b.forget(id)
		return nil, apperr.Transport(fmt.Sprintf("%s request %d (%s) abandoned", b.opts.Name, id, msgType), ctx.Err())
	}
}

// RequestInto sends a request and parses the response data into T.
func RequestInto[T any](ctx context.Context, b *Bus, msgType string, payload any) (T, error) {
	data, err := b.Request(ctx, msgType, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return schema.Parse[T](data)
}

// Terminate stops the worker and rejects every pending request with
// ErrTerminated. Safe to call more than once.
func (b *Bus) Terminate() {
	b.shutdown(StateTerminated, ErrTerminated)
}

func (b *Bus) listen(port Port) {
	for {
		select {
		case <-b.stop:
			return
		case resp, ok := <-port.Messages():
			if !ok {
				return
			}
			b.deliver(resp)
		case err, ok := <-port.Errors():
			if !ok {
				return
			}
			b.logger.Error("worker error", "error", err)
			b.shutdown(StateErrored, ErrWorkerError)
			return
		}
	}
}

func (b *Bus) deliver(resp Response) {
	b.mu.Lock()
	ch, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()
	if !ok {
		b.logger.Warn("dropping response for unknown request", "id", resp.ID, "type", resp.Type)
		return
	}
	if resp.Error != "" {
		ch <- result{err: &RemoteError{Type: resp.Type, OriginalType: resp.OriginalType, Message: resp.Error}}
		return
	}
	ch <- result{data: resp.Data}
}

// shutdown moves the bus to a final state, rejects pending requests with
// reason and stops the port.
func (b *Bus) shutdown(final State, reason error) {
	b.mu.Lock()
	if b.state == StateTerminated || (b.state == StateErrored && final == StateErrored) {
		b.mu.Unlock()
		return
	}
	b.state = final
	pending := b.pending
	b.pending = make(map[int64]chan result)
	port := b.port
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- result{err: reason}
	}
	if len(pending) > 0 {
		b.logger.Warn("rejected pending requests", "count", len(pending), "reason", reason)
	}
	b.stopOnce.Do(func() { close(b.stop) })
	if port != nil {
		port.Terminate()
	}
}

func (b *Bus) forget(id int64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Bus) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// readyHookKey marks the context handed to OnReady; only it may send
// requests while the bus is initializing.
type readyHookKey struct{}

type timeoutKey struct{}

// WithTimeout overrides the bus request timeout for requests sent with
// the returned context. A zero d disables the deadline.
func WithTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, timeoutKey{}, d)
}

func timeoutFrom(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(timeoutKey{}).(time.Duration)
	return d, ok
}
