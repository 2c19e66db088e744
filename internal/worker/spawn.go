package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
)

// Port is one end of a worker connection.
type Port interface {
	// PostMessage enqueues a request for the worker.
	PostMessage(req Request) error
	// Messages delivers responses in the order the worker produced them.
	Messages() <-chan Response
	// Errors delivers worker-level faults that belong to no request.
	Errors() <-chan error
	// Terminate stops the worker. Safe to call more than once.
	Terminate()
}

const queueSize = 64

type localPort struct {
	in     chan Request
	out    chan Response
	errs   chan error
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// Spawn starts an in-process worker running r on its own goroutine.
// Requests are handled one at a time in arrival order. Cancelling ctx
// kills the worker and reports a fault on Errors.
func Spawn(ctx context.Context, r *Router, logger *slog.Logger) Port {
	p := &localPort{
		in:     make(chan Request, queueSize),
		out:    make(chan Response, queueSize),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		logger: logging.Or(logger),
	}
	go p.run(ctx, r)
	return p
}

func (p *localPort) run(ctx context.Context, r *Router) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			p.logger.Error("worker context ended", "error", ctx.Err())
			select {
			case p.errs <- fmt.Errorf("worker stopped: %w", ctx.Err()):
			default:
			}
			return
		case req := <-p.in:
			resp := r.Dispatch(ctx, req)
			select {
			case p.out <- resp:
			case <-p.done:
				return
			}
		}
	}
}

func (p *localPort) PostMessage(req Request) error {
	select {
	case <-p.done:
		return apperr.Transport("post message: worker terminated", nil)
	default:
	}
	select {
	case p.in <- req:
		return nil
	case <-p.done:
		return apperr.Transport("post message: worker terminated", nil)
	}
}

func (p *localPort) Messages() <-chan Response { return p.out }

func (p *localPort) Errors() <-chan error { return p.errs }

func (p *localPort) Terminate() {
	p.once.Do(func() { close(p.done) })
}

type ownedPort struct {
	Port
	res  io.Closer
	once sync.Once
}

// Owned ties res to p: terminating the port also closes res, after the
// worker has stopped taking requests.
func Owned(p Port, res io.Closer) Port {
	return &ownedPort{Port: p, res: res}
}

func (p *ownedPort) Terminate() {
	p.Port.Terminate()
	p.once.Do(func() { p.res.Close() })
}
