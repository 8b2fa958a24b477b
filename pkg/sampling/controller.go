package sampling

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const inboxSize = 16

// Controller drives one background Worker. Control messages are
// delivered in send order; sends fail with ErrWorkerDead once the
// worker has exited.
type Controller struct {
	inbox  chan Envelope
	worker *Worker
	done   chan struct{}
	err    error
}

// Spawn builds a Worker from cfg and starts it in its own goroutine. The
// worker stops when ctx is cancelled.
func Spawn(ctx context.Context, cfg Config) (*Controller, error) {
	inbox := make(chan Envelope, inboxSize)
	w, err := NewWorker(ctx, cfg, inbox)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	c := &Controller{
		inbox:  inbox,
		worker: w,
		done:   make(chan struct{}),
	}
	go func() {
		c.err = w.Run(ctx)
		close(c.done)
	}()
	return c, nil
}

// Send delivers raw protocol text. ack, when non-nil, must be buffered.
func (c *Controller) Send(text string, ack chan<- FlushResult) error {
	select {
	case <-c.done:
		return c.deadErr()
	default:
	}

	select {
	case c.inbox <- Envelope{Text: text, Ack: ack}:
		return nil
	case <-c.done:
		return c.deadErr()
	}
}

// StartSession asks the worker to start sampling into path.
func (c *Controller) StartSession(path string) error {
	if path == "" || strings.ContainsAny(path, " \t\r\n\v\f") {
		return fmt.Errorf("invalid session path %q", path)
	}
	return c.Send("start "+path, nil)
}

// StopSession asks the worker to flush the current session. It does not
// wait for the flush; use StopSessionSync to read the file afterwards.
func (c *Controller) StopSession() error {
	return c.Send("stop", nil)
}

// StopSessionSync stops the current session and waits for its flush.
func (c *Controller) StopSessionSync(ctx context.Context) (FlushResult, error) {
	ack := make(chan FlushResult, 1)
	if err := c.Send("stop", ack); err != nil {
		return FlushResult{}, err
	}

	select {
	case res := <-ack:
		return res, res.Err
	case <-c.done:
		select {
		case res := <-ack:
			return res, res.Err
		default:
		}
		return FlushResult{}, c.deadErr()
	case <-ctx.Done():
		return FlushResult{}, ctx.Err()
	}
}

// Shutdown sends exit, waits for the worker and returns its exit error.
func (c *Controller) Shutdown() error {
	if err := c.Send("exit", nil); err != nil && !errors.Is(err, ErrWorkerDead) {
		return err
	}
	<-c.done
	return c.err
}

func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the worker's exit error, or nil while it is running.
func (c *Controller) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Controller) State() State {
	return c.worker.State()
}

func (c *Controller) MetricNames() []string {
	return c.worker.MetricNames()
}

func (c *Controller) deadErr() error {
	if c.err != nil {
		return fmt.Errorf("%w: %w", ErrWorkerDead, c.err)
	}
	return ErrWorkerDead
}
