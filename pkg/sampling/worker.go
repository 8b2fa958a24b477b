package sampling

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ResourceMonitor/pkg/collecting"
	"ResourceMonitor/pkg/logutil"
	"ResourceMonitor/pkg/utils"
)

type State int32

const (
	Idle State = iota
	Sampling
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// TargetResolver returns the pid of the process to sample.
type TargetResolver func() (int32, error)

// SelfTarget samples the hosting process.
func SelfTarget() (int32, error) {
	return int32(os.Getpid()), nil
}

// ParentTarget samples the parent of the hosting process.
func ParentTarget() (int32, error) {
	ppid := os.Getppid()
	if ppid <= 0 {
		return 0, ErrNoParent
	}
	return int32(ppid), nil
}

func PIDTarget(pid int32) TargetResolver {
	return func() (int32, error) { return pid, nil }
}

// SamplerFactory opens a sampler on the resolved target.
type SamplerFactory func(ctx context.Context, pid int32) (collecting.ProcessSampler, error)

func defaultSampler(ctx context.Context, pid int32) (collecting.ProcessSampler, error) {
	return collecting.NewProcessCollector(ctx, pid)
}

// Config configures a Worker. Zero fields take defaults: the default
// interval, SelfTarget, no GPU, the gopsutil sampler and the monotonic clock.
type Config struct {
	Interval   time.Duration
	Target     TargetResolver
	GPU        collecting.GPUSource
	NewSampler SamplerFactory
	Clock      func() float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = utils.DefaultInterval
	}
	if c.Target == nil {
		c.Target = SelfTarget
	}
	if c.GPU == nil {
		c.GPU = collecting.NoGPU{}
	}
	if c.NewSampler == nil {
		c.NewSampler = defaultSampler
	}
	if c.Clock == nil {
		c.Clock = utils.Monotonic
	}
	return c
}

// Worker owns the sample buffer and the target handle and runs the
// start/sample/stop/flush state machine against its inbox.
type Worker struct {
	cfg     Config
	inbox   <-chan Envelope
	manager *collecting.Manager
	buffer  *Buffer
	state   atomic.Int32
	logger  *zap.Logger
}

// NewWorker discovers GPUs once and fixes the metric names for the
// lifetime of the worker.
func NewWorker(ctx context.Context, cfg Config, inbox <-chan Envelope) (*Worker, error) {
	cfg = cfg.withDefaults()

	manager, err := collecting.NewManager(ctx, cfg.GPU)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		cfg:     cfg,
		inbox:   inbox,
		manager: manager,
		buffer:  NewBuffer(manager.MetricNames()),
		logger:  logutil.GetLogger().Named("worker"),
	}
	w.logger.Debug("worker created",
		zap.String("gpu_source", manager.GPUSourceName()),
		zap.Strings("gpus", manager.GPUNames()),
		zap.Strings("metrics", manager.MetricNames()),
	)
	return w, nil
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// MetricNames returns the flushed metric columns, time excluded.
func (w *Worker) MetricNames() []string {
	return w.buffer.Names()
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// Run resolves the target and serves control messages until exit. It
// returns nil after exit and an error for protocol violations, target
// failures, flush failures and context cancellation. Ticks not yet
// flushed are lost on error.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		w.setState(Terminated)
		err = multierr.Append(err, w.manager.Close())
		if err != nil {
			w.logger.Error("worker terminated", zap.Error(err))
		} else {
			w.logger.Info("worker exited")
		}
	}()

	pid, err := w.cfg.Target()
	if err != nil {
		return fmt.Errorf("failed to resolve target process: %w", err)
	}
	proc, err := w.cfg.NewSampler(ctx, pid)
	if err != nil {
		return err
	}
	w.logger.Info("worker started", zap.Int32("pid", pid), zap.Duration("interval", w.cfg.Interval))

	for {
		w.setState(Idle)

		var env Envelope
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok = <-w.inbox:
		}
		if !ok {
			return fmt.Errorf("%w: control channel closed", ErrProtocol)
		}

		msg, err := ParseMessage(env.Text)
		if err != nil {
			return err
		}
		switch msg.Command {
		case CommandExit:
			return nil
		case CommandStart:
			if err := w.runSession(ctx, proc, msg.Path); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s while %s", ErrProtocol, msg, Idle)
		}
	}
}

// runSession samples until a stop arrives, then flushes and resets.
func (w *Worker) runSession(ctx context.Context, proc collecting.ProcessSampler, path string) error {
	w.buffer.Reset()
	session := uuid.NewString()
	logger := w.logger.With(zap.String("session", session), zap.String("path", path))
	w.setState(Sampling)
	logger.Info("session started")

	timer := time.NewTimer(w.cfg.Interval)
	defer timer.Stop()

	for {
		if err := w.tick(ctx, proc); err != nil {
			return err
		}

		timer.Reset(w.cfg.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		var env Envelope
		var ok bool
		select {
		case env, ok = <-w.inbox:
		default:
			continue
		}
		if !ok {
			return fmt.Errorf("%w: control channel closed", ErrProtocol)
		}

		msg, err := ParseMessage(env.Text)
		if err != nil {
			return err
		}
		if msg.Command != CommandStop {
			return fmt.Errorf("%w: %s while %s", ErrProtocol, msg, Sampling)
		}

		rows, err := w.buffer.Flush(path)
		w.buffer.Reset()
		ack(env.Ack, FlushResult{Session: session, Path: path, Rows: rows, Err: err})
		if err != nil {
			return err
		}
		logger.Info("session flushed", zap.Int("rows", rows))
		return nil
	}
}

func (w *Worker) tick(ctx context.Context, proc collecting.ProcessSampler) error {
	ts := w.cfg.Clock()
	values, err := w.manager.Collect(ctx, proc)
	if err != nil {
		return fmt.Errorf("failed to sample process %d: %w", proc.PID(), err)
	}
	return w.buffer.Append(Tick{Time: ts, Values: values})
}

func ack(ch chan<- FlushResult, res FlushResult) {
	if ch == nil {
		return
	}
	select {
	case ch <- res:
	default:
		logutil.GetLogger().Warn("flush acknowledgment dropped", zap.String("path", res.Path))
	}
}
