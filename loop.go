// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// EventLoop dispatches readiness notifications for registered sources.
//
// The loop is single threaded: every callback runs on the goroutine that
// called Run, RunContext or RunOnce, and the only blocking point is the
// poller wait. Multiple loops may run concurrently, each with its own
// registrations.
type EventLoop struct {
	// Prevent copying
	_ [0]func()

	poller   Poller
	registry *registry
	notify   *notifyQueue
	logger   *logiface.Logger[logiface.Event]

	// per-batch event buffer, reused
	events []Event

	timers    timerHeap
	timerByID map[uint64]*timer
	timerSeq  uint64

	id              uint64
	messagesPerTick int

	// dispatching is only accessed from the loop goroutine
	dispatching bool
	running     atomic.Bool
	closed      atomic.Bool
}

var loopIDCounter atomic.Uint64

// New creates an EventLoop backed by the platform poller, unless one is
// supplied via WithPoller.
func New(opts ...LoopOption) (*EventLoop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	poller := cfg.poller
	if poller == nil {
		if poller, err = newPoller(cfg.eventCapacity); err != nil {
			return nil, err
		}
	}

	id := loopIDCounter.Add(1)
	l := &EventLoop{
		poller:          poller,
		registry:        newRegistry(poller),
		notify:          newNotifyQueue(cfg.notifyCapacity),
		logger:          cfg.logger.Clone().Uint64("loop", id).Logger(),
		events:          make([]Event, 0, cfg.eventCapacity),
		timerByID:       make(map[uint64]*timer),
		id:              id,
		messagesPerTick: cfg.messagesPerTick,
	}

	l.logger.Debug().Log("loop created")

	return l, nil
}

// Register adds src to the loop. Notifications for it carry token, and cover
// interest (plus Hup and Error, which are always reported) triggered per
// opts. A handle may only be registered once per loop: a second attempt
// fails with ErrAlreadyRegistered.
func (l *EventLoop) Register(src Source, token Token, interest Ready, opts PollOpt) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	// attach first, so a concurrent Close of src always reaches this loop
	handle := src.Handle()
	attached := src.Attachments().attach(l)
	if err := l.registry.register(handle, token, interest, opts); err != nil {
		if attached {
			src.Attachments().detach(l)
		}
		return err
	}

	l.logger.Debug().
		Int("handle", handle).
		Uint64("token", uint64(token)).
		Stringer("interest", interest).
		Stringer("opts", opts).
		Log("registered")

	return nil
}

// Reregister replaces the interest and options of src's registration, and
// re-arms it if a Oneshot notification disabled it. The token is unchanged.
// It fails with ErrNotRegistered if src is not registered.
func (l *EventLoop) Reregister(src Source, interest Ready, opts PollOpt) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	handle := src.Handle()
	token, err := l.registry.reregister(handle, interest, opts)
	if err != nil {
		return err
	}

	l.logger.Debug().
		Int("handle", handle).
		Uint64("token", uint64(token)).
		Stringer("interest", interest).
		Stringer("opts", opts).
		Log("reregistered")

	return nil
}

// Deregister removes src from the loop. It is a no-op if src is not
// registered. No notification for src is delivered after it returns, even
// for events already collected in the current batch.
func (l *EventLoop) Deregister(src Source) error {
	if l.closed.Load() {
		return nil
	}

	handle := src.Handle()
	removed, err := l.registry.deregister(handle)
	if err != nil {
		return err
	}
	src.Attachments().detach(l)

	if removed {
		l.logger.Debug().Int("handle", handle).Log("deregistered")
	}

	return nil
}

// forget is called via Attachments.Detach, when a source is about to
// release its handle.
func (l *EventLoop) forget(handle int) {
	if l.closed.Load() {
		return
	}
	removed, err := l.registry.forget(handle)
	if err != nil {
		l.logger.Warning().
			Err(err).
			Int("handle", handle).
			Log("poller refused to deregister closing source")
		return
	}
	if removed {
		l.logger.Debug().Int("handle", handle).Log("deregistered closing source")
	}
}

// Registered returns the number of live registrations.
func (l *EventLoop) Registered() int {
	return l.registry.len()
}

// Sender returns a Sender delivering messages to this loop.
func (l *EventLoop) Sender() *Sender {
	return &Sender{l: l}
}

// Run dispatches notifications to h until Shutdown is called from a
// callback, the loop is closed, or the poller fails. Poller failures are
// returned, and end the run.
func (l *EventLoop) Run(h Handler) error {
	return l.run(context.Background(), h)
}

// RunContext is Run, that additionally stops once ctx is done, returning
// ctx.Err().
func (l *EventLoop) RunContext(ctx context.Context, h Handler) error {
	return l.run(ctx, h)
}

func (l *EventLoop) run(ctx context.Context, h Handler) error {
	if l.dispatching {
		return ErrReentrantRun
	}
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// wake the poller on cancellation, the watcher exits before run returns
	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		exited := make(chan struct{})
		defer func() {
			close(stop)
			<-exited
		}()
		go func() {
			defer close(exited)
			select {
			case <-done:
				_ = l.notify.wake(l)
			case <-stop:
			}
		}()
	}

	l.running.Store(true)
	defer l.running.Store(false)

	l.logger.Debug().Log("run started")

	for l.running.Load() {
		if err := l.RunOnce(h, -1); err != nil {
			if l.closed.Load() && err == ErrLoopClosed {
				break
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			l.logger.Debug().Err(err).Log("run cancelled")
			return err
		}
	}

	l.logger.Debug().Log("run stopped")

	return nil
}

// RunOnce performs a single dispatch batch: it waits up to timeout for
// readiness (a negative timeout waits indefinitely), calls h for each ready
// registration, then fires expired timers and delivers pending messages.
// If nothing becomes ready in time it returns nil without calling h.
func (l *EventLoop) RunOnce(h Handler, timeout time.Duration) error {
	if l.dispatching {
		return ErrReentrantRun
	}
	if l.closed.Load() {
		return ErrLoopClosed
	}

	if l.notify.len() != 0 {
		timeout = 0
	}
	timeout = l.nextTimeout(timeout)

	events, err := l.poller.Poll(l.events[:0], timeout)
	if err != nil {
		l.logger.Err().Err(err).Log("poll failed")
		return fmt.Errorf("reactor: poll: %w", err)
	}

	batch := l.registry.nextBatch()

	l.dispatching = true
	defer func() { l.dispatching = false }()

	for _, ev := range events {
		reg, ok := l.registry.claim(ev.Handle, batch)
		if !ok {
			l.logger.Trace().
				Int("handle", ev.Handle).
				Stringer("ready", ev.Ready).
				Log("skipped event without live registration")
			continue
		}

		ready := ev.Ready.Intersect(reg.interest.deliverable())
		if ready.IsEmpty() {
			continue
		}

		h.Ready(l, reg.token, ready)
	}

	l.events = events[:0]

	l.runTimers(h)
	l.drainNotify(h)

	return nil
}

// Shutdown stops Run after the current batch completes. Notifications
// already collected in the batch are still delivered. It must be called from
// within a callback.
func (l *EventLoop) Shutdown() {
	if l.running.Swap(false) {
		l.logger.Debug().Log("shutdown requested")
	}
}

// IsRunning reports whether Run is active and no shutdown was requested.
func (l *EventLoop) IsRunning() bool {
	return l.running.Load()
}

// Close releases the poller and drops every registration. Pending messages
// and timers are discarded. It must not be called while another goroutine
// is blocked in Run; stop the loop first. Close is idempotent.
func (l *EventLoop) Close() error {
	l.notify.mu.Lock()
	alreadyClosed := l.closed.Swap(true)
	l.notify.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	l.running.Store(false)
	l.registry.reset()
	clear(l.timerByID)
	l.timers = nil

	if err := l.poller.Close(); err != nil {
		l.logger.Warning().Err(err).Log("failed to close poller")
		return err
	}

	l.logger.Debug().Log("loop closed")

	return nil
}

// now returns the loop's clock reading.
func (l *EventLoop) now() time.Time {
	return time.Now()
}
