// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"

	"github.com/joeycumines/logiface"
)

const (
	defaultEventCapacity   = 1024
	defaultNotifyCapacity  = 4096
	defaultMessagesPerTick = 256
)

// loopOptions holds configuration options for EventLoop creation.
type loopOptions struct {
	logger          *logiface.Logger[logiface.Event]
	poller          Poller
	eventCapacity   int
	notifyCapacity  int
	messagesPerTick int
}

// --- Loop Options ---

// LoopOption configures an EventLoop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger attaches a structured logger to the loop. A nil logger (the
// default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithPoller replaces the platform poller. The loop takes ownership, and
// closes it on Close.
func WithPoller(poller Poller) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if poller == nil {
			return errors.New("reactor: nil poller")
		}
		opts.poller = poller
		return nil
	}}
}

// WithEventCapacity sets the maximum number of events collected by a single
// poll, and so the size of one dispatch batch. Further ready handles are
// reported by later polls.
func WithEventCapacity(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n <= 0 {
			return errors.New("reactor: event capacity must be positive")
		}
		opts.eventCapacity = n
		return nil
	}}
}

// WithNotifyCapacity sets the maximum number of undelivered notify messages.
// Sender.Send fails with ErrNotifyFull beyond it.
func WithNotifyCapacity(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n <= 0 {
			return errors.New("reactor: notify capacity must be positive")
		}
		opts.notifyCapacity = n
		return nil
	}}
}

// WithMessagesPerTick caps the notify messages delivered per RunOnce, so a
// busy sender cannot starve I/O.
func WithMessagesPerTick(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n <= 0 {
			return errors.New("reactor: messages per tick must be positive")
		}
		opts.messagesPerTick = n
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		eventCapacity:   defaultEventCapacity,
		notifyCapacity:  defaultNotifyCapacity,
		messagesPerTick: defaultMessagesPerTick,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
