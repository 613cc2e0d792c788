// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-reactor"
	"github.com/stretchr/testify/require"
)

func newLoop(t *testing.T) *reactor.EventLoop {
	t.Helper()
	l, err := reactor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// run runs l until shutdown, failing the test if that takes too long.
func run(t *testing.T, l *reactor.EventLoop, h reactor.Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, l.RunContext(ctx, h))
}

// waitConnected blocks until s is writable, using a private loop.
func waitConnected(t *testing.T, s *Stream) {
	t.Helper()
	l := newLoop(t)
	require.NoError(t, l.Register(s, 0, reactor.Writable, reactor.Edge))
	run(t, l, reactor.HandlerFunc(func(l *reactor.EventLoop, token reactor.Token, ready reactor.Ready) {
		require.False(t, ready.IsError(), "connect failed: %v", s.TakeError())
		if ready.IsWritable() {
			l.Shutdown()
		}
	}))
	require.NoError(t, l.Deregister(s))
}

// closeOnCleanup closes c when the test finishes.
func closeOnCleanup(t *testing.T, c interface{ Close() error }) {
	t.Cleanup(func() { _ = c.Close() })
}
