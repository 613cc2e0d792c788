// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// pipeEnd is a Source over one end of a non-blocking pipe.
type pipeEnd struct {
	attach Attachments
	fd     int
	closed atomic.Bool
}

func (p *pipeEnd) Handle() int               { return p.fd }
func (p *pipeEnd) Attachments() *Attachments { return &p.attach }

func (p *pipeEnd) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.attach.Detach(p.fd)
	return unix.Close(p.fd)
}

func newPipe(t *testing.T) (r, w *pipeEnd) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	for _, fd := range fds {
		require.NoError(t, unix.SetNonblock(fd, true))
	}
	r, w = &pipeEnd{fd: fds[0]}, &pipeEnd{fd: fds[1]}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

func newLoop(t *testing.T, opts ...LoopOption) *EventLoop {
	t.Helper()
	l, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestPoller_level(t *testing.T) {
	l := newLoop(t)
	r, w := newPipe(t)
	require.NoError(t, l.Register(r, 1, Readable, Level))

	_, err := unix.Write(w.fd, []byte("x"))
	require.NoError(t, err)

	var h recorder
	require.NoError(t, l.RunOnce(&h, time.Second))
	require.NoError(t, l.RunOnce(&h, time.Second))
	assert.Equal(t, []delivery{{1, Readable}, {1, Readable}}, h.deliveries)
}

func TestPoller_edge(t *testing.T) {
	l := newLoop(t)
	r, w := newPipe(t)
	require.NoError(t, l.Register(r, 1, Readable, Edge))

	_, err := unix.Write(w.fd, []byte("x"))
	require.NoError(t, err)

	var h recorder
	require.NoError(t, l.RunOnce(&h, time.Second))
	// the data is still there, but there was no new edge
	require.NoError(t, l.RunOnce(&h, 50*time.Millisecond))
	assert.Equal(t, []delivery{{1, Readable}}, h.deliveries)

	_, err = unix.Write(w.fd, []byte("y"))
	require.NoError(t, err)
	require.NoError(t, l.RunOnce(&h, time.Second))
	assert.Len(t, h.deliveries, 2)
}

func TestPoller_oneshot(t *testing.T) {
	l := newLoop(t)
	r, w := newPipe(t)
	require.NoError(t, l.Register(r, 1, Readable, Level|Oneshot))

	_, err := unix.Write(w.fd, []byte("x"))
	require.NoError(t, err)

	var h recorder
	require.NoError(t, l.RunOnce(&h, time.Second))
	require.NoError(t, l.RunOnce(&h, 50*time.Millisecond))
	assert.Len(t, h.deliveries, 1)

	require.NoError(t, l.Reregister(r, Readable, Level|Oneshot))
	require.NoError(t, l.RunOnce(&h, time.Second))
	assert.Len(t, h.deliveries, 2)
}

func TestPoller_hup(t *testing.T) {
	l := newLoop(t)
	r, w := newPipe(t)
	require.NoError(t, l.Register(r, 1, Readable, Edge))
	require.NoError(t, w.Close())

	var h recorder
	require.NoError(t, l.RunOnce(&h, time.Second))
	require.Len(t, h.deliveries, 1)
	assert.True(t, h.deliveries[0].ready.IsHup(), "got %v", h.deliveries[0].ready)

	// reported once under edge
	require.NoError(t, l.RunOnce(&h, 50*time.Millisecond))
	assert.Len(t, h.deliveries, 1)
}

func TestPoller_closedSourceNeverFires(t *testing.T) {
	l := newLoop(t)
	r, w := newPipe(t)
	require.NoError(t, l.Register(r, 1, Readable, Edge))
	_, err := unix.Write(w.fd, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Equal(t, 0, l.Registered())

	// the token is reused by a source that is never ready
	r2, _ := newPipe(t)
	require.NoError(t, l.Register(r2, 1, Readable, Edge))

	var h recorder
	require.NoError(t, l.RunOnce(&h, 50*time.Millisecond))
	assert.Empty(t, h.deliveries)
}

func TestPoller_wake(t *testing.T) {
	l := newLoop(t)
	sender := l.Sender()
	time.AfterFunc(20*time.Millisecond, func() { _ = sender.Send("hi") })

	var h notifyRecorder
	for len(h.msgs) == 0 {
		require.NoError(t, l.RunOnce(&h, -1))
	}
	assert.Equal(t, []any{"hi"}, h.msgs)
}

func TestPoller_concurrentLoops(t *testing.T) {
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		l := newLoop(t)
		r, w := newPipe(t)
		require.NoError(t, l.Register(r, Token(i), Readable, Edge))
		g.Go(func() error {
			_, err := unix.Write(w.fd, []byte("x"))
			if err != nil {
				return err
			}
			var got Token = 99
			err = l.Run(HandlerFunc(func(l *EventLoop, token Token, ready Ready) {
				got = token
				l.Shutdown()
			}))
			if err != nil {
				return err
			}
			assert.Equal(t, Token(i), got)
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestPoller_eventCapacityBoundsBatch(t *testing.T) {
	l := newLoop(t, WithEventCapacity(2))
	for i := range 5 {
		r, w := newPipe(t)
		require.NoError(t, l.Register(r, Token(i), Readable, Level))
		_, err := unix.Write(w.fd, []byte("x"))
		require.NoError(t, err)
	}

	var h recorder
	require.NoError(t, l.RunOnce(&h, time.Second))
	assert.Len(t, h.deliveries, 2)

	// the rest stay ready for later batches
	for range 2 {
		require.NoError(t, l.RunOnce(&h, time.Second))
	}
	assert.Len(t, h.deliveries, 6)
}

func TestPoller_closeIdempotent(t *testing.T) {
	p, err := newPoller(defaultEventCapacity)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.Poll(nil, 0)
	assert.ErrorIs(t, err, ErrLoopClosed)
	assert.ErrorIs(t, p.Wake(), ErrLoopClosed)
}
