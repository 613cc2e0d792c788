// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_logging(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(stumpy.L.LevelTrace()),
	).Logger()

	l, p := newFakeLoop(t, WithLogger(logger))
	src := &fakeSource{handle: 3}
	require.NoError(t, l.Register(src, 30, Readable, Edge))
	require.NoError(t, l.Reregister(src, Writable, Level))

	// no live registration for handle 4
	p.push(Event{Handle: 4, Ready: Readable})
	require.NoError(t, l.RunOnce(&recorder{}, 0))

	require.NoError(t, l.Deregister(src))

	p.pollErr = errSabotage
	require.Error(t, l.RunOnce(&recorder{}, 0))

	out := buf.String()
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.Contains(t, line, `"loop":`)
	}
	for _, want := range []string{
		`"lvl":"debug"`,
		`"msg":"loop created"`,
		`"msg":"registered"`,
		`"interest":"Readable"`,
		`"opts":"Edge"`,
		`"msg":"reregistered"`,
		`"lvl":"trace"`,
		`"msg":"skipped event without live registration"`,
		`"msg":"deregistered"`,
		`"lvl":"err"`,
		`"err":"sabotaged poller"`,
		`"msg":"poll failed"`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestEventLoop_logging_disabled(t *testing.T) {
	// nil logger is the default
	l, p := newFakeLoop(t)
	require.NoError(t, l.Register(&fakeSource{handle: 3}, 30, Readable, Edge))
	p.pollErr = errSabotage
	assert.Error(t, l.RunOnce(&recorder{}, 0))
}
