// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package tcp

import (
	"net/netip"
	"os"
	"runtime"

	"github.com/joeycumines/go-reactor"
	"golang.org/x/sys/unix"
)

// Shutdown selects the direction(s) Stream.Shutdown closes.
type Shutdown int

const (
	// ShutdownRead disallows further receives.
	ShutdownRead Shutdown = unix.SHUT_RD
	// ShutdownWrite sends FIN to the peer, disallowing further sends.
	ShutdownWrite Shutdown = unix.SHUT_WR
	// ShutdownBoth is ShutdownRead and ShutdownWrite.
	ShutdownBoth Shutdown = unix.SHUT_RDWR
)

// Stream is a non-blocking TCP connection.
type Stream struct {
	fd      *netFD
	cleanup runtime.Cleanup
}

var _ reactor.Source = (*Stream)(nil)

func newStream(sysfd int) *Stream {
	s := &Stream{fd: newNetFD(sysfd)}
	s.cleanup = runtime.AddCleanup(s, (*netFD).release, s.fd)
	return s
}

// Dial resolves address (host:port), then calls Connect.
func Dial(address string) (*Stream, error) {
	addr, err := resolve(address)
	if err != nil {
		return nil, err
	}
	return Connect(addr)
}

// Connect starts connecting to addr, without waiting for the connection to
// be established. Register the stream for Writable: completion is reported
// as writable, failure as Hup or Error, after which TakeError returns the
// cause.
func Connect(addr netip.AddrPort) (*Stream, error) {
	sa, family, err := toSockaddr(addr)
	if err != nil {
		return nil, err
	}

	sysfd, err := socket(family)
	if err != nil {
		return nil, err
	}

	switch err := unix.Connect(sysfd, sa); err {
	case nil, unix.EINPROGRESS, unix.EINTR:
	default:
		_ = unix.Close(sysfd)
		return nil, os.NewSyscallError("connect", err)
	}

	return newStream(sysfd), nil
}

// TryRead reads into p. It fails with reactor.ErrWouldBlock if no data is
// available, and io.EOF once the peer has closed its side and all data was
// read.
func (s *Stream) TryRead(p []byte) (int, error) {
	return s.fd.read(p)
}

// TryWrite writes from p, returning the number of bytes the kernel
// accepted. It fails with reactor.ErrWouldBlock if the send buffer is full.
func (s *Stream) TryWrite(p []byte) (int, error) {
	return s.fd.write(p)
}

// LocalAddr returns the local address of the connection.
func (s *Stream) LocalAddr() (netip.AddrPort, error) {
	return s.fd.sockname()
}

// PeerAddr returns the remote address of the connection. It fails until the
// connection is established.
func (s *Stream) PeerAddr() (netip.AddrPort, error) {
	return s.fd.peername()
}

// SetNoDelay controls Nagle's algorithm (TCP_NODELAY).
func (s *Stream) SetNoDelay(noDelay bool) error {
	var v int
	if noDelay {
		v = 1
	}
	return s.fd.control(func(sysfd int) error {
		return os.NewSyscallError("setsockopt", unix.SetsockoptInt(sysfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v))
	})
}

// Shutdown shuts down the read side, write side, or both, without closing
// the stream.
func (s *Stream) Shutdown(how Shutdown) error {
	return s.fd.control(func(sysfd int) error {
		return os.NewSyscallError("shutdown", unix.Shutdown(sysfd, int(how)))
	})
}

// TakeError returns and clears the pending socket error (SO_ERROR), such as
// the cause of a failed Connect. It returns nil if there is none.
func (s *Stream) TakeError() error {
	return s.fd.control(func(sysfd int) error {
		v, err := unix.GetsockoptInt(sysfd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return os.NewSyscallError("getsockopt", err)
		}
		if v != 0 {
			return os.NewSyscallError("connect", unix.Errno(v))
		}
		return nil
	})
}

// Handle implements reactor.Source. It returns -1 once closed.
func (s *Stream) Handle() int {
	return s.fd.handle()
}

// Attachments implements reactor.Source.
func (s *Stream) Attachments() *reactor.Attachments {
	return &s.fd.attach
}

// Close deregisters the stream from every loop, then closes it.
func (s *Stream) Close() error {
	s.cleanup.Stop()
	return s.fd.Close()
}
