// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "strings"

// Ready is a set of readiness conditions. It is used both for interest (what
// a registration asks for) and for notifications (what was observed).
//
// Values are immutable: the set algebra methods return new values.
type Ready uint8

const (
	// Readable indicates data can be read, or a connection accepted.
	Readable Ready = 1 << iota
	// Writable indicates buffer space is available, or a connect completed.
	Writable
	// Hup indicates the peer closed its end of the connection.
	Hup
	// Error indicates an error condition on the handle.
	Error
)

const (
	// ReadyEmpty is the empty set.
	ReadyEmpty Ready = 0
	// ReadyAll contains every condition.
	ReadyAll = Readable | Writable | Hup | Error
)

// alwaysObserved are reported by the OS regardless of interest.
const alwaysObserved = Hup | Error

func (r Ready) IsEmpty() bool    { return r&ReadyAll == 0 }
func (r Ready) IsReadable() bool { return r&Readable != 0 }
func (r Ready) IsWritable() bool { return r&Writable != 0 }
func (r Ready) IsHup() bool      { return r&Hup != 0 }
func (r Ready) IsError() bool    { return r&Error != 0 }

// Contains reports whether every condition in other is also in r.
func (r Ready) Contains(other Ready) bool { return r&other == other }

// Union returns the conditions in either set.
func (r Ready) Union(other Ready) Ready { return (r | other) & ReadyAll }

// Intersect returns the conditions in both sets.
func (r Ready) Intersect(other Ready) Ready { return r & other & ReadyAll }

// Remove returns r without the conditions in other.
func (r Ready) Remove(other Ready) Ready { return r &^ other & ReadyAll }

// deliverable is what a registration with interest r may be notified of.
func (r Ready) deliverable() Ready { return r.Union(alwaysObserved) }

var readyNames = [...]struct {
	bit  Ready
	name string
}{
	{Readable, "Readable"},
	{Writable, "Writable"},
	{Hup, "Hup"},
	{Error, "Error"},
}

// String implements fmt.Stringer, e.g. "Readable|Hup".
func (r Ready) String() string {
	if r.IsEmpty() {
		return "Empty"
	}
	var b strings.Builder
	for _, n := range readyNames {
		if r&n.bit == 0 {
			continue
		}
		if b.Len() != 0 {
			b.WriteByte('|')
		}
		b.WriteString(n.name)
	}
	return b.String()
}
