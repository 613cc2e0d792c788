// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "strings"

// PollOpt selects how a registration is triggered.
//
// Exactly one of Edge or Level selects the trigger. Oneshot may be combined
// with either, and on its own means Level|Oneshot.
type PollOpt uint8

const (
	// Edge notifies once per transition into readiness. The handler must
	// drain the source until ErrWouldBlock.
	Edge PollOpt = 1 << iota
	// Level notifies on every poll while the condition holds.
	Level
	// Oneshot disables the registration after one notification, until it
	// is explicitly reregistered.
	Oneshot
)

const pollOptMask = Edge | Level | Oneshot

func (o PollOpt) IsEdge() bool    { return o&Edge != 0 }
func (o PollOpt) IsLevel() bool   { return o&Edge == 0 }
func (o PollOpt) IsOneshot() bool { return o&Oneshot != 0 }

// Validate returns ErrInvalidPollOpt for the zero value, unknown bits, or
// Edge|Level.
func (o PollOpt) Validate() error {
	if o == 0 || o&^pollOptMask != 0 || o&(Edge|Level) == Edge|Level {
		return ErrInvalidPollOpt
	}
	return nil
}

// String implements fmt.Stringer, e.g. "Edge|Oneshot".
func (o PollOpt) String() string {
	if o.Validate() != nil {
		return "Invalid"
	}
	var parts []string
	if o.IsEdge() {
		parts = append(parts, "Edge")
	} else {
		parts = append(parts, "Level")
	}
	if o.IsOneshot() {
		parts = append(parts, "Oneshot")
	}
	return strings.Join(parts, "|")
}
