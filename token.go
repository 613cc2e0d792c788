// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "strconv"

// Token identifies a registration. It is chosen by the caller at register
// time and handed back with every notification for that registration.
//
// A token must be unique among the live registrations of one loop. It may be
// reused once the previous registration has been removed.
type Token uintptr

// String implements fmt.Stringer.
func (t Token) String() string {
	return "Token(" + strconv.FormatUint(uint64(t), 10) + ")"
}
