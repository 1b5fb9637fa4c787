// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

import "fmt"

// Suspension is yielded (returned alongside a nil error and a zero value)
// by a resumable read when fewer bits are buffered than requested and the
// reader has not ended. It is also wrapped into a *biterr.Underrun by the
// strict synchronous call paths.
//
// ContextHint lazily composes a field path for diagnostics; it is a func
// rather than a string so that building the nested path is not paid for
// unless something actually inspects a suspension (spec §7).
type Suspension struct {
	Remaining   int64
	ContextHint func() string
	Optional    bool
}

func (s *Suspension) String() string {
	if s == nil {
		return "<nil suspension>"
	}
	hint := ""
	if s.ContextHint != nil {
		hint = s.ContextHint()
	}
	return fmt.Sprintf("need %d more bits%s", s.Remaining, suffixHint(hint))
}

func suffixHint(hint string) string {
	if hint == "" {
		return ""
	}
	return " (" + hint + ")"
}

// withHint returns a copy of s with ContextHint composed in front of any
// existing hint, the two joined with a dot. It is unexported and has no
// caller; the record engine does not annotate suspensions with hints.
func (s *Suspension) withHint(fn func() string) *Suspension {
	if s == nil {
		return nil
	}
	inner := s.ContextHint
	return &Suspension{
		Remaining: s.Remaining,
		Optional:  s.Optional,
		ContextHint: func() string {
			outer := fn()
			if inner == nil {
				return outer
			}
			in := inner()
			if outer == "" {
				return in
			}
			if in == "" {
				return outer
			}
			return outer + "." + in
		},
	}
}
