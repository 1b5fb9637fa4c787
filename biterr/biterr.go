// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package biterr defines the error kinds shared by bitio, schema, codec and
// record. Each kind is a distinct type so callers can distinguish them with
// errors.As, and every wrapping path in this module runs through
// golang.org/x/xerrors so %w chains survive across package boundaries.
package biterr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrNotEnough is returned by TryParse-style calls when a suspension was
// observed and the cursor has been rewound to its pre-attempt offset.
var ErrNotEnough = xerrors.New("biterr: not enough data")

// ErrOutstandingRead is returned when a second suspendable read is attempted
// on a Reader that already has one in flight.
var ErrOutstandingRead = xerrors.New("biterr: outstanding read in progress")

// ErrEndedReader is returned by Push after End has been called.
var ErrEndedReader = xerrors.New("biterr: push after end")

// ErrVariatorNullReturn is returned when a marker variator selects no
// variant and no default variant is configured.
var ErrVariatorNullReturn = xerrors.New("biterr: marker variation produced no instance")

// Underrun indicates a synchronous read demanded more bits than were
// available and the stream had ended (or synchronous mode forbids waiting).
type Underrun struct {
	Requested int64
	Buffered  int64
}

func (e *Underrun) Error() string {
	return fmt.Sprintf("biterr: underrun: requested %d bits, %d buffered", e.Requested, e.Buffered)
}

// InvalidOffset indicates a seek below the reader's spent-bits watermark.
type InvalidOffset struct {
	Requested int64
	Minimum   int64
}

func (e *InvalidOffset) Error() string {
	return fmt.Sprintf("biterr: invalid offset: requested %d, minimum %d", e.Requested, e.Minimum)
}

// EncodingUnsupported indicates a string encoding unknown to the host.
type EncodingUnsupported struct {
	Encoding string
}

func (e *EncodingUnsupported) Error() string {
	return fmt.Sprintf("biterr: unsupported string encoding %q", e.Encoding)
}

// InvalidFloatWidth indicates a float read/write at a width other than 32 or 64.
type InvalidFloatWidth struct {
	Width int
}

func (e *InvalidFloatWidth) Error() string {
	return fmt.Sprintf("biterr: invalid float width %d, want 32 or 64", e.Width)
}

// WidthOverflow indicates a call into the narrow uint64 read path (Read,
// ReadBlocking) with a width wider than the accumulator can hold without
// truncation; the caller needs ReadBig/ReadBigSuspend instead.
type WidthOverflow struct {
	Requested int64
	Max       int64
}

func (e *WidthOverflow) Error() string {
	return fmt.Sprintf("biterr: width %d exceeds %d-bit accumulator, use the big-integer read path", e.Requested, e.Max)
}

// DeterminantFailed wraps a user-supplied determinant's failure with the
// fully-qualified field path that triggered it.
type DeterminantFailed struct {
	Field string
	Err   error
}

func (e *DeterminantFailed) Error() string {
	return fmt.Sprintf("biterr: determinant failed for field %q: %v", e.Field, e.Err)
}

func (e *DeterminantFailed) Unwrap() error { return e.Err }

// ArrayCountMismatch indicates a write-time array length that disagrees with
// its count determinant.
type ArrayCountMismatch struct {
	Field    string
	Declared int64
	Actual   int64
}

func (e *ArrayCountMismatch) Error() string {
	return fmt.Sprintf("biterr: array %q count mismatch: declared %d, actual %d", e.Field, e.Declared, e.Actual)
}

// NullSubrecord indicates an attempt to write a nested-record field whose
// value is missing.
type NullSubrecord struct {
	Field string
}

func (e *NullSubrecord) Error() string {
	return fmt.Sprintf("biterr: field %q: nested record value is nil", e.Field)
}

// MisalignedByteField indicates a byte field whose declared length is not a
// multiple of 8.
type MisalignedByteField struct {
	Field string
	Bits  int64
}

func (e *MisalignedByteField) Error() string {
	return fmt.Sprintf("biterr: field %q: byte field length %d is not a multiple of 8", e.Field, e.Bits)
}

// UnalignedSerialization indicates a partial Serialize call produced a
// non-byte-aligned result with autoPad disabled.
type UnalignedSerialization struct {
	TrailingBits int64
}

func (e *UnalignedSerialization) Error() string {
	return fmt.Sprintf("biterr: serialization left %d trailing bits with auto-pad disabled", e.TrailingBits)
}

// WrapField attaches a field's fully-qualified name to err, unless err is
// nil, in which case WrapField returns nil.
func WrapField(path string, err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Errorf("%s: %w", path, err)
}
