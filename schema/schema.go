// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schema declares the data model behind a record: an ordered list
// of typed fields, each with an optional dynamic length, presence or value
// determinant, and an optional variant graph for runtime specialization.
// It plays the role the solidcoredata ts package gives to Table/Col, but
// generalized from byte-per-column storage rows to arbitrarily-bit-sized,
// possibly self-describing wire records.
package schema

import "fmt"

// Kind names the shape of a field's value, mirroring ts.Type but extended
// with the composite kinds (Array, Record, Null, Reserved) the bit-level
// record engine needs.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindBoolean
	KindString
	KindBytes
	KindRecord
	KindArray
	KindNull
	KindReserved
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindRecord:
		return "record"
	case KindArray:
		return "array"
	case KindNull:
		return "null"
	case KindReserved:
		return "reserved"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Cursor is the narrow slice of record.Instance that schema-level
// determinant functions need: reading sibling field values, checking
// presence, and measuring bits consumed so far. Declaring it here (rather
// than importing record) keeps the dependency direction one-way: record
// imports schema, not the reverse.
type Cursor interface {
	// Get returns the already-decoded value of a sibling field by name.
	Get(name string) (interface{}, bool)
	// Has reports whether a sibling field was present (non-null) after
	// parsing.
	Has(name string) bool
	// BitsRead reports the number of bits consumed by the enclosing record
	// so far, for length-remaining-style determinants.
	BitsRead() int64
}

// LengthFunc computes a field's length in bits (for KindInteger, KindFloat,
// KindBoolean, KindReserved) or in bytes (string, bytes), given the
// in-progress record. Array element counts do not use it; see
// ArrayCounting.
type LengthFunc func(cur Cursor) (int64, error)

// PresenceFunc reports whether an optional field is present given the
// in-progress record.
type PresenceFunc func(cur Cursor) (bool, error)

// ValueFunc derives a field's value from the in-progress record instead of
// reading it from the stream (a computed or constant field).
type ValueFunc func(cur Cursor) (interface{}, error)

// PeekFunc reads n not-yet-consumed bits starting at the field's own
// position without advancing the cursor, for presence checks that inspect
// raw stream bits ahead of the field being declared (spec's read-ahead
// presence check, e.g. "present when the next byte peeks as 0x6F").
type PeekFunc func(n int64) (uint64, error)

// ReadAhead is a presence determinant evaluated against raw, not-yet-parsed
// stream bits rather than already-decoded sibling fields: it peeks Bits
// bits ahead of the field's position and asks Predicate whether the field
// is present, without consuming anything if the predicate says no.
type ReadAhead struct {
	Bits      int64
	Predicate func(peeked uint64) bool
}

// StringEncoding names a codec.Registry string transcoding strategy.
type StringEncoding int

const (
	EncodingUTF8 StringEncoding = iota
	EncodingUTF16LE
	EncodingASCII
)

// BoolEncoding selects how a boolean's "true" bit pattern is resolved from a
// non-1-bit field, per spec §3's true_unless / false_unless / undefined
// modes.
type BoolEncoding int

const (
	// BoolTrueUnless: the field is true unless it holds Field.TrueUnless.
	BoolTrueUnless BoolEncoding = iota
	// BoolFalseUnless: the field is false unless it holds Field.FalseUnless.
	BoolFalseUnless
	// BoolUndefinedNonBinary: any value other than 0/1 is an error.
	BoolUndefinedNonBinary
)

// ArrayCounting selects how an array field determines how many elements to
// read.
type ArrayCounting int

const (
	// ArrayCountField reads the count from a named sibling field.
	ArrayCountField ArrayCounting = iota
	// ArrayCountFixed uses a compile-time constant count.
	ArrayCountFixed
	// ArrayHasMore reads a 1-bit continuation flag before each element.
	ArrayHasMore
)

// Field describes one member of a Schema in declaration order.
type Field struct {
	Name string
	Kind Kind

	// Length is the static bit width (KindInteger/KindFloat/KindBoolean/
	// KindReserved) or static byte count (KindString/KindBytes), used when
	// LengthFn is nil. KindArray fields take their count from the
	// array-specific fields below instead.
	Length   int64
	LengthFn LengthFunc

	// Optional fields are skipped (resolve to nil) when PresenceFn returns
	// false; a nil PresenceFn means the field is always present.
	PresenceFn PresenceFunc

	// ReadAheadSpec, when set, is consulted the same way as PresenceFn but
	// against peeked raw bits instead of sibling values; a field may carry
	// both, in which case it is present only when both agree.
	ReadAheadSpec *ReadAhead

	// ValueFn, when set, derives the value instead of reading the stream;
	// the field occupies no bits on the wire: Parse does not read it, and
	// Write and Measure do not emit it.
	ValueFn ValueFunc

	ByteOrder      ByteOrderHint
	StringEncoding StringEncoding
	BoolEncoding   BoolEncoding
	TrueUnless     uint64
	FalseUnless    uint64

	// Array-specific.
	ArrayCounting   ArrayCounting
	ArrayCountField string
	ArrayFixedCount int64
	Element         *Field // element schema for KindArray

	// Record-specific.
	Nested *Schema

	// Nullable allows a KindRecord field's value to be explicitly absent
	// (encoded as a single presence bit ahead of the nested record), per
	// spec §3's null subrecord handling.
	Nullable bool

	Comment string
}

// ByteOrderHint mirrors bitio.ByteOrder without importing bitio, so schema
// has no dependency on the I/O layer - only codec and record do.
type ByteOrderHint int

const (
	OrderBig ByteOrderHint = iota
	OrderLittle
)

// DiscriminantFunc decides whether a Variant matches, given the
// in-progress record's already-parsed fields - not a bare equality test
// against one marker field, since spec's own discriminant functions run
// against a partially-parsed record and may depend on more than one field
// or a computed condition.
type DiscriminantFunc func(cur Cursor) (bool, error)

// DiscriminantEquals is the common case: match when the named field
// (typically the schema's MarkerField) equals value exactly.
func DiscriminantEquals(field string, value interface{}) DiscriminantFunc {
	return func(cur Cursor) (bool, error) {
		v, ok := cur.Get(field)
		if !ok {
			return false, nil
		}
		return v == value, nil
	}
}

// Variant is one arm of a Schema's variant graph: a discriminant function
// (or default-variant wildcard) mapped to the fields spliced in at the
// variant marker's position.
type Variant struct {
	// Name identifies the variant for diagnostics and on_variation hooks.
	Name string
	// Discriminant reports whether this variant matches the in-progress
	// record; Default variants match when no Discriminant-bearing variant
	// does, and Discriminant is ignored when Default is set.
	Discriminant DiscriminantFunc
	Default      bool
	// Priority breaks ties when more than one variant could match (spec
	// §3's priority/default-variant sort); lower sorts first.
	Priority int
	Fields   []Field
}

// Schema is the full declarative description of a record: field list plus
// an optional variant graph selected by a marker field already in Fields
// and spliced in at that field's position.
type Schema struct {
	Name string

	Fields []Field

	// MarkerField names the field (integer, boolean, or string) at whose
	// position in Fields a Variant's own Fields are spliced in once it has
	// been decoded: base fields before the marker are read first, then the
	// selected variant's fields, then any base fields still following the
	// marker in declaration order (spec §4.3's marker variation - the
	// marker need not be the last base field). Empty means the schema has
	// no variation.
	MarkerField string
	Variants    []Variant

	// AutoPad, when true, allows Serialize to round a record out to the
	// next byte boundary with zero bits instead of erroring (spec §7's
	// UnalignedSerialization).
	AutoPad bool

	OnParseStarted  func(cur Cursor)
	OnParseFinished func(cur Cursor)
	OnVariationTo   func(cur Cursor, variant string)
	OnVariationFrom func(cur Cursor, variant string)
}

// FieldByName returns the field (including ones appended by a selected
// variant) with the given name, or nil.
func (s *Schema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	for vi := range s.Variants {
		fs := s.Variants[vi].Fields
		for i := range fs {
			if fs[i].Name == name {
				return &fs[i]
			}
		}
	}
	return nil
}

// SelectVariant runs each Variant's Discriminant against cur, preferring
// an exact, lowest-Priority match and falling back to the lowest-Priority
// Default variant. It returns (nil, false, nil) when nothing matches, the
// condition behind ErrVariatorNullReturn in biterr; a Discriminant's own
// error is returned unwrapped for the caller to attribute to the marker
// field.
func (s *Schema) SelectVariant(cur Cursor) (*Variant, bool, error) {
	var best *Variant
	var bestDefault *Variant
	for i := range s.Variants {
		v := &s.Variants[i]
		if v.Default {
			if bestDefault == nil || v.Priority < bestDefault.Priority {
				bestDefault = v
			}
			continue
		}
		if v.Discriminant == nil {
			continue
		}
		ok, err := v.Discriminant(cur)
		if err != nil {
			return nil, false, err
		}
		if ok && (best == nil || v.Priority < best.Priority) {
			best = v
		}
	}
	if best != nil {
		return best, true, nil
	}
	if bestDefault != nil {
		return bestDefault, true, nil
	}
	return nil, false, nil
}
