// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import "fmt"

// Builder assembles a Schema field by field, the declarative counterpart to
// ts.Writer.Define appending ts.Col values to a ts.Table - generalized here
// from named, typed table columns to named, bit-sized wire fields. Plain
// method-chaining is used instead of struct tags or reflection so a schema
// reads the same whether its fields are fixed-width, determinant-driven, or
// variant-gated.
type Builder struct {
	schema *Schema
	err    error
}

// NewBuilder starts a Builder for a record named name.
func NewBuilder(name string) *Builder {
	return &Builder{schema: &Schema{Name: name}}
}

// Build returns the assembled Schema, or the first error encountered while
// declaring it.
func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.schema, nil
}

// MustBuild is Build, panicking on error; intended for package-level schema
// vars initialized at startup, mirroring the teacher's pattern of building
// fixed schemas once in an init-style call.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Builder) appendField(f Field) *Builder {
	if b.err != nil {
		return b
	}
	for _, existing := range b.schema.Fields {
		if existing.Name == f.Name {
			b.err = fmt.Errorf("schema: %s: duplicate field name %q", b.schema.Name, f.Name)
			return b
		}
	}
	b.schema.Fields = append(b.schema.Fields, f)
	return b
}

// Int declares a fixed-width integer field.
func (b *Builder) Int(name string, bits int64) *Builder {
	return b.appendField(Field{Name: name, Kind: KindInteger, Length: bits})
}

// IntOrder declares a fixed-width integer field with an explicit byte
// order for byte-aligned, byte-multiple widths.
func (b *Builder) IntOrder(name string, bits int64, order ByteOrderHint) *Builder {
	return b.appendField(Field{Name: name, Kind: KindInteger, Length: bits, ByteOrder: order})
}

// IntDetermined declares an integer field whose width is computed from
// already-parsed sibling fields (a length-prefix-style determinant).
func (b *Builder) IntDetermined(name string, fn LengthFunc) *Builder {
	return b.appendField(Field{Name: name, Kind: KindInteger, LengthFn: fn})
}

// Float declares an IEEE 754 field at width 32 or 64.
func (b *Builder) Float(name string, width int64) *Builder {
	return b.appendField(Field{Name: name, Kind: KindFloat, Length: width})
}

// Bool declares a 1-bit boolean field with the default true-unless-zero
// encoding.
func (b *Builder) Bool(name string) *Builder {
	return b.appendField(Field{Name: name, Kind: KindBoolean, Length: 1, BoolEncoding: BoolTrueUnless})
}

// BoolEncoded declares a boolean field backed by a wider bit width and a
// non-default encoding mode, per spec §3's true_unless / false_unless /
// undefined options.
func (b *Builder) BoolEncoded(name string, bits int64, enc BoolEncoding, sentinel uint64) *Builder {
	f := Field{Name: name, Kind: KindBoolean, Length: bits, BoolEncoding: enc}
	switch enc {
	case BoolTrueUnless:
		f.TrueUnless = sentinel
	case BoolFalseUnless:
		f.FalseUnless = sentinel
	}
	return b.appendField(f)
}

// Reserved declares a fixed-width field whose bits are consumed (or
// written as zero) but never surfaced as a value - the bit-level analog of
// a padding column.
func (b *Builder) Reserved(name string, bits int64) *Builder {
	return b.appendField(Field{Name: name, Kind: KindReserved, Length: bits})
}

// StringFixed declares a string field of a fixed byte length.
func (b *Builder) StringFixed(name string, byteLen int64, enc StringEncoding) *Builder {
	return b.appendField(Field{Name: name, Kind: KindString, Length: byteLen, StringEncoding: enc})
}

// StringDetermined declares a string field whose byte length is computed
// from sibling fields.
func (b *Builder) StringDetermined(name string, enc StringEncoding, fn LengthFunc) *Builder {
	return b.appendField(Field{Name: name, Kind: KindString, StringEncoding: enc, LengthFn: fn})
}

// BytesFixed declares a raw byte-string field of fixed length.
func (b *Builder) BytesFixed(name string, byteLen int64) *Builder {
	return b.appendField(Field{Name: name, Kind: KindBytes, Length: byteLen})
}

// BytesDetermined declares a raw byte-string field whose length is computed
// from sibling fields.
func (b *Builder) BytesDetermined(name string, fn LengthFunc) *Builder {
	return b.appendField(Field{Name: name, Kind: KindBytes, LengthFn: fn})
}

// Record declares a nested fixed sub-record field.
func (b *Builder) Record(name string, nested *Schema) *Builder {
	return b.appendField(Field{Name: name, Kind: KindRecord, Nested: nested})
}

// NullableRecord declares a nested sub-record field that may be explicitly
// absent, encoded with a leading presence bit (spec's null subrecord
// handling).
func (b *Builder) NullableRecord(name string, nested *Schema) *Builder {
	return b.appendField(Field{Name: name, Kind: KindRecord, Nested: nested, Nullable: true})
}

// ArrayCounted declares an array field whose element count is read from a
// previously-declared sibling integer field.
func (b *Builder) ArrayCounted(name, countField string, element Field) *Builder {
	return b.appendField(Field{
		Name: name, Kind: KindArray,
		ArrayCounting:   ArrayCountField,
		ArrayCountField: countField,
		Element:         &element,
	})
}

// ArrayFixed declares an array field of a compile-time-constant length.
func (b *Builder) ArrayFixed(name string, count int64, element Field) *Builder {
	return b.appendField(Field{
		Name: name, Kind: KindArray,
		ArrayCounting:   ArrayCountFixed,
		ArrayFixedCount: count,
		Element:         &element,
	})
}

// ArrayHasMore declares an array field terminated by a 1-bit continuation
// flag read before each element instead of a count.
func (b *Builder) ArrayHasMore(name string, element Field) *Builder {
	return b.appendField(Field{
		Name: name, Kind: KindArray,
		ArrayCounting: ArrayHasMore,
		Element:       &element,
	})
}

// When sets the field most recently appended to be conditionally present,
// decided from already-parsed sibling fields.
func (b *Builder) When(fn PresenceFunc) *Builder {
	if b.err != nil || len(b.schema.Fields) == 0 {
		return b
	}
	b.schema.Fields[len(b.schema.Fields)-1].PresenceFn = fn
	return b
}

// WhenPeek sets the field most recently appended to be conditionally
// present, decided by peeking bits bits of raw stream ahead of the field's
// own position and testing them with predicate, without consuming them if
// the field turns out absent (spec §8's "lucky present when peek8==111"
// read-ahead scenario).
func (b *Builder) WhenPeek(bits int64, predicate func(peeked uint64) bool) *Builder {
	if b.err != nil || len(b.schema.Fields) == 0 {
		return b
	}
	b.schema.Fields[len(b.schema.Fields)-1].ReadAheadSpec = &ReadAhead{Bits: bits, Predicate: predicate}
	return b
}

// Computed marks the field most recently appended as derived rather than
// read from the stream.
func (b *Builder) Computed(fn ValueFunc) *Builder {
	if b.err != nil || len(b.schema.Fields) == 0 {
		return b
	}
	b.schema.Fields[len(b.schema.Fields)-1].ValueFn = fn
	return b
}

// Comment attaches a doc string to the field most recently appended.
func (b *Builder) Comment(text string) *Builder {
	if b.err != nil || len(b.schema.Fields) == 0 {
		return b
	}
	b.schema.Fields[len(b.schema.Fields)-1].Comment = text
	return b
}

// Marker names the field (already declared) whose value selects among the
// Variants added with Variant.
func (b *Builder) Marker(fieldName string) *Builder {
	if b.err != nil {
		return b
	}
	b.schema.MarkerField = fieldName
	return b
}

// Variant appends one arm of the variant graph.
func (b *Builder) Variant(v Variant) *Builder {
	if b.err != nil {
		return b
	}
	b.schema.Variants = append(b.schema.Variants, v)
	return b
}

// AutoPad enables Serialize's trailing zero-bit padding to the next byte
// boundary.
func (b *Builder) AutoPad() *Builder {
	if b.err != nil {
		return b
	}
	b.schema.AutoPad = true
	return b
}

// Hooks installs the lifecycle callbacks spec §3 names: on_parse_started,
// on_parse_finished, on_variation_to, on_variation_from.
func (b *Builder) Hooks(onStarted, onFinished func(Cursor), onTo, onFrom func(Cursor, string)) *Builder {
	if b.err != nil {
		return b
	}
	if onStarted != nil {
		b.schema.OnParseStarted = onStarted
	}
	if onFinished != nil {
		b.schema.OnParseFinished = onFinished
	}
	if onTo != nil {
		b.schema.OnVariationTo = onTo
	}
	if onFrom != nil {
		b.schema.OnVariationFrom = onFrom
	}
	return b
}
