// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec is the serializer registry: one Codec per schema.Kind,
// responsible for translating between a schema.Field's declared shape and
// the bit-level reads/writes bitio performs. It plays the role
// ts.FieldCoder plays for byte-per-column table values, generalized to
// bit-sized, determinant-driven wire fields.
package codec

import (
	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/schema"
)

// Codec is the behavior the record engine dispatches to for one
// schema.Kind: decode a field's value off a bitio.Reader, or encode a
// value onto a bitio.Writer. bits is the resolved length - already
// evaluated from Field.Length or Field.LengthFn by the caller - in bits
// for scalar kinds or elements/bytes for composite kinds.
type Codec interface {
	// Decode reads one field's value. susp is non-nil when the reader
	// suspended partway through and no value was produced; the caller
	// is responsible for not having mutated anything it cannot retry
	// (bitio.Reader's all-or-nothing contract for scalar reads makes this
	// automatic for every built-in codec here).
	Decode(r *bitio.Reader, f *schema.Field, bits int64) (interface{}, *bitio.Suspension, error)

	// Encode writes one field's value.
	Encode(w *bitio.Writer, f *schema.Field, bits int64, value interface{}) error
}

// Registry maps schema.Kind to the Codec responsible for it. The zero value
// is not usable; construct one with NewRegistry, which pre-populates the
// built-in codecs for the scalar kinds. KindRecord and KindArray have no
// codec: record.Engine handles them directly.
type Registry struct {
	byKind map[schema.Kind]Codec
}

// NewRegistry returns a Registry with the built-in codec for every scalar
// schema.Kind (everything except KindRecord and KindArray) already installed.
func NewRegistry() *Registry {
	reg := &Registry{byKind: make(map[schema.Kind]Codec)}
	reg.Register(schema.KindInteger, integerCodec{})
	reg.Register(schema.KindFloat, floatCodec{})
	reg.Register(schema.KindBoolean, boolCodec{})
	reg.Register(schema.KindString, stringCodec{})
	reg.Register(schema.KindBytes, bytesCodec{})
	reg.Register(schema.KindReserved, reservedCodec{})
	reg.Register(schema.KindNull, nullCodec{})
	return reg
}

// Register installs (or overrides) the Codec used for kind.
func (reg *Registry) Register(kind schema.Kind, c Codec) {
	reg.byKind[kind] = c
}

// Lookup returns the Codec for kind, and whether one was registered.
func (reg *Registry) Lookup(kind schema.Kind) (Codec, bool) {
	c, ok := reg.byKind[kind]
	return c, ok
}

func toByteOrder(h schema.ByteOrderHint) bitio.ByteOrder {
	if h == schema.OrderLittle {
		return bitio.LittleEndian
	}
	return bitio.BigEndian
}
