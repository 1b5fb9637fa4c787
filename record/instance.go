// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record is the resumable record engine: it drives a schema.Schema
// field by field across a bitio.Reader or bitio.Writer, resolving dynamic
// lengths, presence, computed values and variant selection through the
// codec registry. It is the generalization of ts.Writer's row-at-a-time
// Insert/Flush loop from fixed byte-per-column table rows to declarative,
// bit-level, variant-capable records.
package record

import (
	"github.com/solidcoredata/bitrec/schema"
)

// Instance is one decoded (or in-progress) record: an ordered set of named
// values plus enough bookkeeping to satisfy schema.Cursor for sibling
// determinants and hooks.
type Instance struct {
	Schema *schema.Schema

	order   []string
	values  map[string]interface{}
	present map[string]bool

	bitsRead int64
	variant  *schema.Variant
}

func newInstance(s *schema.Schema) *Instance {
	return &Instance{
		Schema:  s,
		values:  make(map[string]interface{}),
		present: make(map[string]bool),
	}
}

// Get implements schema.Cursor.
func (in *Instance) Get(name string) (interface{}, bool) {
	v, ok := in.values[name]
	return v, ok
}

// Has implements schema.Cursor.
func (in *Instance) Has(name string) bool {
	return in.present[name]
}

// BitsRead implements schema.Cursor.
func (in *Instance) BitsRead() int64 {
	return in.bitsRead
}

// Variant returns the variant selected while parsing, or nil if the schema
// has no variation.
func (in *Instance) Variant() *schema.Variant {
	return in.variant
}

// Fields returns the field names in the order they were resolved,
// including any appended by a selected variant.
func (in *Instance) Fields() []string {
	out := make([]string, len(in.order))
	copy(out, in.order)
	return out
}

// Value looks up a decoded field's value by name.
func (in *Instance) Value(name string) (interface{}, bool) {
	return in.Get(name)
}

// Map returns a shallow copy of the decoded values, keyed by field name.
func (in *Instance) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}

func (in *Instance) set(name string, v interface{}, present bool) {
	if _, seen := in.values[name]; !seen {
		in.order = append(in.order, name)
	}
	in.values[name] = v
	in.present[name] = present
}
