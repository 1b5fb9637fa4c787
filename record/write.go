// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"golang.org/x/xerrors"

	"github.com/solidcoredata/bitrec/biterr"
	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/schema"
)

// mapCursor adapts a plain field-name-keyed value map to schema.Cursor, so
// the same PresenceFn/LengthFn determinants used while parsing can be
// evaluated while writing from caller-supplied values.
type mapCursor struct {
	values map[string]interface{}
	w      *bitio.Writer
	start  int64
}

func (m *mapCursor) Get(name string) (interface{}, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *mapCursor) Has(name string) bool {
	v, ok := m.values[name]
	return ok && v != nil
}

func (m *mapCursor) BitsRead() int64 {
	return m.w.BitLen() - m.start
}

// Write encodes a full record from values, keyed by field name; nested
// record fields are supplied as map[string]interface{}, array fields as
// []interface{}.
func (e *Engine) Write(w *bitio.Writer, s *schema.Schema, values map[string]interface{}) error {
	return e.writeRecord(w, s, values, false)
}

// Serialize is Write's partial counterpart: fields absent from values are
// simply skipped rather than erroring, and if the result is left
// non-byte-aligned, it is padded with zero bits when s.AutoPad is set, or
// reported as biterr.UnalignedSerialization otherwise.
func (e *Engine) Serialize(w *bitio.Writer, s *schema.Schema, values map[string]interface{}) error {
	if err := e.writeRecord(w, s, values, true); err != nil {
		return err
	}
	trailing := w.TrailingBits()
	if trailing == 0 {
		return nil
	}
	if !s.AutoPad {
		return &biterr.UnalignedSerialization{TrailingBits: trailing}
	}
	return w.Pad(8 - trailing)
}

// Measure computes the exact bit length Write would produce for values,
// without touching a real sink.
func (e *Engine) Measure(s *schema.Schema, values map[string]interface{}) (int64, error) {
	w := bitio.NewMeasuringWriter(bitio.BigEndian)
	if err := e.Write(w, s, values); err != nil {
		return 0, err
	}
	return w.BitLen(), nil
}

func (e *Engine) writeRecord(w *bitio.Writer, s *schema.Schema, values map[string]interface{}, partial bool) error {
	cur := &mapCursor{values: values, w: w, start: w.BitLen()}
	return e.writeSchemaFields(w, cur, s, partial)
}

// writeSchemaFields mirrors parseSchemaFields: it splices the selected
// Variant's fields in at s.MarkerField's position instead of appending
// them after every base field has been written, so a marker that sits
// before trailing base fields produces the same field order on the wire
// that parsing expects.
func (e *Engine) writeSchemaFields(w *bitio.Writer, cur *mapCursor, s *schema.Schema, partial bool) error {
	for i := range s.Fields {
		f := &s.Fields[i]
		if err := e.writeOneField(w, cur, f, partial); err != nil {
			return err
		}
		if s.MarkerField == "" || f.Name != s.MarkerField {
			continue
		}
		if _, ok := cur.values[s.MarkerField]; !ok {
			if partial {
				continue
			}
			return xerrors.Errorf("record: %s: marker field %q not present in values", s.Name, s.MarkerField)
		}
		v, ok, err := s.SelectVariant(cur)
		if err != nil {
			return &biterr.DeterminantFailed{Field: s.MarkerField, Err: err}
		}
		if !ok {
			if partial {
				continue
			}
			return biterr.ErrVariatorNullReturn
		}
		if err := e.writeFieldList(w, cur, v.Fields, partial); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeFieldList(w *bitio.Writer, cur *mapCursor, fields []schema.Field, partial bool) error {
	for i := range fields {
		if err := e.writeOneField(w, cur, &fields[i], partial); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeOneField(w *bitio.Writer, cur *mapCursor, f *schema.Field, partial bool) error {
	if f.PresenceFn != nil {
		present, err := f.PresenceFn(cur)
		if err != nil {
			return &biterr.DeterminantFailed{Field: f.Name, Err: err}
		}
		if !present {
			return nil
		}
	}
	if f.ValueFn != nil {
		return nil
	}

	value, ok := cur.values[f.Name]
	if !ok {
		if partial {
			return nil
		}
		value = nil
	}
	if err := e.encodeField(w, cur, f, value); err != nil {
		return biterr.WrapField(f.Name, err)
	}
	return nil
}

func (e *Engine) encodeField(w *bitio.Writer, cur *mapCursor, f *schema.Field, value interface{}) error {
	switch f.Kind {
	case schema.KindRecord:
		return e.encodeRecord(w, f, value)
	case schema.KindArray:
		return e.encodeArray(w, cur, f, value)
	default:
		bits, err := resolveLength(f, cur)
		if err != nil {
			return err
		}
		c, ok := e.Registry.Lookup(f.Kind)
		if !ok {
			return xerrors.Errorf("record: no codec registered for kind %s", f.Kind)
		}
		return c.Encode(w, f, bits, value)
	}
}

func (e *Engine) encodeRecord(w *bitio.Writer, f *schema.Field, value interface{}) error {
	if f.Nullable {
		if value == nil {
			return writePresenceBit(w, false)
		}
		if err := writePresenceBit(w, true); err != nil {
			return err
		}
	}
	if value == nil {
		return &biterr.NullSubrecord{Field: f.Name}
	}
	nestedValues, ok := value.(map[string]interface{})
	if !ok {
		return xerrors.Errorf("record: field %q: expected map[string]interface{} for nested record, got %T", f.Name, value)
	}
	return e.writeRecord(w, f.Nested, nestedValues, false)
}

func (e *Engine) encodeArray(w *bitio.Writer, cur *mapCursor, f *schema.Field, value interface{}) error {
	elems, ok := value.([]interface{})
	if !ok {
		return xerrors.Errorf("record: field %q: expected []interface{} for array, got %T", f.Name, value)
	}
	switch f.ArrayCounting {
	case schema.ArrayCountFixed:
		if int64(len(elems)) != f.ArrayFixedCount {
			return &biterr.ArrayCountMismatch{Field: f.Name, Declared: f.ArrayFixedCount, Actual: int64(len(elems))}
		}
	case schema.ArrayCountField:
		if raw, ok := cur.values[f.ArrayCountField]; ok {
			declared, err := toInt64(raw)
			if err == nil && declared != int64(len(elems)) {
				return &biterr.ArrayCountMismatch{Field: f.Name, Declared: declared, Actual: int64(len(elems))}
			}
		}
	}
	for _, elemValue := range elems {
		if f.ArrayCounting == schema.ArrayHasMore {
			if err := writePresenceBit(w, true); err != nil {
				return err
			}
		}
		if err := e.encodeField(w, cur, f.Element, elemValue); err != nil {
			return err
		}
	}
	if f.ArrayCounting == schema.ArrayHasMore {
		return writePresenceBit(w, false)
	}
	return nil
}

func writePresenceBit(w *bitio.Writer, v bool) error {
	var u uint64
	if v {
		u = 1
	}
	return w.Write(1, bitio.BigEndian, u)
}
