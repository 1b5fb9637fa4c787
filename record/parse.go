// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/solidcoredata/bitrec/biterr"
	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/schema"
)

// parseSchemaFields walks s's own field list, splicing the selected
// Variant's fields in at the position of s.MarkerField once it has been
// decoded (spec §4.3's marker variation): base fields declared after the
// marker are parsed after the variant's own fields, not skipped.
func (e *Engine) parseSchemaFields(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, s *schema.Schema, startOffset int64) error {
	for i := range s.Fields {
		f := &s.Fields[i]
		if err := e.parseOneField(ctx, blocking, r, inst, f, startOffset); err != nil {
			return err
		}
		if s.MarkerField != "" && f.Name == s.MarkerField {
			if err := e.resolveVariant(ctx, blocking, r, inst, s, startOffset); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) resolveVariant(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, s *schema.Schema, startOffset int64) error {
	v, ok, err := s.SelectVariant(inst)
	if err != nil {
		return &biterr.DeterminantFailed{Field: s.MarkerField, Err: err}
	}
	if !ok {
		return biterr.ErrVariatorNullReturn
	}
	inst.variant = v
	if s.OnVariationTo != nil {
		s.OnVariationTo(inst, v.Name)
	}
	if err := e.parseFieldList(ctx, blocking, r, inst, v.Fields, startOffset); err != nil {
		return err
	}
	if s.OnVariationFrom != nil {
		s.OnVariationFrom(inst, v.Name)
	}
	return nil
}

// parseFieldList walks a flat field list with no marker of its own - a
// Variant's Fields.
func (e *Engine) parseFieldList(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, fields []schema.Field, startOffset int64) error {
	for i := range fields {
		if err := e.parseOneField(ctx, blocking, r, inst, &fields[i], startOffset); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) parseOneField(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, f *schema.Field, startOffset int64) error {
	if f.PresenceFn != nil {
		present, err := f.PresenceFn(inst)
		if err != nil {
			return &biterr.DeterminantFailed{Field: f.Name, Err: err}
		}
		if !present {
			inst.set(f.Name, nil, false)
			return nil
		}
	}

	if f.ReadAheadSpec != nil {
		peeked, err := peekBits(ctx, blocking, r, f.ReadAheadSpec.Bits)
		if err != nil {
			return biterr.WrapField(f.Name, err)
		}
		if !f.ReadAheadSpec.Predicate(peeked) {
			inst.set(f.Name, nil, false)
			return nil
		}
	}

	if f.ValueFn != nil {
		v, err := f.ValueFn(inst)
		if err != nil {
			return &biterr.DeterminantFailed{Field: f.Name, Err: err}
		}
		inst.set(f.Name, v, true)
		return nil
	}

	v, err := e.decodeField(ctx, blocking, r, inst, f, startOffset)
	if err != nil {
		return biterr.WrapField(f.Name, err)
	}
	present := true
	if f.Kind == schema.KindRecord && f.Nullable && v == nil {
		present = false
	}
	inst.set(f.Name, v, present)
	inst.bitsRead = r.Offset() - startOffset
	return nil
}

// peekBits reads n not-yet-consumed bits without advancing the cursor, for
// ReadAhead presence checks evaluated ahead of a field's own position;
// blocking mode parks the calling goroutine the same way decodeScalar does
// rather than giving up on a short buffer.
func peekBits(ctx context.Context, blocking bool, r *bitio.Reader, n int64) (uint64, error) {
	for {
		if r.IsAvailable(n) {
			return r.Peek(n, bitio.BigEndian)
		}
		if r.Ended() {
			return 0, &biterr.Underrun{Requested: n, Buffered: r.Available()}
		}
		if !blocking {
			return 0, &biterr.Underrun{Requested: n, Buffered: r.Available()}
		}
		if err := r.WaitForMore(ctx); err != nil {
			return 0, err
		}
	}
}

func (e *Engine) decodeField(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, f *schema.Field, startOffset int64) (interface{}, error) {
	switch f.Kind {
	case schema.KindRecord:
		return e.decodeRecord(ctx, blocking, r, inst, f)
	case schema.KindArray:
		return e.decodeArray(ctx, blocking, r, inst, f, startOffset)
	default:
		bits, err := resolveLength(f, inst)
		if err != nil {
			return nil, err
		}
		return e.decodeScalar(ctx, blocking, r, f, bits)
	}
}

func resolveLength(f *schema.Field, cur schema.Cursor) (int64, error) {
	if f.LengthFn != nil {
		n, err := f.LengthFn(cur)
		if err != nil {
			return 0, &biterr.DeterminantFailed{Field: f.Name, Err: err}
		}
		return n, nil
	}
	return f.Length, nil
}

func (e *Engine) decodeScalar(ctx context.Context, blocking bool, r *bitio.Reader, f *schema.Field, bits int64) (interface{}, error) {
	c, ok := e.Registry.Lookup(f.Kind)
	if !ok {
		return nil, xerrors.Errorf("record: no codec registered for kind %s", f.Kind)
	}
	if !blocking {
		v, susp, err := c.Decode(r, f, bits)
		if err != nil {
			return nil, err
		}
		if susp != nil {
			return nil, &biterr.Underrun{Requested: bits, Buffered: bits - susp.Remaining}
		}
		return v, nil
	}
	for {
		v, susp, err := c.Decode(r, f, bits)
		if err != nil {
			return nil, err
		}
		if susp == nil {
			return v, nil
		}
		if r.Ended() {
			return nil, &biterr.Underrun{Requested: bits, Buffered: bits - susp.Remaining}
		}
		if err := r.WaitForMore(ctx); err != nil {
			return nil, err
		}
	}
}

func (e *Engine) decodeRecord(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, f *schema.Field) (interface{}, error) {
	if f.Nullable {
		present, err := readPresenceBit(ctx, blocking, r)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
	}
	nested, err := e.parse(ctx, blocking, r, f.Nested)
	if err != nil {
		return nil, err
	}
	return nested, nil
}

func (e *Engine) decodeArray(ctx context.Context, blocking bool, r *bitio.Reader, inst *Instance, f *schema.Field, startOffset int64) (interface{}, error) {
	var elems []interface{}
	switch f.ArrayCounting {
	case schema.ArrayCountField:
		raw, ok := inst.Get(f.ArrayCountField)
		if !ok {
			return nil, xerrors.Errorf("record: array %q: count field %q not yet resolved", f.Name, f.ArrayCountField)
		}
		count, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		if count < 0 {
			return nil, xerrors.Errorf("record: array %q: count field %q resolved to a negative count %d", f.Name, f.ArrayCountField, count)
		}
		elems = make([]interface{}, 0, count)
		for i := int64(0); i < count; i++ {
			v, err := e.decodeField(ctx, blocking, r, inst, f.Element, startOffset)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	case schema.ArrayCountFixed:
		elems = make([]interface{}, 0, f.ArrayFixedCount)
		for i := int64(0); i < f.ArrayFixedCount; i++ {
			v, err := e.decodeField(ctx, blocking, r, inst, f.Element, startOffset)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	default: // schema.ArrayHasMore
		for {
			more, err := readPresenceBit(ctx, blocking, r)
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			v, err := e.decodeField(ctx, blocking, r, inst, f.Element, startOffset)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	}
	return elems, nil
}

func readPresenceBit(ctx context.Context, blocking bool, r *bitio.Reader) (bool, error) {
	if blocking {
		v, err := r.ReadBlocking(ctx, 1, bitio.BigEndian)
		if err != nil {
			return false, err
		}
		return v != 0, nil
	}
	v, err := r.Read(1, bitio.BigEndian)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
