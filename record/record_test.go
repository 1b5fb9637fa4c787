// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/solidcoredata/bitrec/biterr"
	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/schema"
)

func pointSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewBuilder("point").
		Int("x", 16).
		Int("y", 16).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEngineWriteThenParse(t *testing.T) {
	s := pointSchema(t)
	e := NewEngine()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	values := map[string]interface{}{"x": uint64(10), "y": uint64(20)}
	if err := e.Write(w, s, values); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()

	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	x, _ := inst.Get("x")
	y, _ := inst.Get("y")
	if x.(uint64) != 10 || y.(uint64) != 20 {
		t.Fatalf("got x=%v y=%v, want 10,20", x, y)
	}
}

func TestEngineMeasure(t *testing.T) {
	s := pointSchema(t)
	e := NewEngine()
	n, err := e.Measure(s, map[string]interface{}{"x": uint64(1), "y": uint64(2)})
	if err != nil {
		t.Fatal(err)
	}
	if n != 32 {
		t.Fatalf("Measure = %d, want 32", n)
	}
}

func variantSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewBuilder("msg").
		Int("kind", 8).
		Marker("kind").
		Variant(schema.Variant{
			Name:         "ping",
			Discriminant: schema.DiscriminantEquals("kind", uint64(1)),
			Fields:       []schema.Field{{Name: "seq", Kind: schema.KindInteger, Length: 16}},
		}).
		Variant(schema.Variant{
			Name:         "text",
			Discriminant: schema.DiscriminantEquals("kind", uint64(2)),
			Fields:       []schema.Field{{Name: "body", Kind: schema.KindString, Length: 4, StringEncoding: schema.EncodingUTF8}},
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEngineVariantSelection(t *testing.T) {
	s := variantSchema(t)
	e := NewEngine()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	if err := e.Write(w, s, map[string]interface{}{"kind": uint64(2), "body": "ping"}); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Variant() == nil || inst.Variant().Name != "text" {
		t.Fatalf("Variant() = %v, want text", inst.Variant())
	}
	body, _ := inst.Get("body")
	if body != "ping" {
		t.Fatalf("body = %v, want ping", body)
	}
}

func TestEngineTryParseRewinds(t *testing.T) {
	s := pointSchema(t)
	e := NewEngine()

	r := bitio.NewReader(true)
	r.Push(bitio.Chunk{0x00, 0x01}) // only 16 of the 32 bits needed

	_, err := e.TryParse(r, s)
	if !errors.Is(err, biterr.ErrNotEnough) {
		t.Fatalf("TryParse error = %v, want ErrNotEnough", err)
	}
	if r.Offset() != 0 {
		t.Fatalf("Offset() after failed TryParse = %d, want 0", r.Offset())
	}
}

func TestEngineParseBlockingResumes(t *testing.T) {
	s := pointSchema(t)
	e := NewEngine()
	r := bitio.NewReader(false)

	done := make(chan struct{})
	var inst *Instance
	var gotErr error
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		inst, gotErr = e.ParseBlocking(ctx, r, s)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	r.Push(bitio.Chunk{0x00, 0x0A})
	time.Sleep(10 * time.Millisecond)
	r.Push(bitio.Chunk{0x00, 0x14})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ParseBlocking did not resume")
	}
	if gotErr != nil {
		t.Fatal(gotErr)
	}
	x, _ := inst.Get("x")
	if x.(uint64) != 10 {
		t.Fatalf("x = %v, want 10", x)
	}
}

func arraySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewBuilder("list").
		Int("count", 8).
		ArrayCounted("items", "count", schema.Field{Name: "item", Kind: schema.KindInteger, Length: 8}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEngineArrayRoundTrip(t *testing.T) {
	s := arraySchema(t)
	e := NewEngine()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	values := map[string]interface{}{
		"count": uint64(3),
		"items": []interface{}{uint64(1), uint64(2), uint64(3)},
	}
	if err := e.Write(w, s, values); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	items, _ := inst.Get("items")
	got := items.([]interface{})
	want := []interface{}{uint64(1), uint64(2), uint64(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func nestedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	inner, err := schema.NewBuilder("inner").Int("v", 8).Build()
	if err != nil {
		t.Fatal(err)
	}
	outer, err := schema.NewBuilder("outer").
		NullableRecord("payload", inner).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return outer
}

func TestEngineNullableNestedRecord(t *testing.T) {
	s := nestedSchema(t)
	e := NewEngine()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	if err := e.Write(w, s, map[string]interface{}{"payload": nil}); err != nil {
		t.Fatal(err)
	}
	w.Pad(7)
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Has("payload") {
		t.Fatal("payload should be absent")
	}
}

func TestEngineSerializePartialAutoPad(t *testing.T) {
	s, err := schema.NewBuilder("partial").
		Int("a", 3).
		Int("b", 3).
		AutoPad().
		Build()
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	if err := e.Serialize(w, s, map[string]interface{}{"a": uint64(5)}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 1 {
		t.Fatalf("buf.Len() = %d, want 1", buf.Len())
	}
}

// markerSuffixSchema builds Base{u8 op; MARKER; u8 suffix}: the marker
// sits before a trailing base field instead of at the end of the field
// list, per spec's marker-variation scenario.
func markerSuffixSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewBuilder("base").
		Int("op", 8).
		Marker("op").
		Int("suffix", 8).
		Variant(schema.Variant{
			Name:         "add",
			Discriminant: schema.DiscriminantEquals("op", uint64(1)),
			Fields:       []schema.Field{{Name: "operand", Kind: schema.KindInteger, Length: 8}},
		}).
		Variant(schema.Variant{Name: "noop", Default: true}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEngineMarkerSplicesBeforeTrailingBaseFields(t *testing.T) {
	s := markerSuffixSchema(t)
	e := NewEngine()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	values := map[string]interface{}{
		"op":      uint64(1),
		"operand": uint64(7),
		"suffix":  uint64(9),
	}
	if err := e.Write(w, s, values); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	// Wire order must be op, operand (variant), suffix (trailing base
	// field) - 3 bytes total, not operand after suffix.
	if buf.Len() != 3 {
		t.Fatalf("buf.Len() = %d, want 3", buf.Len())
	}
	if buf.Bytes()[1] != 7 {
		t.Fatalf("byte[1] = %d, want 7 (operand should come right after the marker)", buf.Bytes()[1])
	}
	if buf.Bytes()[2] != 9 {
		t.Fatalf("byte[2] = %d, want 9 (suffix should come after the variant fields)", buf.Bytes()[2])
	}

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Variant() == nil || inst.Variant().Name != "add" {
		t.Fatalf("Variant() = %v, want add", inst.Variant())
	}
	operand, _ := inst.Get("operand")
	suffix, _ := inst.Get("suffix")
	if operand.(uint64) != 7 || suffix.(uint64) != 9 {
		t.Fatalf("operand=%v suffix=%v, want 7,9", operand, suffix)
	}
}

func TestEngineDiscriminantMultiField(t *testing.T) {
	s, err := schema.NewBuilder("pair").
		Int("a", 8).
		Int("b", 8).
		Marker("b").
		Variant(schema.Variant{
			Name: "both-high",
			Discriminant: func(cur schema.Cursor) (bool, error) {
				a, _ := cur.Get("a")
				b, _ := cur.Get("b")
				return a.(uint64) > 10 && b.(uint64) > 0, nil
			},
			Fields: []schema.Field{{Name: "tag", Kind: schema.KindInteger, Length: 8}},
		}).
		Variant(schema.Variant{Name: "default", Default: true}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	if err := e.Write(w, s, map[string]interface{}{"a": uint64(20), "b": uint64(1), "tag": uint64(5)}); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Variant() == nil || inst.Variant().Name != "both-high" {
		t.Fatalf("Variant() = %v, want both-high", inst.Variant())
	}
}

func TestEngineReadAheadPresence(t *testing.T) {
	s, err := schema.NewBuilder("lucky").
		Int("flag", 8).
		WhenPeek(8, func(peeked uint64) bool { return peeked == 0x6F }).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk{0x6F})
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if !inst.Has("flag") {
		t.Fatal("flag should be present when peek8==0x6F")
	}
	flag, _ := inst.Get("flag")
	if flag.(uint64) != 0x6F {
		t.Fatalf("flag = %v, want 0x6F (peek must not consume the bits)", flag)
	}
}

func TestEngineReadAheadAbsence(t *testing.T) {
	s, err := schema.NewBuilder("lucky").
		Int("flag", 8).
		WhenPeek(8, func(peeked uint64) bool { return peeked == 0x6F }).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk{0x01})
	r.End()
	inst, err := e.Parse(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Has("flag") {
		t.Fatal("flag should be absent when peek8 != 0x6F")
	}
}
