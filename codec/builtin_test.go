// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"testing"

	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/schema"
)

func TestIntegerCodecRoundTrip(t *testing.T) {
	f := &schema.Field{Name: "n", Kind: schema.KindInteger}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	c := integerCodec{}
	if err := c.Encode(w, f, 12, uint64(0xABC)); err != nil {
		t.Fatal(err)
	}
	w.Pad(4)
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	v, susp, err := c.Decode(r, f, 12)
	if err != nil || susp != nil {
		t.Fatalf("Decode = %v, %v, %v", v, susp, err)
	}
	if v.(uint64) != 0xABC {
		t.Fatalf("Decode = %x, want 0xABC", v)
	}
}

func TestBoolCodecTrueUnless(t *testing.T) {
	f := &schema.Field{Name: "b", Kind: schema.KindBoolean, BoolEncoding: schema.BoolTrueUnless}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	c := boolCodec{}
	if err := c.Encode(w, f, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := c.Encode(w, f, 1, false); err != nil {
		t.Fatal(err)
	}
	w.Pad(6)
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	v1, _, err := c.Decode(r, f, 1)
	if err != nil || v1 != true {
		t.Fatalf("Decode #1 = %v, %v, want true", v1, err)
	}
	v2, _, err := c.Decode(r, f, 1)
	if err != nil || v2 != false {
		t.Fatalf("Decode #2 = %v, %v, want false", v2, err)
	}
}

func TestStringCodecUTF8(t *testing.T) {
	f := &schema.Field{Name: "s", Kind: schema.KindString, StringEncoding: schema.EncodingUTF8}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	c := stringCodec{}
	if err := c.Encode(w, f, 5, "hello"); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	v, _, err := c.Decode(r, f, 5)
	if err != nil || v != "hello" {
		t.Fatalf("Decode = %v, %v, want hello", v, err)
	}
}

func TestStringCodecUTF16LE(t *testing.T) {
	f := &schema.Field{Name: "s", Kind: schema.KindString, StringEncoding: schema.EncodingUTF16LE}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	c := stringCodec{}
	if err := c.Encode(w, f, 8, "ab"); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := bitio.NewReader(false)
	r.Push(bitio.Chunk(buf.Bytes()))
	r.End()
	v, _, err := c.Decode(r, f, 8)
	if err != nil || v != "ab" {
		t.Fatalf("Decode = %v, %v, want ab", v, err)
	}
}

func TestBytesCodecMismatch(t *testing.T) {
	f := &schema.Field{Name: "raw", Kind: schema.KindBytes}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	c := bytesCodec{}
	if err := c.Encode(w, f, 4, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected ArrayCountMismatch error")
	}
}
