// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heartbeat

import (
	"bytes"
	"testing"

	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/record"
)

func TestToClientStackRoundTrip(t *testing.T) {
	s := Schema()
	e := record.NewEngine()

	values := map[string]interface{}{
		"uuid":       make([]byte, 16),
		"disconnect": false,
		"kind":       KindToClient,
		"stack": []interface{}{
			map[string]interface{}{
				"version":   "v1.0.0\x00\x00",
				"current":   true,
				"scheduled": false,
			},
		},
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, bitio.BigEndian)
	if err := e.Write(w, s, values); err != nil {
		t.Fatal(err)
	}
	if err := w.Pad(8 - w.TrailingBits()); err != nil {
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
	if inst.Variant() == nil || inst.Variant().Name != "to_client" {
		t.Fatalf("Variant() = %v, want to_client", inst.Variant())
	}
	stack, _ := inst.Get("stack")
	entries := stack.([]interface{})
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
}
