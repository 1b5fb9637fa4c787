// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

import (
	"bytes"
	"math/big"
	"testing"
)

func TestWriterUnalignedSequence(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, BigEndian)

	if err := w.Write(4, BigEndian, 0xA); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(8, BigEndian, 0xBC); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(4, BigEndian, 0xD); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Bytes(), []byte{0xAB, 0xCD}; !bytes.Equal(got, want) {
		t.Fatalf("buf = % x, want % x", got, want)
	}
}

func TestWriterLittleEndianAligned(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, BigEndian)
	if err := w.Write(32, LittleEndian, 0x04030201); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if got := buf.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("buf = % x, want % x", got, want)
	}
}

func TestMeasuringWriterDoesNotWriteToSink(t *testing.T) {
	w := NewMeasuringWriter(BigEndian)
	if err := w.Write(13, BigEndian, 0x1FFF); err != nil {
		t.Fatal(err)
	}
	if w.BitLen() != 13 {
		t.Fatalf("BitLen() = %d, want 13", w.BitLen())
	}
}

func TestWriterRoundTripsWithReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, BigEndian)
	w.Write(3, BigEndian, 0x5)
	w.WriteSigned(8, BigEndian, -2)
	w.WriteFloat(32, 3.5)
	w.Pad(5)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(false)
	r.Push(Chunk(buf.Bytes()))
	r.End()

	v, err := r.Read(3, BigEndian)
	if err != nil || v != 0x5 {
		t.Fatalf("Read(3) = %x, %v, want 0x5, nil", v, err)
	}
	sv, err := r.ReadSigned(8, BigEndian)
	if err != nil || sv != -2 {
		t.Fatalf("ReadSigned(8) = %d, %v, want -2, nil", sv, err)
	}
	fv, err := r.ReadFloat(32)
	if err != nil || fv != 3.5 {
		t.Fatalf("ReadFloat(32) = %v, %v, want 3.5, nil", fv, err)
	}
}

func TestWriterBigWidth(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, BigEndian)
	v, ok := new(big.Int).SetString("010203040506070809", 16)
	if !ok {
		t.Fatal("bad literal")
	}
	if err := w.WriteBig(72, v); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	if got := buf.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("buf = % x, want % x", got, want)
	}
}
