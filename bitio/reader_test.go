// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solidcoredata/bitrec/biterr"
)

func TestReaderSequenceAcrossChunks(t *testing.T) {
	r := NewReader(false)
	if err := r.Push(Chunk{0xAB}); err != nil {
		t.Fatal(err)
	}
	if err := r.Push(Chunk{0xCD}); err != nil {
		t.Fatal(err)
	}
	r.End()

	v, err := r.Read(4, BigEndian)
	if err != nil || v != 0xA {
		t.Fatalf("Read(4) = %x, %v, want 0xA, nil", v, err)
	}
	v, err = r.Read(8, BigEndian)
	if err != nil || v != 0xBC {
		t.Fatalf("Read(8) = %x, %v, want 0xBC, nil", v, err)
	}
	v, err = r.Read(4, BigEndian)
	if err != nil || v != 0xD {
		t.Fatalf("Read(4) = %x, %v, want 0xD, nil", v, err)
	}
	if r.Available() != 0 {
		t.Fatalf("Available() = %d, want 0", r.Available())
	}
}

func TestReaderPeekDoesNotConsume(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0xF0, 0x0F})
	r.End()

	peeked, err := r.Peek(8, BigEndian)
	if err != nil || peeked != 0xF0 {
		t.Fatalf("Peek = %x, %v, want 0xF0, nil", peeked, err)
	}
	read, err := r.Read(8, BigEndian)
	if err != nil || read != 0xF0 {
		t.Fatalf("Read after Peek = %x, %v, want 0xF0, nil", read, err)
	}
	if r.Offset() != 8 {
		t.Fatalf("Offset() = %d, want 8", r.Offset())
	}
}

func TestReaderSkipAcrossChunkBoundary(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0x11, 0x22})
	r.Push(Chunk{0x33})
	r.End()

	r.Skip(20) // drop the first two whole bytes plus nibble of the third
	v, err := r.Read(4, BigEndian)
	if err != nil || v != 0x3 {
		t.Fatalf("Read(4) after Skip(20) = %x, %v, want 0x3, nil", v, err)
	}
}

func TestReaderTryRewindsOnShortfall(t *testing.T) {
	r := NewReader(true)
	r.Push(Chunk{0xFF})

	var attempted uint64
	err := r.Simulate(func() error {
		var innerErr error
		attempted, innerErr = r.Read(16, BigEndian)
		return innerErr
	})
	if err == nil {
		t.Fatal("expected underrun error")
	}
	var underrun *biterr.Underrun
	if !errors.As(err, &underrun) {
		t.Fatalf("expected *biterr.Underrun, got %T: %v", err, err)
	}
	if r.Offset() != 0 {
		t.Fatalf("Offset() after failed Simulate = %d, want 0", r.Offset())
	}
	_ = attempted
}

func TestReaderBlockingResumesAfterPush(t *testing.T) {
	r := NewReader(false)
	done := make(chan struct{})
	var got uint64
	var gotErr error
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		got, gotErr = r.ReadBlocking(ctx, 16, BigEndian)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if err := r.Push(Chunk{0x01, 0x02}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReadBlocking did not resume after Push")
	}
	if gotErr != nil || got != 0x0102 {
		t.Fatalf("ReadBlocking = %x, %v, want 0x0102, nil", got, gotErr)
	}
}

func TestReaderEndedReturnsUnderrun(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0xAB})
	r.End()

	_, err := r.Read(16, BigEndian)
	var underrun *biterr.Underrun
	if !errors.As(err, &underrun) {
		t.Fatalf("expected *biterr.Underrun, got %T: %v", err, err)
	}
}

func TestReaderLittleEndianAligned(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0x01, 0x02, 0x03, 0x04})
	r.End()

	v, err := r.Read(32, LittleEndian)
	if err != nil || v != 0x04030201 {
		t.Fatalf("Read(32, LittleEndian) = %x, %v, want 0x04030201, nil", v, err)
	}
}

func TestReaderSignedNegative(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0xFF}) // -1 in 8-bit two's complement
	r.End()

	v, err := r.ReadSigned(8, BigEndian)
	if err != nil || v != -1 {
		t.Fatalf("ReadSigned(8) = %d, %v, want -1, nil", v, err)
	}
}

func TestReaderLargeWidthBig(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09})
	r.End()

	big, err := r.ReadBig(72)
	if err != nil {
		t.Fatal(err)
	}
	want := "0x10203040506070809"
	if got := "0x" + big.Text(16); got != want {
		t.Fatalf("ReadBig(72) = %s, want %s", got, want)
	}
}

func TestReaderOutstandingReadRejected(t *testing.T) {
	r := NewReader(false)
	r.Push(Chunk{0x01})
	_, susp, err := r.ReadSuspend(16, BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if susp == nil {
		t.Fatal("expected suspension")
	}
	if _, _, err := r.ReadSuspend(8, BigEndian); !errors.Is(err, biterr.ErrOutstandingRead) {
		t.Fatalf("expected ErrOutstandingRead, got %v", err)
	}
}

func TestReaderRetainSetOffsetRewind(t *testing.T) {
	r := NewReader(true)
	r.Push(Chunk{0xAA, 0xBB, 0xCC})
	r.End()

	if _, err := r.Read(16, BigEndian); err != nil {
		t.Fatal(err)
	}
	if err := r.SetOffset(0); err != nil {
		t.Fatal(err)
	}
	v, err := r.Read(8, BigEndian)
	if err != nil || v != 0xAA {
		t.Fatalf("Read after rewind = %x, %v, want 0xAA, nil", v, err)
	}
}
