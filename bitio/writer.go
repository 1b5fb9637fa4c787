// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

import (
	"io"
	"math"
	"math/big"

	"github.com/solidcoredata/bitrec/biterr"
)

// defaultFlushThreshold is the number of whole bytes the accumulator holds
// before flushing to the sink; it bounds memory use for long unaligned runs
// without forcing a syscall per field.
const defaultFlushThreshold = 4096

// Writer accumulates bits and flushes whole bytes to an io.Writer sink. A
// Writer constructed over io.Discard measures bit lengths without producing
// output - see NewMeasuringWriter.
type Writer struct {
	sink      io.Writer
	order     ByteOrder
	acc       uint64 // pending bits, left-justified is not used: acc holds low `accBits` bits
	accBits   uint
	out       []byte
	threshold int
	written   int64 // bytes flushed to sink
	measuring bool
	bitLen    int64 // total bits written, including unflushed
}

// NewWriter constructs a Writer flushing whole bytes to sink in the given
// default byte order.
func NewWriter(sink io.Writer, order ByteOrder) *Writer {
	return &Writer{
		sink:      sink,
		order:     order,
		threshold: defaultFlushThreshold,
		measuring: sink == io.Discard,
	}
}

// NewMeasuringWriter constructs a Writer over io.Discard, useful for
// computing a field or record's exact bit length before committing it to a
// real sink (e.g. a length-prefix determinant).
func NewMeasuringWriter(order ByteOrder) *Writer {
	return NewWriter(io.Discard, order)
}

// BitLen returns the total number of bits written so far, flushed or not.
func (w *Writer) BitLen() int64 { return w.bitLen }

// Write appends the low n bits of v, in the given byte order when n is a
// byte-aligned multiple of 8, or MSB-first network order otherwise.
func (w *Writer) Write(n int64, order ByteOrder, v uint64) error {
	if n <= 0 {
		return nil
	}
	if n > 64 {
		return w.WriteBig(n, big.NewInt(0).SetUint64(v))
	}
	v &= mask64(int(n))
	if w.accBits%8 == 0 && n%8 == 0 {
		return w.writeAligned(n, order, v)
	}
	return w.writeBits(n, v)
}

func (w *Writer) writeAligned(n int64, order ByteOrder, v uint64) error {
	nBytes := int(n / 8)
	var bs [8]byte
	if order == LittleEndian {
		for i := 0; i < nBytes; i++ {
			bs[i] = byte(v)
			v >>= 8
		}
	} else {
		for i := nBytes - 1; i >= 0; i-- {
			bs[i] = byte(v)
			v >>= 8
		}
	}
	for i := 0; i < nBytes; i++ {
		if err := w.pushByte(bs[i]); err != nil {
			return err
		}
	}
	w.bitLen += n
	return nil
}

func (w *Writer) writeBits(n int64, v uint64) error {
	remaining := n
	for remaining > 0 {
		bitInByte := int64(w.accBits % 8)
		room := 8 - bitInByte
		take := room
		if take > remaining {
			take = remaining
		}
		shift := remaining - take
		chunk := byte((v >> uint(shift)) & mask64(int(take)))
		w.acc = (w.acc << uint(take)) | uint64(chunk)
		w.accBits += uint(take)
		remaining -= take
		if w.accBits%8 == 0 {
			if err := w.pushByte(byte(w.acc & 0xff)); err != nil {
				return err
			}
			w.acc = 0
			w.accBits = 0
		}
	}
	w.bitLen += n
	return nil
}

func (w *Writer) pushByte(b byte) error {
	if w.measuring {
		w.written++
		return nil
	}
	w.out = append(w.out, b)
	w.written++
	if len(w.out) >= w.threshold {
		return w.flushBuffered()
	}
	return nil
}

func (w *Writer) flushBuffered() error {
	if len(w.out) == 0 {
		return nil
	}
	if _, err := w.sink.Write(w.out); err != nil {
		return err
	}
	w.out = w.out[:0]
	return nil
}

// WriteBig writes an arbitrary-width unsigned value, MSB-first network
// order, most-significant bit of the n-bit field first. It extracts up to a
// byte at a time off the low end of v and then writes those pieces from the
// most significant one down, the write-side mirror of extractBigLocked's
// read-side batching, rather than allocating a *big.Int per bit.
func (w *Writer) WriteBig(n int64, v *big.Int) error {
	if n <= 0 {
		return nil
	}
	chunks := make([]byte, 0, (n+7)/8)
	vv := new(big.Int).Set(v)
	remaining := n
	for remaining > 0 {
		take := remaining
		if take > 8 {
			take = 8
		}
		tail := new(big.Int).And(vv, big.NewInt((1<<uint(take))-1))
		chunks = append(chunks, byte(tail.Uint64()))
		vv.Rsh(vv, uint(take))
		remaining -= take
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		take := n % 8
		if i != len(chunks)-1 || take == 0 {
			take = 8
		}
		if err := w.writeBits(take, uint64(chunks[i])); err != nil {
			return err
		}
	}
	return nil
}

// WriteSigned writes the low n bits of a two's-complement signed value.
func (w *Writer) WriteSigned(n int64, order ByteOrder, v int64) error {
	return w.Write(n, order, uint64(v)&mask64(int(n)))
}

// WriteFloat writes an IEEE 754 value at width 32 or 64, big-endian.
func (w *Writer) WriteFloat(width int, v float64) error {
	switch width {
	case 32:
		return w.Write(32, BigEndian, uint64(math.Float32bits(float32(v))))
	case 64:
		return w.Write(64, BigEndian, math.Float64bits(v))
	default:
		return &biterr.InvalidFloatWidth{Width: width}
	}
}

// WriteBytes writes raw bytes; the cursor must already be byte-aligned.
func (w *Writer) WriteBytes(b []byte) error {
	for _, by := range b {
		if err := w.Write(8, BigEndian, uint64(by)); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes the raw bytes of an already-encoded string; codec is
// responsible for any charset transcoding before calling this.
func (w *Writer) WriteString(b []byte) error {
	return w.WriteBytes(b)
}

// Pad writes n zero bits, used to round a partial record out to a byte
// boundary when auto-pad is enabled.
func (w *Writer) Pad(n int64) error {
	return w.Write(n, BigEndian, 0)
}

// TrailingBits reports how many bits past the last byte boundary are
// currently buffered (0 when the cursor is byte-aligned).
func (w *Writer) TrailingBits() int64 {
	return int64(w.accBits % 8)
}

// Flush writes any whole buffered bytes to the sink. Bits not yet forming a
// whole byte remain pending; call Pad first if byte alignment is required.
func (w *Writer) Flush() error {
	return w.flushBuffered()
}

// Reset discards all pending state, detaching from the previous sink.
func (w *Writer) Reset(sink io.Writer, order ByteOrder) {
	w.sink = sink
	w.order = order
	w.acc = 0
	w.accBits = 0
	w.out = w.out[:0]
	w.written = 0
	w.bitLen = 0
	w.measuring = sink == io.Discard
}
