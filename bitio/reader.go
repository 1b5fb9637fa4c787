// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitio implements the bit-accurate streaming reader and writer at
// the bottom of the record engine: a zero-copy, buffer-list-backed,
// random-access bit cursor (Reader) and its mirror image accumulator
// (Writer). Both are single-threaded-cooperative: a Reader or Writer is
// owned by exactly one logical task at a time, and the only synchronization
// inside Reader exists to support its blocking-mode read calls.
package bitio

import (
	"context"
	"math"
	"math/big"
	"sync"

	"github.com/solidcoredata/bitrec/biterr"
)

// Reader is a bit-addressed cursor over a queue of byte chunks. The zero
// value is not usable; construct one with NewReader.
type Reader struct {
	mu     sync.Mutex
	notify chan struct{}

	chunks     []Chunk
	chunkIndex int   // always 0 when retain is false
	bitOffset  int64 // bit offset into chunks[chunkIndex]

	bufferedBits int64 // bits available beyond the cursor
	spentBits    int64 // bits from discarded chunks
	globalOffset int64 // monotonically non-decreasing across the reader's life
	skipAcc      int64 // pending, not-yet-materialized skip

	retain    bool
	ended     bool
	suspended bool
}

// NewReader constructs a Reader. When retain is true, fully-consumed chunks
// are kept so the cursor can be rewound (SetOffset, Simulate, Peek); when
// false, chunks are discarded as soon as they are fully consumed and the
// cursor can never move backwards.
func NewReader(retain bool) *Reader {
	return &Reader{
		notify: make(chan struct{}),
		retain: retain,
	}
}

func (r *Reader) wakeLocked() {
	close(r.notify)
	r.notify = make(chan struct{})
}

// Push enqueues a chunk of bytes. It is illegal to Push after End. The new
// bits answer any outstanding suspension, so Push clears the suspended flag
// and the suspended read can be retried.
func (r *Reader) Push(c Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return biterr.ErrEndedReader
	}
	r.chunks = append(r.chunks, c)
	r.bufferedBits += c.bits()
	r.suspended = false
	r.wakeLocked()
	return nil
}

// End signals that no more input will be pushed. Like Push, it clears the
// suspended flag, so a retried read reports its underrun.
func (r *Reader) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	r.suspended = false
	r.wakeLocked()
}

// Retain reports the reader's current retain-flag setting.
func (r *Reader) Retain() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retain
}

// SetRetain changes the retain flag. Turning it off while chunks before the
// cursor remain queued immediately discards them, matching the "chunk index
// is always 0 when retain is false" invariant.
func (r *Reader) SetRetain(retain bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retain == retain {
		return
	}
	r.retain = retain
	if !retain {
		r.dropConsumedLocked(r.chunkIndex)
	}
}

// dropConsumedLocked discards up to n chunks strictly before chunkIndex,
// folding their bit length into spentBits.
func (r *Reader) dropConsumedLocked(n int) {
	if n <= 0 {
		return
	}
	if n > len(r.chunks) {
		n = len(r.chunks)
	}
	for i := 0; i < n; i++ {
		r.spentBits += r.chunks[i].bits()
	}
	r.chunks = append([]Chunk(nil), r.chunks[n:]...)
	r.chunkIndex -= n
	if r.chunkIndex < 0 {
		r.chunkIndex = 0
	}
}

// Clean discards up to k fully-consumed chunks. Only meaningful when the
// retain flag is set, since otherwise consumed chunks are already dropped
// eagerly.
func (r *Reader) Clean(k int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k > r.chunkIndex {
		k = r.chunkIndex
	}
	r.dropConsumedLocked(k)
}

// Reset clears all state. It is only legal when no suspended read is
// outstanding.
func (r *Reader) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suspended {
		return biterr.ErrOutstandingRead
	}
	r.chunks = nil
	r.chunkIndex = 0
	r.bitOffset = 0
	r.bufferedBits = 0
	r.spentBits = 0
	r.globalOffset = 0
	r.skipAcc = 0
	r.ended = false
	return nil
}

// Available returns the number of bits beyond the cursor.
func (r *Reader) Available() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materializeSkipLocked()
	return r.bufferedBits
}

// IsAvailable reports whether at least n bits are buffered beyond the cursor.
func (r *Reader) IsAvailable(n int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materializeSkipLocked()
	return r.bufferedBits >= n
}

// Ended reports whether End has been called.
func (r *Reader) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// Offset returns the current global bit offset.
func (r *Reader) Offset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materializeSkipLocked()
	return r.globalOffset
}

// SetOffset moves the cursor to an absolute bit offset. It rejects offsets
// below the spent-bits watermark, and rejects moving backwards unless the
// retain flag is set.
func (r *Reader) SetOffset(target int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setOffsetLocked(target)
}

func (r *Reader) setOffsetLocked(target int64) error {
	r.materializeSkipLocked()
	if target < r.spentBits {
		return &biterr.InvalidOffset{Requested: target, Minimum: r.spentBits}
	}
	if target == r.globalOffset {
		return nil
	}
	if target > r.globalOffset {
		r.skipAcc += target - r.globalOffset
		r.materializeSkipLocked()
		return nil
	}
	if !r.retain {
		return &biterr.InvalidOffset{Requested: target, Minimum: r.globalOffset}
	}
	// Rewind: walk the still-queued chunks (none have been dropped while
	// retain is on) from the spent-bits watermark forward.
	cum := r.spentBits
	for i := range r.chunks {
		cb := r.chunks[i].bits()
		if target < cum+cb {
			r.chunkIndex = i
			r.bitOffset = target - cum
			consumedAhead := r.globalOffset - target
			r.bufferedBits += consumedAhead
			r.globalOffset = target
			r.skipAcc = 0
			return nil
		}
		cum += cb
	}
	return &biterr.InvalidOffset{Requested: target, Minimum: r.spentBits}
}

// Skip lazily advances the cursor by n bits. It is additive and idempotent
// until the next read: repeated calls accumulate, and are folded into the
// cursor by dropping whole chunks first, then the bit offset of whatever
// chunk remains - skip never walks bits one at a time.
func (r *Reader) Skip(n int64) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipAcc += n
	r.materializeSkipLocked()
}

// materializeSkipLocked applies as much of the pending skip as the buffer
// allows, dropping whole chunks without walking their bits.
func (r *Reader) materializeSkipLocked() {
	for r.skipAcc > 0 && r.bufferedBits > 0 {
		if len(r.chunks) == 0 {
			return
		}
		chunkBits := r.chunks[r.chunkIndex].bits() - r.bitOffset
		step := r.skipAcc
		if step > chunkBits {
			step = chunkBits
		}
		if step > r.bufferedBits {
			step = r.bufferedBits
		}
		r.bitOffset += step
		r.bufferedBits -= step
		r.globalOffset += step
		r.skipAcc -= step
		if r.bitOffset == r.chunks[r.chunkIndex].bits() {
			r.advanceChunkLocked()
		}
	}
}

func (r *Reader) advanceChunkLocked() {
	if r.retain {
		r.chunkIndex++
		r.bitOffset = 0
		return
	}
	r.spentBits += r.chunks[0].bits()
	r.chunks = r.chunks[1:]
	r.bitOffset = 0
}

// Simulate runs fn with the retain flag temporarily forced on. On return -
// regardless of whether fn returned an error - the cursor offset is
// restored to what it was before the call, and the retain flag is restored
// to its previous value.
func (r *Reader) Simulate(fn func() error) error {
	r.mu.Lock()
	r.materializeSkipLocked()
	savedRetain := r.retain
	savedOffset := r.globalOffset
	r.retain = true
	r.mu.Unlock()

	err := fn()

	r.mu.Lock()
	_ = r.setOffsetLocked(savedOffset)
	r.retain = savedRetain
	r.mu.Unlock()
	return err
}

// stepByte extracts up to 8 bits (MSB-first within the byte) starting at the
// current cursor position, assuming the caller has already verified enough
// bits are buffered. It advances the cursor.
func (r *Reader) stepByte(take int64) byte {
	chunk := r.chunks[r.chunkIndex]
	byteIdx := r.bitOffset >> 3
	bitInByte := r.bitOffset & 7
	avail := int64(8) - bitInByte
	if take > avail {
		take = avail
	}
	shift := avail - take
	v := (chunk[byteIdx] >> uint(shift)) & byte(mask64(int(take)))
	r.bitOffset += take
	r.bufferedBits -= take
	r.globalOffset += take
	if r.bitOffset == chunk.bits() {
		r.advanceChunkLocked()
	}
	return v
}

// extractBitsLocked extracts n (<=64) bits, MSB-first network order,
// assuming sufficient bits are already confirmed buffered.
func (r *Reader) extractBitsLocked(n int64) uint64 {
	var result uint64
	remaining := n
	for remaining > 0 {
		chunk := r.chunks[r.chunkIndex]
		bitInByte := r.bitOffset & 7
		avail := int64(8) - bitInByte
		take := avail
		if take > remaining {
			take = remaining
		}
		v := r.stepByte(take)
		result = (result << uint(take)) | uint64(v)
		remaining -= take
		_ = chunk
	}
	return result
}

// extractBigLocked is extractBitsLocked's arbitrary-width counterpart, used
// once n exceeds the native accumulator width.
func (r *Reader) extractBigLocked(n int64) *big.Int {
	result := new(big.Int)
	tmp := new(big.Int)
	remaining := n
	for remaining > 0 {
		bitInByte := r.bitOffset & 7
		avail := int64(8) - bitInByte
		take := avail
		if take > remaining {
			take = remaining
		}
		v := r.stepByte(take)
		result.Lsh(result, uint(take))
		tmp.SetUint64(uint64(v))
		result.Or(result, tmp)
		remaining -= take
	}
	return result
}

// bigIntReadThreshold is the widest n the uint64 read paths (Read,
// ReadBlocking) accept; wider reads are rejected with biterr.WidthOverflow
// and go through ReadBig/ReadBigSuspend instead (spec §9: implementations
// are free to choose 53 or 63; we choose the native 64-bit boundary since
// Go's uint64 is the natural accumulator width).
const bigIntReadThreshold = 64

// ReadSuspend is the resumable primitive behind every integer read: it
// returns a non-nil Suspension (and a zero value, nil error) instead of
// consuming any bits when fewer than n are buffered. On success it advances
// the cursor and assembles the result per order when n is a byte-aligned
// multiple of 8, and in MSB-first network order otherwise.
func (r *Reader) ReadSuspend(n int64, order ByteOrder) (uint64, *Suspension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suspended {
		return 0, nil, biterr.ErrOutstandingRead
	}
	r.materializeSkipLocked()
	if r.bufferedBits < n {
		r.suspended = true
		return 0, &Suspension{Remaining: n - r.bufferedBits}, nil
	}
	r.suspended = false
	if n <= 0 {
		return 0, nil, nil
	}
	if r.bitOffset%8 == 0 && n%8 == 0 {
		return r.readAlignedLocked(n, order), nil, nil
	}
	return r.extractBitsLocked(n), nil, nil
}

func (r *Reader) readAlignedLocked(n int64, order ByteOrder) uint64 {
	nBytes := int(n / 8)
	var bs [8]byte
	for i := 0; i < nBytes; i++ {
		bs[i] = r.stepByte(8)
	}
	var v uint64
	if order == LittleEndian {
		for i := nBytes - 1; i >= 0; i-- {
			v = v<<8 | uint64(bs[i])
		}
	} else {
		for i := 0; i < nBytes; i++ {
			v = v<<8 | uint64(bs[i])
		}
	}
	return v
}

// ReadBigSuspend is ReadSuspend's arbitrary-precision counterpart, used when
// n exceeds the native accumulator width; byte order is always MSB-first
// since the spec only standardizes byte order for whole-machine-word widths.
func (r *Reader) ReadBigSuspend(n int64) (*big.Int, *Suspension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suspended {
		return nil, nil, biterr.ErrOutstandingRead
	}
	r.materializeSkipLocked()
	if r.bufferedBits < n {
		r.suspended = true
		return nil, &Suspension{Remaining: n - r.bufferedBits}, nil
	}
	r.suspended = false
	return r.extractBigLocked(n), nil, nil
}

// Read is the strict synchronous entry point: a short read is always a
// fatal error, never a wait. n must not exceed the 64-bit accumulator width;
// callers reading wider fields must use ReadBig instead, since narrowing a
// wide value through uint64 would silently truncate it.
func (r *Reader) Read(n int64, order ByteOrder) (uint64, error) {
	if n > bigIntReadThreshold {
		return 0, &biterr.WidthOverflow{Requested: n, Max: bigIntReadThreshold}
	}
	v, susp, err := r.ReadSuspend(n, order)
	if err != nil {
		return 0, err
	}
	if susp != nil {
		r.clearSuspendedAfterFailure()
		return 0, &biterr.Underrun{Requested: n, Buffered: n - susp.Remaining}
	}
	return v, nil
}

// ReadBig reads n bits (n may exceed 64) as an unsigned arbitrary-precision
// integer.
func (r *Reader) ReadBig(n int64) (*big.Int, error) {
	v, susp, err := r.ReadBigSuspend(n)
	if err != nil {
		return nil, err
	}
	if susp != nil {
		r.clearSuspendedAfterFailure()
		return nil, &biterr.Underrun{Requested: n, Buffered: n - susp.Remaining}
	}
	return v, nil
}

// clearSuspendedAfterFailure undoes the suspended marker set by a strict
// read that turned a Suspension into a terminal error: the attempt is over,
// there is nothing left outstanding to resume.
func (r *Reader) clearSuspendedAfterFailure() {
	r.mu.Lock()
	r.suspended = false
	r.mu.Unlock()
}

// ReadSigned reads an n-bit two's-complement signed integer.
func (r *Reader) ReadSigned(n int64, order ByteOrder) (int64, error) {
	u, err := r.Read(n, order)
	if err != nil {
		return 0, err
	}
	return signExtend(u, n), nil
}

func signExtend(u uint64, n int64) int64 {
	if n >= 64 {
		return int64(u)
	}
	signBit := uint64(1) << uint(n-1)
	if u&signBit != 0 {
		return int64(u) - int64(1<<uint(n))
	}
	return int64(u)
}

// ReadFloat reads an IEEE 754 value at width 32 or 64, big-endian byte
// layout per spec; any other width is an error.
func (r *Reader) ReadFloat(width int) (float64, error) {
	switch width {
	case 32:
		bits, err := r.Read(32, BigEndian)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(uint32(bits))), nil
	case 64:
		bits, err := r.Read(64, BigEndian)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(bits), nil
	default:
		return 0, &biterr.InvalidFloatWidth{Width: width}
	}
}

// Peek behaves like Read(n) without advancing the cursor.
func (r *Reader) Peek(n int64, order ByteOrder) (uint64, error) {
	var val uint64
	var rerr error
	err := r.Simulate(func() error {
		val, rerr = r.Read(n, order)
		return rerr
	})
	if err != nil {
		return 0, err
	}
	return val, rerr
}

// ReadBytesSuspend fills dst entirely or suspends without consuming any
// bits; the cursor must be byte-aligned.
func (r *Reader) ReadBytesSuspend(dst []byte) (*Suspension, error) {
	n := int64(len(dst)) * 8
	r.mu.Lock()
	if r.suspended {
		r.mu.Unlock()
		return nil, biterr.ErrOutstandingRead
	}
	r.materializeSkipLocked()
	if r.bufferedBits < n {
		r.suspended = true
		s := &Suspension{Remaining: n - r.bufferedBits}
		r.mu.Unlock()
		return s, nil
	}
	r.suspended = false
	r.mu.Unlock()
	for i := range dst {
		v, err := r.Read(8, BigEndian)
		if err != nil {
			return nil, err
		}
		dst[i] = byte(v)
	}
	return nil, nil
}

// ReadBytes strictly fills dst or returns an Underrun error.
func (r *Reader) ReadBytes(dst []byte) error {
	susp, err := r.ReadBytesSuspend(dst)
	if err != nil {
		return err
	}
	if susp != nil {
		r.clearSuspendedAfterFailure()
		return &biterr.Underrun{Requested: int64(len(dst)) * 8, Buffered: int64(len(dst))*8 - susp.Remaining}
	}
	return nil
}

// blockingWait parks the calling goroutine - a real, resumable Go stack,
// exactly the primitive spec §9's design notes describe emulating by hand
// in hosts without native coroutines - until the reader's state changes or
// ctx is cancelled.
func (r *Reader) blockingWait(ctx context.Context) error {
	r.mu.Lock()
	ch := r.notify
	r.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadBlocking reads n bits, parking the calling goroutine until enough
// bits are pushed (or the reader ends, or ctx is cancelled) instead of
// returning a Suspension to the caller. n must not exceed the 64-bit
// accumulator width; wider fields go through ReadBigSuspend directly, the
// way record.decodeScalar's own blocking loop does.
func (r *Reader) ReadBlocking(ctx context.Context, n int64, order ByteOrder) (uint64, error) {
	if n > bigIntReadThreshold {
		return 0, &biterr.WidthOverflow{Requested: n, Max: bigIntReadThreshold}
	}
	for {
		v, susp, err := r.ReadSuspend(n, order)
		if err != nil {
			return 0, err
		}
		if susp == nil {
			return v, nil
		}
		if r.Ended() {
			r.clearSuspendedAfterFailure()
			return 0, &biterr.Underrun{Requested: n, Buffered: n - susp.Remaining}
		}
		if err := r.blockingWait(ctx); err != nil {
			r.clearSuspendedAfterFailure()
			return 0, err
		}
	}
}

// WaitForMore parks the calling goroutine until the reader's state changes
// (a Push or End) or ctx is cancelled. It is the building block record.Engine
// uses to retry a single suspended field-level decode without restarting the
// enclosing record or array from scratch.
func (r *Reader) WaitForMore(ctx context.Context) error {
	return r.blockingWait(ctx)
}

// ReadBytesBlocking is ReadBlocking's byte-buffer counterpart.
func (r *Reader) ReadBytesBlocking(ctx context.Context, dst []byte) error {
	for {
		susp, err := r.ReadBytesSuspend(dst)
		if err != nil {
			return err
		}
		if susp == nil {
			return nil
		}
		if r.Ended() {
			r.clearSuspendedAfterFailure()
			return &biterr.Underrun{Requested: int64(len(dst)) * 8, Buffered: int64(len(dst))*8 - susp.Remaining}
		}
		if err := r.blockingWait(ctx); err != nil {
			r.clearSuspendedAfterFailure()
			return err
		}
	}
}
