// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostio names the collaborator contracts a host feeding a
// bitio.Reader or draining a bitio.Writer is expected to satisfy. The only
// implementation here is FileSource, a ChunkSource over an io.Reader used
// by cmd/bitrecctl; ByteSink has no implementation in this module.
package hostio

import (
	"context"
	"io"

	"github.com/solidcoredata/bitrec/bitio"
)

// ChunkSource supplies bitio.Chunk values to a bitio.Reader, typically by
// reading fixed-size blocks off a file or socket until EOF.
type ChunkSource interface {
	// Next returns the next chunk of input, or io.EOF once exhausted.
	Next(ctx context.Context) (bitio.Chunk, error)
}

// ByteSink receives the bytes a bitio.Writer flushes, typically a file or
// socket write, and a final Close once the writer is done.
type ByteSink interface {
	Write(p []byte) (int, error)
	Close() error
}

// Pump drains src into r until src reports io.EOF or ctx is cancelled, then
// calls r.End(). It is the minimal glue cmd/bitrecctl needs between a
// ChunkSource and the record engine's reader.
func Pump(ctx context.Context, src ChunkSource, r *bitio.Reader) error {
	defer r.End()
	for {
		c, err := src.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := r.Push(c); err != nil {
			return err
		}
	}
}
