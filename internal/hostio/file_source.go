// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostio

import (
	"context"
	"io"

	"github.com/solidcoredata/bitrec/bitio"
)

// FileSource reads fixed-size chunks off an io.Reader (typically an open
// *os.File), implementing ChunkSource for cmd/bitrecctl's demo pipeline.
type FileSource struct {
	r         io.Reader
	chunkSize int
}

// NewFileSource wraps r, reading chunkSize bytes at a time.
func NewFileSource(r io.Reader, chunkSize int) *FileSource {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &FileSource{r: r, chunkSize: chunkSize}
}

// Next implements ChunkSource.
func (f *FileSource) Next(ctx context.Context) (bitio.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, f.chunkSize)
	n, err := f.r.Read(buf)
	if n > 0 {
		return bitio.Chunk(buf[:n]), nil
	}
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}
