// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostconfig is the demo CLI's flag surface, descended from the
// teacher's config package: instead of a configuration-directory flag it
// exposes the knobs cmd/bitrecctl needs to drive a bitio pipeline - input
// path, chunk size and retain mode.
package hostconfig

import (
	"errors"
	"flag"
)

var (
	inputPath = flag.String("input", "", "path to the file to read as a bit-record stream")
	chunkSize = flag.Int("chunk-size", 4096, "bytes read per chunk pushed into the bit reader")
	retain    = flag.Bool("retain", false, "retain consumed chunks so the cursor can be rewound")
)

// Config is the resolved set of flags, read once after flag.Parse.
type Config struct {
	InputPath string
	ChunkSize int
	Retain    bool
}

// Load validates and returns the parsed flags. flag.Parse must already have
// been called.
func Load() (Config, error) {
	if len(*inputPath) == 0 {
		return Config{}, errors.New("hostconfig: missing -input path")
	}
	if *chunkSize <= 0 {
		return Config{}, errors.New("hostconfig: -chunk-size must be positive")
	}
	return Config{
		InputPath: *inputPath,
		ChunkSize: *chunkSize,
		Retain:    *retain,
	}, nil
}
