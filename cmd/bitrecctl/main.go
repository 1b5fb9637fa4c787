// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command bitrecctl is a small demo host: it feeds a file into a
// bitio.Reader chunk by chunk and decodes heartbeat records from it until
// the file is exhausted, logging each one. It exists to exercise
// internal/hostio and internal/start against a real schema rather than to
// be a production tool.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/solidcoredata/bitrec/biterr"
	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/internal/hostconfig"
	"github.com/solidcoredata/bitrec/internal/hostio"
	"github.com/solidcoredata/bitrec/internal/start"
	"github.com/solidcoredata/bitrec/proto/heartbeat"
	"github.com/solidcoredata/bitrec/record"
)

func main() {
	flag.Parse()
	if err := start.Start(context.Background(), 5*time.Second, run); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := hostconfig.Load()
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bitio.NewReader(cfg.Retain)
	src := hostio.NewFileSource(f, cfg.ChunkSize)

	return start.RunAll(ctx,
		func(ctx context.Context) error { return hostio.Pump(ctx, src, r) },
		func(ctx context.Context) error { return decodeLoop(ctx, r) },
	)
}

func decodeLoop(ctx context.Context, r *bitio.Reader) error {
	s := heartbeat.Schema()
	e := record.NewEngine()
	count := 0
	for {
		inst, err := e.ParseBlocking(ctx, r, s)
		if err != nil {
			var underrun *biterr.Underrun
			if errors.As(err, &underrun) && r.Ended() && r.Available() == 0 {
				log.Printf("decoded %d heartbeat(s)", count)
				return nil
			}
			if errors.Is(err, context.Canceled) {
				log.Printf("decoded %d heartbeat(s)", count)
				return nil
			}
			return err
		}
		count++
		kind, _ := inst.Get("kind")
		log.Printf("heartbeat #%d: kind=%v variant=%v", count, kind, inst.Variant())
	}
}
