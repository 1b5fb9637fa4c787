// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"context"
	"math/big"

	"golang.org/x/xerrors"

	"github.com/solidcoredata/bitrec/biterr"
	"github.com/solidcoredata/bitrec/bitio"
	"github.com/solidcoredata/bitrec/codec"
	"github.com/solidcoredata/bitrec/schema"
)

// Engine drives schema.Schema values across bitio readers and writers. The
// zero value is not usable; construct one with NewEngine, or build one
// around a custom codec.Registry with NewEngineWithRegistry.
type Engine struct {
	Registry *codec.Registry
}

// NewEngine returns an Engine backed by the built-in codec registry.
func NewEngine() *Engine {
	return &Engine{Registry: codec.NewRegistry()}
}

// NewEngineWithRegistry returns an Engine backed by a caller-supplied
// registry, for hosts that register additional field kinds.
func NewEngineWithRegistry(reg *codec.Registry) *Engine {
	return &Engine{Registry: reg}
}

// Parse reads one record synchronously: any suspension (a short read that
// is not a fatal end-of-stream underrun) is still treated as fatal, per
// spec's synchronous consumption mode.
func (e *Engine) Parse(r *bitio.Reader, s *schema.Schema) (*Instance, error) {
	return e.parse(nil, false, r, s)
}

// ParseBlocking reads one record, parking the calling goroutine at each
// field that would otherwise suspend until enough data is pushed or ctx is
// cancelled - the async consumption mode realized with a real Go stack
// instead of a hand-rolled generator.
func (e *Engine) ParseBlocking(ctx context.Context, r *bitio.Reader, s *schema.Schema) (*Instance, error) {
	return e.parse(ctx, true, r, s)
}

// TryParse attempts to read one record; if any field would suspend, the
// reader's cursor is rewound to its pre-attempt offset (forcing retain on
// for the duration via bitio.Reader.Simulate) and ErrNotEnough is returned
// instead of the record.
func (e *Engine) TryParse(r *bitio.Reader, s *schema.Schema) (*Instance, error) {
	var inst *Instance
	simErr := r.Simulate(func() error {
		var err error
		inst, err = e.parse(nil, false, r, s)
		return err
	})
	if simErr != nil {
		var underrun *biterr.Underrun
		if xerrors.As(simErr, &underrun) {
			return nil, biterr.ErrNotEnough
		}
		return nil, simErr
	}
	return inst, nil
}

func (e *Engine) parse(ctx context.Context, blocking bool, r *bitio.Reader, s *schema.Schema) (*Instance, error) {
	inst := newInstance(s)
	startOffset := r.Offset()
	if s.OnParseStarted != nil {
		s.OnParseStarted(inst)
	}
	if err := e.parseSchemaFields(ctx, blocking, r, inst, s, startOffset); err != nil {
		return nil, err
	}
	if s.OnParseFinished != nil {
		s.OnParseFinished(inst)
	}
	return inst, nil
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case uint64:
		return int64(t), nil
	case int:
		return int64(t), nil
	case *big.Int:
		return t.Int64(), nil
	default:
		return 0, xerrors.Errorf("record: cannot interpret %T as an array count", v)
	}
}
