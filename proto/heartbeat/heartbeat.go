// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heartbeat is a worked example of a variant record built with
// schema.Builder: the client/server announcement protocol the teacher left
// as ad-hoc Go structs and a prose comment (internal/connect) is given a
// concrete wire schema here, with a message-kind marker selecting between
// the client's version announcement and the server's disconnect/stack
// announcement, and an array of recent versions on each side.
package heartbeat

import (
	"github.com/solidcoredata/bitrec/schema"
)

// Message kind discriminants, read off the 8-bit "kind" marker field.
const (
	KindToServer uint64 = 1
	KindToClient uint64 = 2
)

// Schema returns the heartbeat record's schema: a UUID, a disconnect flag,
// a kind marker, and one of the two variant bodies.
func Schema() *schema.Schema {
	toServerEntry, err := schema.NewBuilder("version_count").
		StringFixed("version", 8, schema.EncodingUTF8).
		Int("parts", 16).
		Build()
	if err != nil {
		panic(err)
	}

	serverStack, err := schema.NewBuilder("stack_entry").
		StringFixed("version", 8, schema.EncodingUTF8).
		Bool("current").
		Bool("scheduled").
		Int("scheduled_unix", 64).
		When(func(cur schema.Cursor) (bool, error) {
			v, _ := cur.Get("scheduled")
			scheduled, _ := v.(bool)
			return scheduled, nil
		}).
		Build()
	if err != nil {
		panic(err)
	}

	return schema.NewBuilder("heartbeat").
		BytesFixed("uuid", 16).
		Bool("disconnect").
		Int("kind", 8).
		Marker("kind").
		Variant(schema.Variant{
			Name:         "to_server",
			Discriminant: schema.DiscriminantEquals("kind", KindToServer),
			Fields: []schema.Field{
				{Name: "parts", Kind: schema.KindInteger, Length: 32},
				{
					Name: "current", Kind: schema.KindArray,
					ArrayCounting:   schema.ArrayCountFixed,
					ArrayFixedCount: 5,
					Element:         &schema.Field{Name: "entry", Kind: schema.KindRecord, Nested: toServerEntry},
				},
			},
		}).
		Variant(schema.Variant{
			Name:         "to_client",
			Discriminant: schema.DiscriminantEquals("kind", KindToClient),
			Fields: []schema.Field{
				{
					Name: "stack", Kind: schema.KindArray,
					ArrayCounting: schema.ArrayHasMore,
					Element:       &schema.Field{Name: "entry", Kind: schema.KindRecord, Nested: serverStack},
				},
			},
		}).
		MustBuild()
}
