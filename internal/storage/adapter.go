// Package storage persists whole-collection snapshots of the record store.
//
// Every adapter stores a collection as one document mapping id to the raw
// JSON of its record. Saves replace the whole document; there is no
// per-record write below collection granularity.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Collection names one of the persisted record sets.
type Collection string

const (
	Projects    Collection = "projects"
	Deployments Collection = "deployments"
	Templates   Collection = "templates"
)

// Collections lists every collection in load order.
var Collections = []Collection{Projects, Deployments, Templates}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Projects, Deployments, Templates:
		return true
	}
	return false
}

// Snapshot is the persisted form of a collection: record id to raw JSON.
type Snapshot map[string]json.RawMessage

// Clone deep-copies the snapshot, including the raw bytes.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, raw := range s {
		out[id] = append(json.RawMessage(nil), raw...)
	}
	return out
}

// Adapter is a durable or volatile backend for collection snapshots.
//
// LoadCollection returns an empty snapshot when nothing has been stored yet
// and when the stored document is empty or cannot be parsed; the latter is
// logged. Errors are only returned for I/O failures of the backend itself.
type Adapter interface {
	LoadCollection(ctx context.Context, c Collection) (Snapshot, error)
	SaveCollection(ctx context.Context, c Collection, snap Snapshot) error
	Name() string
	Close() error
}

func checkCollection(c Collection) error {
	if !c.Valid() {
		return fmt.Errorf("unknown collection %q", c)
	}
	return nil
}

// decodeDocument parses a stored collection document. A blank or malformed
// document yields an empty snapshot and a non-nil parse error for logging.
func decodeDocument(data []byte) (Snapshot, error) {
	snap := Snapshot{}
	if len(bytes.TrimSpace(data)) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}
