package chronicle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/l1jgo/simcore/internal/core/event"
)

// ChangeNotice is the payload carried by state:changed events.
type ChangeNotice struct {
	Label  string
	Remote bool
}

// RemoteUpdate is what a peer sends across the consensus layer: a full
// document snapshot plus the version it was produced at. The Chronicle's
// merge rule is last-writer-wins on Version, which is sufficient for the
// "authoritative server is the only writer" topology spec.md assumes, and
// degrades gracefully for symmetric peers as a deterministic convergence
// rule (not a CRDT-grade one — see DESIGN.md).
type RemoteUpdate struct {
	Document *Document
	Version  int64
}

// Chronicle is the versioned, replicated document store. All mutation goes
// through Change; State returns a read-only view.
type Chronicle struct {
	mu  sync.RWMutex
	doc *Document
	bus *event.Bus
}

func New(bus *event.Bus) *Chronicle {
	return &Chronicle{
		doc: NewDocument(),
		bus: bus,
	}
}

// State returns the current document. Callers must treat it as read-only;
// the only legal path to mutation is Change.
func (c *Chronicle) State() *Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Change runs mutator over a throwaway clone of the document. On success the
// clone replaces the live document, its version is bumped, and state:changed
// is emitted. On error the live document is untouched and no event fires.
func (c *Chronicle) Change(label string, mutator func(*Document) error) error {
	c.mu.RLock()
	clone := c.doc.Clone()
	c.mu.RUnlock()

	if err := mutator(clone); err != nil {
		return err
	}
	clone.Version++

	c.mu.Lock()
	c.doc = clone
	c.mu.Unlock()

	if c.bus != nil {
		event.Publish(c.bus, event.StateChanged, ChangeNotice{Label: label, Remote: false})
	}
	return nil
}

// MergeRemote ingests a peer update. The newer version wins wholesale; ties
// keep the local document (the local writer is assumed authoritative in the
// single-writer topology spec.md describes).
func (c *Chronicle) MergeRemote(update RemoteUpdate) error {
	c.mu.Lock()
	if update.Version <= c.doc.Version {
		c.mu.Unlock()
		return nil
	}
	c.doc = update.Document
	c.mu.Unlock()

	if c.bus != nil {
		event.Publish(c.bus, event.StateChanged, ChangeNotice{Label: "mergeRemote", Remote: true})
	}
	return nil
}

// SaveToBase64 serializes the full document to a base64-encoded JSON blob
// (spec.md §6: `chronicle: base64String`).
func (c *Chronicle) SaveToBase64() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, err := json.Marshal(c.doc)
	if err != nil {
		return "", fmt.Errorf("marshal chronicle: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// LoadFromBase64 replaces the live document with one decoded from a
// snapshot produced by SaveToBase64.
func (c *Chronicle) LoadFromBase64(s string) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode chronicle base64: %w", err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("unmarshal chronicle: %w", err)
	}
	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()
	return nil
}
