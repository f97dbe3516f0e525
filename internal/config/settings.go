package config

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/reactive"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was deleted.
	ChangeDelete

	// ChangeReload indicates the whole document was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change describes a change observed at a watched path.
type Change struct {
	// Path is the watched path. Empty when the whole document is watched.
	Path string

	// Type is the type of change.
	Type ChangeType

	// Old is the previous value. Old.Exists() is false if the path was unset.
	Old gjson.Result

	// New is the current value. New.Exists() is false after a delete.
	New gjson.Result
}

// Settings is an observable settings document.
type Settings struct {
	prop *reactive.Property[Document]
}

// NewSettings creates settings holding doc.
func NewSettings(doc Document, opts ...reactive.Option) *Settings {
	return &Settings{prop: reactive.NewProperty(doc, opts...)}
}

// Property returns the underlying property.
func (s *Settings) Property() *reactive.Property[Document] {
	return s.prop
}

// Snapshot returns the current document.
func (s *Settings) Snapshot() (Document, error) {
	return s.prop.Get()
}

// Get returns the value at path.
func (s *Settings) Get(path string) (gjson.Result, error) {
	doc, err := s.prop.Get()
	if err != nil {
		return gjson.Result{}, err
	}
	return lookup(doc, path), nil
}

// Set stores value at path and notifies every subscriber.
func (s *Settings) Set(path string, value any) error {
	if _, err := EmptyDocument().With(path, value); err != nil {
		return err
	}
	return edit(s.prop.Update, func(d Document) (Document, error) {
		return d.With(path, value)
	})
}

// Delete removes path and notifies every subscriber.
func (s *Settings) Delete(path string) error {
	if path == "" {
		return fmt.Errorf("deleting: empty path")
	}
	return edit(s.prop.Update, func(d Document) (Document, error) {
		return d.Without(path)
	})
}

// Merge deep-merges overrides into the current document.
func (s *Settings) Merge(overrides map[string]any) error {
	return edit(s.prop.Update, func(d Document) (Document, error) {
		m, err := d.Map()
		if err != nil {
			return d, err
		}
		return FromMap(DeepMerge(m, overrides))
	})
}

// Replace swaps in a whole new document.
func (s *Settings) Replace(doc Document) error {
	return s.prop.Set(doc)
}

// Watch calls fn whenever the value at path changes. An empty path
// watches the whole document. Writes that leave the value untouched
// are filtered out. The baseline for the first Change is the value at
// the moment Watch registers; on poisoned settings the first write after
// ClearPoison becomes the baseline instead.
func (s *Settings) Watch(path string, fn func(Change)) *reactive.PropertyBinding[Document] {
	if fn == nil {
		panic("config: nil watch callback")
	}

	// prev and seeded are only touched under the property's write lock.
	// The first call seeds prev with the value current at registration.
	var (
		prev   gjson.Result
		seeded bool
	)
	b, _ := s.prop.Observe(func(doc Document) {
		cur := lookup(doc, path)
		if !seeded {
			prev, seeded = cur, true
			return
		}
		if cur.Exists() == prev.Exists() && cur.Raw == prev.Raw {
			return
		}
		change := Change{Path: path, Type: changeType(path, prev, cur), Old: prev, New: cur}
		prev = cur
		fn(change)
	})
	return b
}

// Writer binds fn to the settings and returns a binding whose own writes
// are not delivered back to fn.
func (s *Settings) Writer(fn func(Document)) *reactive.ReadWriteBinding[Document] {
	return s.prop.BindMut(fn)
}

// Len returns the number of subscribers.
func (s *Settings) Len() int {
	return s.prop.Len()
}

// Close drops every subscriber.
func (s *Settings) Close() {
	s.prop.Close()
}

// edit applies fn through update. A failing fn leaves the document
// unchanged, so path watchers filter the notification out.
func edit(update func(func(*Document)) error, fn func(Document) (Document, error)) error {
	var editErr error
	err := update(func(d *Document) {
		next, err := fn(*d)
		if err != nil {
			editErr = err
			return
		}
		*d = next
	})
	if err != nil {
		return err
	}
	return editErr
}

func lookup(doc Document, path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(doc.Bytes())
	}
	return doc.Get(path)
}

func changeType(path string, old, cur gjson.Result) ChangeType {
	switch {
	case path == "":
		return ChangeReload
	case old.Exists() && !cur.Exists():
		return ChangeDelete
	default:
		return ChangeSet
	}
}

// DeepMerge merges src into dst recursively.
// Values in src override values in dst.
// Nested maps are merged recursively.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	if src == nil {
		return dst
	}

	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}
	return dst
}
