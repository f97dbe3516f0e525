package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is an immutable JSON object holding settings.
// Paths use gjson syntax ("editor.tabSize", "servers.0.host").
// Mutating methods return a new Document and never touch the receiver.
type Document struct {
	raw []byte
}

// EmptyDocument returns a document holding an empty object.
func EmptyDocument() Document {
	return Document{raw: []byte("{}")}
}

// ParseDocument validates data as a JSON object and wraps a copy of it.
func ParseDocument(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, fmt.Errorf("invalid settings document")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return Document{}, fmt.Errorf("settings document must be an object")
	}
	return Document{raw: bytes.Clone(data)}, nil
}

// FromMap builds a document from decoded settings.
func FromMap(m map[string]any) (Document, error) {
	if m == nil {
		return EmptyDocument(), nil
	}
	data, err := json.Marshal(normalize(m))
	if err != nil {
		return Document{}, fmt.Errorf("encoding settings: %w", err)
	}
	return Document{raw: data}, nil
}

// Bytes returns a copy of the JSON encoding.
func (d Document) Bytes() []byte {
	if d.raw == nil {
		return []byte("{}")
	}
	return bytes.Clone(d.raw)
}

// String returns the JSON encoding.
func (d Document) String() string {
	if d.raw == nil {
		return "{}"
	}
	return string(d.raw)
}

// Get returns the value at path.
func (d Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Exists reports whether path is set.
func (d Document) Exists(path string) bool {
	return d.Get(path).Exists()
}

// With returns a copy of the document with path set to value.
func (d Document) With(path string, value any) (Document, error) {
	data, err := sjson.SetBytes(d.Bytes(), path, value)
	if err != nil {
		return d, fmt.Errorf("setting %q: %w", path, err)
	}
	return Document{raw: data}, nil
}

// Without returns a copy of the document with path removed.
func (d Document) Without(path string) (Document, error) {
	data, err := sjson.DeleteBytes(d.Bytes(), path)
	if err != nil {
		return d, fmt.Errorf("deleting %q: %w", path, err)
	}
	return Document{raw: data}, nil
}

// Map decodes the document into plain Go values.
// Integral numbers become int64 and the rest float64.
func (d Document) Map() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(d.Bytes()))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return numbers(m).(map[string]any), nil
}

// Equal reports whether two documents hold the same JSON value,
// ignoring formatting and key order.
func (d Document) Equal(other Document) bool {
	if bytes.Equal(d.raw, other.raw) {
		return true
	}
	a, errA := d.Map()
	b, errB := other.Map()
	if errA != nil || errB != nil {
		return false
	}
	ea, _ := json.Marshal(a)
	eb, _ := json.Marshal(b)
	return bytes.Equal(ea, eb)
}

// normalize converts the map[any]any values yaml can produce into
// map[string]any so they encode as JSON objects.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func numbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = numbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = numbers(item)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	default:
		return v
	}
}
