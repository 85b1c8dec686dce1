package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is one roster row keyed by column name. It remembers the order
// in which columns were first set so headers can be derived from it.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord builds a record from parallel header and value slices.
// Missing trailing values become empty text.
func NewRecord(headers []string, values []Value) Record {
	r := Record{
		keys:   make([]string, 0, len(headers)),
		values: make(map[string]Value, len(headers)),
	}
	for i, h := range headers {
		var v Value
		if i < len(values) {
			v = values[i]
		}
		r.Set(h, v)
	}
	return r
}

// RecordFromMap builds a record from a plain map. Keys are sorted because
// Go maps carry no order.
func RecordFromMap(m map[string]Value) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := Record{keys: keys, values: make(map[string]Value, len(m))}
	for k, v := range m {
		r.values[k] = v
	}
	return r
}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value under key, or empty text when absent.
func (r Record) Value(key string) Value {
	return r.values[key]
}

// Set stores v under key, appending key to the order if it is new.
func (r *Record) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Keys returns the column names in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns set on the record.
func (r Record) Len() int { return len(r.keys) }

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]Value, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Map returns a copy of the record as a plain map.
func (r Record) Map() map[string]Value {
	m := make(map[string]Value, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Conform returns a copy holding exactly the given headers in order.
// Columns absent from r become empty text; extra columns are dropped.
func (r Record) Conform(headers []string) Record {
	c := Record{
		keys:   make([]string, 0, len(headers)),
		values: make(map[string]Value, len(headers)),
	}
	for _, h := range headers {
		c.Set(h, r.values[h])
	}
	return c
}

// Equal reports whether both records hold the same values, ignoring key order.
func (r Record) Equal(other Record) bool {
	if len(r.values) != len(other.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as an object with keys in insertion order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, preserving key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	*r = Record{values: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string")
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
