package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ColumnData maps column names to cell text and remembers insertion order.
// The JSON form is an object whose keys keep that order in both directions.
type ColumnData struct {
	keys   []string
	values map[string]string
}

// NewColumnData builds a ColumnData from alternating key, value pairs.
func NewColumnData(pairs ...string) ColumnData {
	var cd ColumnData
	for i := 0; i+1 < len(pairs); i += 2 {
		cd.Set(pairs[i], pairs[i+1])
	}
	return cd
}

// Set adds or overwrites key. New keys go to the end.
func (cd *ColumnData) Set(key, value string) {
	if cd.values == nil {
		cd.values = make(map[string]string)
	}
	if _, ok := cd.values[key]; !ok {
		cd.keys = append(cd.keys, key)
	}
	cd.values[key] = value
}

// Get returns the value for key and whether it was present.
func (cd ColumnData) Get(key string) (string, bool) {
	v, ok := cd.values[key]
	return v, ok
}

// Value returns the value for key, or "" when missing.
func (cd ColumnData) Value(key string) string {
	return cd.values[key]
}

func (cd ColumnData) Keys() []string {
	out := make([]string, len(cd.keys))
	copy(out, cd.keys)
	return out
}

func (cd ColumnData) Len() int { return len(cd.keys) }

func (cd ColumnData) Clone() ColumnData {
	var out ColumnData
	for _, k := range cd.keys {
		out.Set(k, cd.values[k])
	}
	return out
}

// Map returns an unordered copy.
func (cd ColumnData) Map() map[string]string {
	out := make(map[string]string, len(cd.keys))
	for _, k := range cd.keys {
		out[k] = cd.values[k]
	}
	return out
}

func (cd ColumnData) Equal(other ColumnData) bool {
	if len(cd.keys) != len(other.keys) {
		return false
	}
	for i, k := range cd.keys {
		if other.keys[i] != k || other.values[k] != cd.values[k] {
			return false
		}
	}
	return true
}

func (cd ColumnData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range cd.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(cd.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (cd *ColumnData) UnmarshalJSON(data []byte) error {
	*cd = ColumnData{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("column data: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("column data: expected key, got %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case string:
			cd.Set(key, v)
		case json.Number:
			cd.Set(key, v.String())
		case bool:
			cd.Set(key, fmt.Sprint(v))
		case nil:
			cd.Set(key, "")
		default:
			return fmt.Errorf("column data: unsupported value for %q", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
