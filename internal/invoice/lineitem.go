package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LineItem represents one billed row of an invoice as an ordered set of
// named string fields. Field order is preserved from the model response so
// exported columns follow the source document layout.
type LineItem struct {
	names  []string
	values map[string]string
}

// NewLineItem creates an empty LineItem
func NewLineItem() LineItem {
	return LineItem{values: make(map[string]string)}
}

// Get returns the value for a field and whether the field is present
func (li LineItem) Get(name string) (string, bool) {
	v, ok := li.values[name]
	return v, ok
}

// Set sets a field value, appending the field to the order if it is new
func (li *LineItem) Set(name, value string) {
	if li.values == nil {
		li.values = make(map[string]string)
	}
	if _, ok := li.values[name]; !ok {
		li.names = append(li.names, name)
	}
	li.values[name] = value
}

// InsertAfter sets a field value positioned immediately after the anchor
// field. If the anchor is absent or the field already exists, it behaves
// like Set.
func (li *LineItem) InsertAfter(anchor, name, value string) {
	if li.values == nil {
		li.values = make(map[string]string)
	}
	if _, ok := li.values[name]; ok {
		li.values[name] = value
		return
	}
	for i, n := range li.names {
		if n == anchor {
			li.names = append(li.names[:i+1], append([]string{name}, li.names[i+1:]...)...)
			li.values[name] = value
			return
		}
	}
	li.Set(name, value)
}

// Names returns the field names in order
func (li LineItem) Names() []string {
	names := make([]string, len(li.names))
	copy(names, li.names)
	return names
}

// Len returns the number of fields
func (li LineItem) Len() int {
	return len(li.names)
}

// Clone returns an independent copy of the line item
func (li LineItem) Clone() LineItem {
	out := LineItem{
		names:  make([]string, len(li.names)),
		values: make(map[string]string, len(li.values)),
	}
	copy(out.names, li.names)
	for k, v := range li.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the line item as a JSON object with fields in order
func (li LineItem) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range li.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(li.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Scalar values
// are coerced to strings since the model does not reliably quote numbers.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading line item: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("line item must be a JSON object")
	}

	li.names = nil
	li.values = make(map[string]string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading field name: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("field name must be a string")
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("reading field %q: %w", key, err)
		}
		li.Set(key, stringifyValue(value))
	}

	// Consume the closing brace
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading line item: %w", err)
	}

	return nil
}

// stringifyValue converts a decoded JSON value to its string form
func stringifyValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		// Nested arrays/objects are not expected from the model, but
		// preserve them as raw JSON rather than dropping the field
		raw, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
