package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONItem is one value to persist from a JSON document. Index is the
// position inside a top-level array, or -1 for a top-level object.
type JSONItem struct {
	Index int
	Data  any
}

// SplitJSON decodes content and returns the values to store: every element of
// a top-level array, or the top-level object itself. ok is false when the
// document is valid JSON of any other type. Numbers are kept as json.Number
// so large integers reach the store without float rounding.
func SplitJSON(content []byte) (items []JSONItem, ok bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, false, fmt.Errorf("decode json: %w", errors.New("unexpected data after JSON value"))
	}
	switch v := doc.(type) {
	case []any:
		items = make([]JSONItem, 0, len(v))
		for i, el := range v {
			items = append(items, JSONItem{Index: i, Data: el})
		}
		return items, true, nil
	case map[string]any:
		return []JSONItem{{Index: -1, Data: v}}, true, nil
	default:
		return nil, false, nil
	}
}
