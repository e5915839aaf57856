package request

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Keys flattens a JSON-like value into dotted path strings, one per
// key occurrence at every depth (e.g. "supportingProps.database").
// Arrays are traversed like objects with index segments; only presence
// of a named key anywhere in the tree is tested downstream, never
// positional semantics. Keys at each level are visited in sorted order
// so the result is deterministic for identical input.
func Keys(obj map[string]interface{}) []string {
	return collectKeys(obj, "")
}

// KeysOf marshals v through JSON and extracts its key paths. A value
// that does not serialize to a JSON object is an error: the key set
// drives instruction selection, so it must never be silently empty.
func KeysOf(v interface{}) ([]string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value for key extraction: %w", err)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return Keys(obj), nil
}

func collectKeys(obj map[string]interface{}, prefix string) []string {
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	var keys []string
	for _, name := range names {
		current := name
		if prefix != "" {
			current = prefix + "." + name
		}
		keys = append(keys, current)
		keys = append(keys, childKeys(obj[name], current)...)
	}
	return keys
}

func childKeys(value interface{}, prefix string) []string {
	switch typed := value.(type) {
	case map[string]interface{}:
		return collectKeys(typed, prefix)
	case []interface{}:
		var keys []string
		for i, elem := range typed {
			current := prefix + "." + strconv.Itoa(i)
			keys = append(keys, current)
			keys = append(keys, childKeys(elem, current)...)
		}
		return keys
	}
	return nil
}

// HasKey reports whether the key set contains the given path.
func HasKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
