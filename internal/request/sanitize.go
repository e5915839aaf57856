package request

import (
	"encoding/json"
	"fmt"
)

// Sanitize returns the request as a JSON string suitable for embedding
// in the instruction document. Callback values that arrived as
// non-string JSON (the component layer usually sends function names,
// but raw objects slip through) are replaced with synthetic names, and
// each mutation's mutate value is collapsed to its id so the model
// addresses mutations via args.[id] instead of seeing function bodies.
func Sanitize(r *GenerationRequest) (string, error) {
	clone := *r

	if r.Callbacks != nil {
		cb := Callbacks{}
		for i, entry := range r.Callbacks.Independent {
			entry.Callback = callbackName(entry.Callback, "independent", i)
			cb.Independent = append(cb.Independent, entry)
		}
		for i, entry := range r.Callbacks.Dependent {
			entry.Callback = callbackName(entry.Callback, "dependent", i)
			cb.Dependent = append(cb.Dependent, entry)
		}
		clone.Callbacks = &cb
	}

	if len(r.Mutation) > 0 {
		mutations := make([]Mutation, len(r.Mutation))
		copy(mutations, r.Mutation)
		for i := range mutations {
			mutations[i].Mutate = mutations[i].ID
		}
		clone.Mutation = mutations
	}

	data, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("failed to sanitize request: %w", err)
	}
	return string(data), nil
}

func callbackName(value interface{}, set string, index int) string {
	if name, ok := value.(string); ok && name != "" && name != "callback" {
		return name
	}
	return fmt.Sprintf("callback%s%d", set, index)
}
