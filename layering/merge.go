// Package layering composes descriptor payloads from several sources, such as
// a catalog baseline and a tenant override, before they are decoded.
package layering

// DefaultIdentityKey names the field that identifies list entries.
const DefaultIdentityKey = "slug"

// Merge composes payloads ordered from strongest to weakest. Stronger values
// win; nested objects merge recursively. Lists whose entries are all objects
// carrying the identity key merge entry by entry: matching entries merge, the
// weaker order is kept, and entries only present in stronger layers are
// appended. Any other list is replaced wholesale. Inputs are not mutated.
func Merge(layers ...map[string]any) map[string]any {
	return MergeBy(DefaultIdentityKey, layers...)
}

// MergeBy is Merge with a custom identity key.
func MergeBy(key string, layers ...map[string]any) map[string]any {
	if len(layers) == 0 {
		return nil
	}
	merged, _ := cloneValue(layers[len(layers)-1]).(map[string]any)
	for i := len(layers) - 2; i >= 0; i-- {
		if layers[i] == nil {
			continue
		}
		merged = mergeObject(key, layers[i], merged)
	}
	return merged
}

func mergeObject(key string, strong, weak map[string]any) map[string]any {
	out := make(map[string]any, len(strong)+len(weak))
	for k, v := range weak {
		out[k] = cloneValue(v)
	}
	for k, v := range strong {
		out[k] = mergeValue(key, v, out[k])
	}
	return out
}

func mergeValue(key string, strong, weak any) any {
	switch s := strong.(type) {
	case nil:
		return nil
	case map[string]any:
		if w, ok := weak.(map[string]any); ok {
			return mergeObject(key, s, w)
		}
	case []any:
		if w, ok := weak.([]any); ok && keyed(key, s) && keyed(key, w) {
			return mergeList(key, s, w)
		}
	}
	return cloneValue(strong)
}

func mergeList(key string, strong, weak []any) []any {
	index := make(map[any]int, len(strong))
	for i, entry := range strong {
		index[entry.(map[string]any)[key]] = i
	}
	used := make([]bool, len(strong))
	out := make([]any, 0, len(strong)+len(weak))
	for _, entry := range weak {
		object := entry.(map[string]any)
		if i, ok := index[object[key]]; ok {
			out = append(out, mergeObject(key, strong[i].(map[string]any), object))
			used[i] = true
			continue
		}
		out = append(out, cloneValue(object))
	}
	for i, entry := range strong {
		if !used[i] {
			out = append(out, cloneValue(entry))
		}
	}
	return out
}

func keyed(key string, list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, entry := range list {
		object, ok := entry.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := object[key]; !ok {
			return false
		}
		if !scalarKey(object[key]) {
			return false
		}
	}
	return true
}

func scalarKey(value any) bool {
	switch value.(type) {
	case string, float64, int, int64, bool:
		return true
	default:
		return false
	}
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		if v == nil {
			return []any(nil)
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
