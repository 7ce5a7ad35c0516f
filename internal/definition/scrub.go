package definition

import "github.com/0xPuncker/jobspec-watcher/pkg/value"

// Scrub returns a copy of v with every mapping key in keysToRemove removed at
// any depth. Mapping entries whose scrubbed value is null or an empty mapping
// are dropped. Sequences are never dropped, even when empty. Leaves are
// returned unchanged.
func Scrub(v value.Value, keysToRemove ...string) value.Value {
	remove := make(map[string]struct{}, len(keysToRemove))
	for _, k := range keysToRemove {
		remove[k] = struct{}{}
	}
	return scrub(v, remove)
}

func scrub(v value.Value, remove map[string]struct{}) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Null{}
	case value.Sequence:
		out := make(value.Sequence, len(x))
		for i, item := range x {
			out[i] = scrub(item, remove)
		}
		return out
	case *value.Mapping:
		out := value.NewMapping()
		for _, key := range x.Keys() {
			if _, skip := remove[key]; skip {
				continue
			}
			item, _ := x.Get(key)
			cleaned := scrub(item, remove)
			if value.IsNull(cleaned) || value.IsEmptyMapping(cleaned) {
				continue
			}
			out.Set(key, cleaned)
		}
		return out
	default:
		return v
	}
}
