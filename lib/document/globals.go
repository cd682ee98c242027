package document

import "strings"

// globals is the mutable global object of a document. Intermediate path
// segments are plain map[string]any nodes, so setting "google.maps" makes
// "google" exist as well.
type globals map[string]any

func (g globals) lookup(path string) (any, bool) {
	cur := map[string]any(g)
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// set overwrites non-object intermediates with fresh objects instead of
// failing, so a script can always publish its namespace.
func (g globals) set(path string, value any) {
	cur := map[string]any(g)
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if i == len(parts)-1 {
			cur[part] = value
			return
		}
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
}

func (g globals) delete(path string) {
	cur := map[string]any(g)
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if i == len(parts)-1 {
			delete(cur, part)
			return
		}
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}
