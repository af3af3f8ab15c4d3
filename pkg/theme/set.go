package theme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Set returns a copy of t with the field addressed by a dotted path replaced
// by value. Path segments are JSON field names; list elements are addressed
// by position, e.g. "powerline.0.bg". An empty path replaces the whole
// theme. The result is validated and t is never modified.
func (t Theme) Set(path string, value any) (Theme, error) {
	var root any
	if path == "" {
		root = value
	} else {
		data, err := json.Marshal(t)
		if err != nil {
			return t, err
		}
		if err := json.Unmarshal(data, &root); err != nil {
			return t, err
		}
		root, err = thSetPath(root, strings.Split(path, "."), value)
		if err != nil {
			return t, fmt.Errorf("theme: set %q: %w", path, err)
		}
	}

	data, err := json.Marshal(root)
	if err != nil {
		return t, fmt.Errorf("theme: encode value: %w", err)
	}
	var out Theme
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return t, fmt.Errorf("theme: set %q: %w", path, err)
	}
	if out.Name == "" {
		out.Name = t.Name
	}
	if err := out.Validate(); err != nil {
		return t, fmt.Errorf("theme: set %q: %w", path, err)
	}
	return out, nil
}

func thSetPath(node any, keys []string, value any) (any, error) {
	if len(keys) == 0 {
		return value, nil
	}
	key := keys[0]

	switch n := node.(type) {
	case map[string]any:
		child, ok := n[key]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		v, err := thSetPath(child, keys[1:], value)
		if err != nil {
			return nil, err
		}
		n[key] = v
		return n, nil

	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("list index %q is not a number", key)
		}
		if idx == len(n) && len(keys) == 1 {
			return append(n, value), nil
		}
		if idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("list index %d out of range [0, %d)", idx, len(n))
		}
		v, err := thSetPath(n[idx], keys[1:], value)
		if err != nil {
			return nil, err
		}
		n[idx] = v
		return n, nil

	default:
		return nil, fmt.Errorf("cannot descend into %q", key)
	}
}
