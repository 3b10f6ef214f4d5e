package docstore

import (
	"fmt"
	"strconv"
	"strings"
)

// splitPath turns "a/b/c" into its non-empty segments.
func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// valueAt walks node along segs and returns what it finds, or nil.
func valueAt(node interface{}, segs []string) interface{} {
	for _, seg := range segs {
		switch n := node.(type) {
		case map[string]interface{}:
			node = n[seg]
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil
			}
			node = n[i]
		default:
			return nil
		}
	}
	return node
}

// setAt returns node with the value at segs replaced. A nil value removes
// the entry; inside an array it leaves a null slot so later indices keep
// their position. Missing intermediate objects are created, and scalars in
// the way are overwritten by objects.
func setAt(node interface{}, segs []string, value interface{}) (interface{}, error) {
	if len(segs) == 0 {
		return prune(value), nil
	}

	head, rest := segs[0], segs[1:]

	if arr, ok := node.([]interface{}); ok {
		i, err := strconv.Atoi(head)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid array index %q", head)
		}
		switch {
		case i < len(arr):
			child, err := setAt(arr[i], rest, value)
			if err != nil {
				return nil, err
			}
			arr[i] = child
		case i == len(arr):
			child, err := setAt(nil, rest, value)
			if err != nil {
				return nil, err
			}
			if child != nil {
				arr = append(arr, child)
			}
		default:
			return nil, fmt.Errorf("array index %d out of range (len %d)", i, len(arr))
		}
		return prune(arr), nil
	}

	obj, ok := node.(map[string]interface{})
	if !ok {
		obj = make(map[string]interface{})
	}
	child, err := setAt(obj[head], rest, value)
	if err != nil {
		return nil, err
	}
	if child == nil {
		delete(obj, head)
	} else {
		obj[head] = child
	}
	return prune(obj), nil
}

// prune drops empty objects and arrays, which the store never keeps.
// Trailing null slots are trimmed from arrays.
func prune(node interface{}) interface{} {
	switch n := node.(type) {
	case map[string]interface{}:
		for k, v := range n {
			if p := prune(v); p == nil {
				delete(n, k)
			} else {
				n[k] = p
			}
		}
		if len(n) == 0 {
			return nil
		}
	case []interface{}:
		for len(n) > 0 && n[len(n)-1] == nil {
			n = n[:len(n)-1]
		}
		if len(n) == 0 {
			return nil
		}
		return n
	}
	return node
}
