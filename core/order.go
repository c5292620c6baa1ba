package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Value classes in ascending orderBy order: missing/null, false, true,
// numbers, strings, objects.
const (
	classNull = iota
	classFalse
	classTrue
	classNumber
	classString
	classObject
)

// SortChildren orders children ascending by the value of orderKey, breaking
// ties by key. This mirrors the remote database's orderBy for stores that
// have no native ordering. An empty orderKey orders by key alone.
func SortChildren(children []Child, orderKey string) {
	sort.SliceStable(children, func(i, j int) bool {
		if orderKey != "" {
			vi, _ := children[i].Field(orderKey)
			vj, _ := children[j].Field(orderKey)
			if c := compareValues(vi, vj); c != 0 {
				return c < 0
			}
		}
		return children[i].Key < children[j].Key
	})
}

// ChildrenOf flattens a map-valued node into unsorted children.
func ChildrenOf(node any) []Child {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	out := make([]Child, 0, len(m))
	for k, v := range m {
		out = append(out, Child{Key: k, Value: v})
	}
	return out
}

func compareValues(a, b any) int {
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return ca - cb
	}
	switch ca {
	case classNumber:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	case classString:
		sa, sb := a.(string), b.(string)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
	}
	return 0
}

func classOf(v any) int {
	switch t := v.(type) {
	case nil:
		return classNull
	case bool:
		if t {
			return classTrue
		}
		return classFalse
	case int, int32, int64, float32, float64, json.Number:
		return classNumber
	case string:
		return classString
	}
	return classObject
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	var f float64
	_, _ = fmt.Sscan(fmt.Sprint(v), &f)
	return f
}
