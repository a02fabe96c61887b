// Package selfref locates structural self-references inside nested values.
//
// A self-reference is a position in a nested map/slice structure whose value
// is the same instance as some known target, as opposed to an equal copy.
// Find walks the structure iteratively with an explicit work-list and visits
// every container instance at most once, so it is safe on cyclic input:
//
//	svc := map[string]any{"service": "orders"}
//	svc["custom"] = map[string]any{"self": svc}
//	selfref.Find(svc, svc) // ["custom.self"]
//
// Paths use dot-separated keys and bracket-indexed slots (see Build); Get and
// Set resolve them again, which is how the state boundary cuts and re-splices
// cycles.
package selfref

import (
	"fmt"
	"reflect"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
)

// identity is a stable per-instance key for a reference-typed value.
type identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

type workItem struct {
	value reflect.Value
	path  string
}

// Find returns every path within root whose value is identical to target.
//
// Identity means the same map, slice or pointer instance; scalars compare by
// value. The root itself is never reported. A nil root yields an empty list.
func Find(root, target any) []string {
	paths := []string{}
	if root == nil {
		return paths
	}

	want := reflect.ValueOf(target)
	start := unwrap(reflect.ValueOf(root))

	visited := sets.New[identity]()
	if id, ok := identityOf(start); ok {
		visited.Insert(id)
	}

	queue := []workItem{{value: start, path: ""}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		eachChild(item.value, func(seg Segment, child reflect.Value) {
			path := join(item.path, seg)
			if same(child, want) {
				paths = append(paths, path)
				return
			}
			if !isContainer(child) {
				return
			}
			if id, ok := identityOf(child); ok {
				if visited.Has(id) {
					return
				}
				visited.Insert(id)
			}
			queue = append(queue, workItem{value: child, path: path})
		})
	}

	return paths
}

// Replace substitutes replacement at every path where root references
// target, returning the paths that were rewritten. On failure the paths
// already written are set back to target, so root is left as it was.
func Replace(root, target, replacement any) ([]string, error) {
	paths := Find(root, target)
	for _, path := range paths {
		if _, err := ParsePath(path); err != nil {
			return nil, err
		}
	}
	for i, path := range paths {
		if err := Set(root, path, replacement); err != nil {
			for _, done := range paths[:i] {
				_ = Set(root, done, target)
			}
			return nil, err
		}
	}
	return paths, nil
}

// eachChild calls fn for every own key or index of v in a deterministic order.
func eachChild(v reflect.Value, fn func(Segment, reflect.Value)) {
	v = deref(v)
	switch v.Kind() {
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, key := range keys {
			fn(Key(fmt.Sprint(key.Interface())), unwrap(v.MapIndex(key)))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			fn(Slot(i), unwrap(v.Index(i)))
		}
	case reflect.Struct:
		typ := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !typ.Field(i).IsExported() {
				continue
			}
			fn(Key(typ.Field(i).Name), unwrap(v.Field(i)))
		}
	}
}

// same reports whether v holds the target instance.
func same(v, target reflect.Value) bool {
	if !v.IsValid() || !target.IsValid() {
		return false
	}
	if v.Type() != target.Type() {
		return false
	}
	switch target.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return target.Pointer() != 0 && v.Pointer() == target.Pointer()
	case reflect.Slice:
		return target.Pointer() != 0 && v.Pointer() == target.Pointer() && v.Len() == target.Len()
	}
	if !target.Type().Comparable() || !v.CanInterface() {
		return false
	}
	return v.Interface() == target.Interface()
}

func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Map, reflect.Pointer:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{kind: v.Kind(), ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return identity{}, false
		}
		return identity{kind: v.Kind(), ptr: v.Pointer(), len: v.Len()}, true
	}
	return identity{}, false
}

func isContainer(v reflect.Value) bool {
	switch deref(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = unwrap(v.Elem())
	}
	return v
}
