package selfref

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrRootPath is returned when Set is asked to replace the root itself.
var ErrRootPath = errors.New("selfref: empty path addresses the root")

// Get returns the value stored at path within root.
func Get(root any, path string) (any, bool) {
	if path == "" {
		return root, root != nil
	}
	segments, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	v := unwrap(reflect.ValueOf(root))
	for _, seg := range segments {
		next, ok := child(v, seg)
		if !ok {
			return nil, false
		}
		v = next
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

// Set stores value at path within root. Every container on the path must
// already exist; only the final key or slot is written.
func Set(root any, path string, value any) error {
	segments, err := ParsePath(path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return ErrRootPath
	}

	parent := unwrap(reflect.ValueOf(root))
	for _, seg := range segments[:len(segments)-1] {
		next, ok := child(parent, seg)
		if !ok {
			return fmt.Errorf("selfref: path %q does not exist", path)
		}
		parent = next
	}

	last := segments[len(segments)-1]
	container := deref(parent)
	switch container.Kind() {
	case reflect.Map:
		if last.Index != -1 {
			return fmt.Errorf("selfref: path %q indexes a map", path)
		}
		key, err := mapKey(container, last.Name)
		if err != nil {
			return fmt.Errorf("selfref: path %q: %w", path, err)
		}
		elem, err := assignable(container.Type().Elem(), value)
		if err != nil {
			return fmt.Errorf("selfref: path %q: %w", path, err)
		}
		container.SetMapIndex(key, elem)
		return nil
	case reflect.Slice, reflect.Array:
		if last.Index == -1 || last.Index >= container.Len() {
			return fmt.Errorf("selfref: path %q is out of range", path)
		}
		slot := container.Index(last.Index)
		if !slot.CanSet() {
			return fmt.Errorf("selfref: path %q is not settable", path)
		}
		elem, err := assignable(slot.Type(), value)
		if err != nil {
			return fmt.Errorf("selfref: path %q: %w", path, err)
		}
		slot.Set(elem)
		return nil
	case reflect.Struct:
		field := container.FieldByName(last.Name)
		if last.Index != -1 || !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("selfref: path %q is not settable", path)
		}
		elem, err := assignable(field.Type(), value)
		if err != nil {
			return fmt.Errorf("selfref: path %q: %w", path, err)
		}
		field.Set(elem)
		return nil
	}
	return fmt.Errorf("selfref: path %q: parent is not a container", path)
}

func child(v reflect.Value, seg Segment) (reflect.Value, bool) {
	v = deref(v)
	switch v.Kind() {
	case reflect.Map:
		if seg.Index != -1 {
			return reflect.Value{}, false
		}
		key, err := mapKey(v, seg.Name)
		if err != nil {
			return reflect.Value{}, false
		}
		out := v.MapIndex(key)
		if !out.IsValid() {
			return reflect.Value{}, false
		}
		return unwrap(out), true
	case reflect.Slice, reflect.Array:
		if seg.Index == -1 || seg.Index >= v.Len() {
			return reflect.Value{}, false
		}
		return unwrap(v.Index(seg.Index)), true
	case reflect.Struct:
		if seg.Index != -1 {
			return reflect.Value{}, false
		}
		field, ok := v.Type().FieldByName(seg.Name)
		if !ok || !field.IsExported() {
			return reflect.Value{}, false
		}
		return unwrap(v.FieldByName(seg.Name)), true
	}
	return reflect.Value{}, false
}

func mapKey(m reflect.Value, name string) (reflect.Value, error) {
	keyType := m.Type().Key()
	if keyType.Kind() != reflect.String && keyType.Kind() != reflect.Interface {
		return reflect.Value{}, fmt.Errorf("unsupported map key type %s", keyType)
	}
	return reflect.ValueOf(name).Convert(keyType), nil
}

func assignable(typ reflect.Type, value any) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(typ), nil
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(typ) {
		return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", v.Type(), typ)
	}
	return v, nil
}
