// Package differ compares compiled templates.
//
// A fresh compilation of an unchanged service must compare equal to the
// template saved by the previous run; the diff command uses that to detect
// no-op deployments.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-serverless-go"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
	// Outputs lists added, removed or modified output names.
	Outputs []string
}

// IsNoop reports whether the templates are equivalent.
func (r *Result) IsNoop() bool {
	return r.Summary.IsNoop() && len(r.Outputs) == 0
}

// Compare reports how next differs from prev.
func Compare(prev, next *wetwire.Template, opts Options) (*Result, error) {
	if prev == nil || next == nil {
		return nil, fmt.Errorf("compare: nil template")
	}
	result := &Result{}

	for name, def := range next.Resources {
		if _, exists := prev.Resources[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{Resource: name, Type: def.Type})
		}
	}

	for name, old := range prev.Resources {
		def, exists := next.Resources[name]
		if !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{Resource: name, Type: old.Type})
			continue
		}
		if changes := compareResources(old, def, opts); len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
				Resource: name,
				Type:     def.Type,
				Changes:  changes,
			})
		}
	}

	for name, out := range next.Outputs {
		if old, ok := prev.Outputs[name]; !ok || !deepEqual(normalize(old), normalize(out), opts) {
			result.Outputs = append(result.Outputs, name)
		}
	}
	for name := range prev.Outputs {
		if _, ok := next.Outputs[name]; !ok {
			result.Outputs = append(result.Outputs, name)
		}
	}
	sort.Strings(result.Outputs)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = wetwire.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a template from a JSON or YAML file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var template wetwire.Template
	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &template, nil
}

func compareResources(def1, def2 wetwire.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	a, b := append([]string(nil), def1.DependsOn...), append([]string(nil), def2.DependsOn...)
	sort.Strings(a)
	sort.Strings(b)
	if !reflect.DeepEqual(a, b) && (len(a) > 0 || len(b) > 0) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareProperties reports changed leaves, descending into nested maps.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, path+" added")
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(normalize(val1), normalize(val2), opts) {
			changes = append(changes, path+" modified")
		}
	}

	for key := range props1 {
		if _, exists := props2[key]; !exists {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			changes = append(changes, path+" removed")
		}
	}

	sort.Strings(changes)
	return changes
}

func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = sortSlices(a)
		b = sortSlices(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalize converts typed values such as intrinsics into their JSON form
// so built and loaded templates compare alike.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// sortSlices orders every slice in v by the JSON encoding of its elements.
func sortSlices(v any) any {
	switch val := v.(type) {
	case []any:
		type keyed struct {
			key   string
			value any
		}
		elems := make([]keyed, len(val))
		for i, elem := range val {
			sorted := sortSlices(elem)
			elems[i] = keyed{key: encoded(sorted), value: sorted}
		}
		sort.SliceStable(elems, func(i, j int) bool { return elems[i].key < elems[j].key })

		result := make([]any, len(elems))
		for i, e := range elems {
			result[i] = e.value
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, elem := range val {
			result[k] = sortSlices(elem)
		}
		return result
	default:
		return v
	}
}

func encoded(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func sortEntries(entries []wetwire.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
