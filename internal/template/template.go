// Package template builds CloudFormation templates from service definitions.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/compile"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// Builder compiles a service definition into a template.
type Builder struct {
	def    *service.Definition
	engine *compile.Engine
}

// NewBuilder creates a builder. With no compilers the default set is used.
func NewBuilder(def *service.Definition, compilers ...compile.Compiler) *Builder {
	return &Builder{def: def, engine: compile.NewEngine(compilers...)}
}

// Build is the output of Builder.Build.
type Build struct {
	Template *wetwire.Template
	// Order lists logical IDs so that every resource follows its dependencies.
	Order  []string
	Paths  map[string]string
	Errors []*compile.ConfigError
}

// Build runs the base template generator and the compilation engine, then
// normalizes the result and checks its dependency order.
func (b *Builder) Build() (*Build, error) {
	base, err := Core(b.def)
	if err != nil {
		return nil, fmt.Errorf("building base template: %w", err)
	}

	res, err := b.engine.Compile(b.def, base)
	if err != nil {
		return nil, err
	}

	outputs := make(map[string]wetwire.Output, len(res.Template.Outputs)+1)
	for k, v := range res.Template.Outputs {
		outputs[k] = v
	}
	res.Template.Outputs = outputs
	if _, ok := res.Template.Resources[naming.RestApiLogicalID]; ok {
		outputs["ServiceEndpoint"] = wetwire.Output{
			Description: "URL of the service endpoint",
			Value: intrinsics.Join{Delimiter: "", Values: []any{
				"https://", intrinsics.RefTo(naming.RestApiLogicalID),
				".execute-api.", intrinsics.AWS_REGION,
				".", intrinsics.AWS_URL_SUFFIX,
				"/" + b.def.Provider.Stage,
			}},
		}
	}

	t, err := Normalize(res.Template)
	if err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}

	order, err := Order(t)
	if err != nil {
		return nil, err
	}

	return &Build{Template: t, Order: order, Paths: res.Paths, Errors: res.Errors}, nil
}

// Normalize converts every typed value in t into plain JSON maps, slices
// and scalars, so that a built template and one read back from disk
// compare equal.
func Normalize(t *wetwire.Template) (*wetwire.Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out wetwire.Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dependencies returns the logical IDs res depends on: its DependsOn list
// plus every Ref, Fn::GetAtt and Fn::Sub target in its properties. Pseudo
// parameters are excluded.
func Dependencies(res wetwire.ResourceDef) []string {
	seen := make(map[string]bool)
	var deps []string
	add := func(id string) {
		if id == "" || strings.HasPrefix(id, "AWS::") || seen[id] {
			return
		}
		seen[id] = true
		deps = append(deps, id)
	}
	for _, d := range res.DependsOn {
		add(d)
	}
	for _, ref := range References(res.Properties) {
		add(ref)
	}
	sort.Strings(deps)
	return deps
}

// References returns the logical IDs referenced by intrinsic functions in v.
func References(v any) []string {
	var refs []string
	walkReferences(v, func(id string, _ bool) { refs = append(refs, id) })
	return refs
}

// AttributeReferences returns the logical IDs referenced through Fn::GetAtt in v.
func AttributeReferences(v any) []string {
	var refs []string
	walkReferences(v, func(id string, getAtt bool) {
		if getAtt {
			refs = append(refs, id)
		}
	})
	return refs
}

func walkReferences(v any, fn func(id string, getAtt bool)) {
	stack := []any{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := cur.(type) {
		case intrinsics.Ref:
			fn(t.LogicalName, false)
		case intrinsics.GetAtt:
			fn(t.LogicalName, true)
		case intrinsics.Sub:
			for _, ref := range subReferences(t.String) {
				fn(ref, false)
			}
		case intrinsics.Join:
			stack = append(stack, t.Values)
		case map[string]any:
			if ref, ok := t["Ref"].(string); ok && len(t) == 1 {
				fn(ref, false)
				continue
			}
			if att, ok := t["Fn::GetAtt"]; ok && len(t) == 1 {
				fn(getAttTarget(att), true)
				continue
			}
			if sub, ok := t["Fn::Sub"].(string); ok && len(t) == 1 {
				for _, ref := range subReferences(sub) {
					fn(ref, false)
				}
				continue
			}
			for _, child := range t {
				stack = append(stack, child)
			}
		case []any:
			stack = append(stack, t...)
		}
	}
}

func getAttTarget(att any) string {
	switch a := att.(type) {
	case []any:
		if len(a) > 0 {
			s, _ := a[0].(string)
			return s
		}
	case []string:
		if len(a) > 0 {
			return a[0]
		}
	case string:
		name, _, _ := strings.Cut(a, ".")
		return name
	}
	return ""
}

// subReferences extracts ${Name} and ${Name.Attr} targets; ${!Literal} is
// an escape and is skipped.
func subReferences(s string) []string {
	var refs []string
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return refs
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			return refs
		}
		name := s[start+2 : start+end]
		if !strings.HasPrefix(name, "!") {
			name, _, _ = strings.Cut(name, ".")
			refs = append(refs, name)
		}
		s = s[start+end+1:]
	}
}

// Order returns logical IDs in dependency order, breaking ties
// alphabetically. A DependsOn entry naming a missing resource or a
// dependency cycle is an error.
func Order(t *wetwire.Template) ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)
	deps := make(map[string][]string)

	for name := range t.Resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, res := range t.Resources {
		for _, dep := range res.DependsOn {
			if _, ok := t.Resources[dep]; !ok {
				return nil, fmt.Errorf("%s depends on missing resource %s", name, dep)
			}
		}
		for _, dep := range Dependencies(res) {
			if _, exists := t.Resources[dep]; exists && dep != name {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
				deps[name] = append(deps[name], dep)
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(t.Resources) {
		return nil, detectCycle(deps)
	}
	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " → "))
	}
	return errors.New("circular dependency detected")
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
