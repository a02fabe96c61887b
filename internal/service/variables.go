package service

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-serverless-go/internal/selfref"
)

// SelfMarker is the whole-string variable that resolves to the service
// document itself. It is also the token that replaces self-references in
// persisted state.
const SelfMarker = "${self:}"

// maxPasses bounds nested variable resolution; a chain that still has work
// left after this many passes is treated as circular.
const maxPasses = 16

var variablePattern = regexp.MustCompile(`\$\{(self|opt):([^}]*)\}`)

type resolver struct {
	opts map[string]string
}

// resolve substitutes ${self:<path>} and ${opt:<name>} variables in place.
// A whole-string ${self:} is left for the caller to splice.
func (r *resolver) resolve(doc *yaml.Node) error {
	for pass := 0; pass < maxPasses; pass++ {
		var raw map[string]any
		if err := doc.Decode(&raw); err != nil {
			return err
		}

		changed, pending, err := r.pass(doc, raw)
		if err != nil {
			return err
		}
		if pending == 0 {
			return nil
		}
		if !changed {
			return fmt.Errorf("variables could not be resolved: circular reference")
		}
	}
	return fmt.Errorf("variables could not be resolved after %d passes: circular reference", maxPasses)
}

func (r *resolver) pass(doc *yaml.Node, raw map[string]any) (changed bool, pending int, err error) {
	stack := []*yaml.Node{doc}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Kind {
		case yaml.DocumentNode, yaml.SequenceNode:
			stack = append(stack, n.Content...)
			continue
		case yaml.MappingNode:
			for i := 1; i < len(n.Content); i += 2 {
				stack = append(stack, n.Content[i])
			}
			continue
		case yaml.ScalarNode:
		default:
			continue
		}

		matches := variablePattern.FindAllStringSubmatchIndex(n.Value, -1)
		if len(matches) == 0 || n.Value == SelfMarker {
			continue
		}

		if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(n.Value) {
			source, path := n.Value[matches[0][2]:matches[0][3]], n.Value[matches[0][4]:matches[0][5]]
			v, err := r.lookup(source, path, raw, n.Line)
			if err != nil {
				return false, 0, err
			}
			if hasVariable(v) {
				pending++
				continue
			}
			var repl yaml.Node
			if err := repl.Encode(v); err != nil {
				return false, 0, fmt.Errorf("line %d: %w", n.Line, err)
			}
			repl.Line, repl.Column = n.Line, n.Column
			*n = repl
			changed = true
			continue
		}

		value, deferred, err := r.interpolate(n, matches, raw)
		if err != nil {
			return false, 0, err
		}
		if deferred {
			pending++
			continue
		}
		n.Value, n.Tag, n.Style = value, "!!str", 0
		changed = true
	}
	return changed, pending, nil
}

func (r *resolver) interpolate(n *yaml.Node, matches [][]int, raw map[string]any) (string, bool, error) {
	var b strings.Builder
	last := 0
	for _, m := range matches {
		source, path := n.Value[m[2]:m[3]], n.Value[m[4]:m[5]]
		if source == "self" && path == "" {
			return "", false, fmt.Errorf("line %d: %s cannot be embedded in a string", n.Line, SelfMarker)
		}
		v, err := r.lookup(source, path, raw, n.Line)
		if err != nil {
			return "", false, err
		}
		if hasVariable(v) {
			return "", true, nil
		}
		switch v.(type) {
		case map[string]any, []any:
			return "", false, fmt.Errorf("line %d: variable %s is not a scalar and cannot be embedded", n.Line, n.Value[m[0]:m[1]])
		}
		b.WriteString(n.Value[last:m[0]])
		b.WriteString(fmt.Sprint(v))
		last = m[1]
	}
	b.WriteString(n.Value[last:])
	return b.String(), false, nil
}

func (r *resolver) lookup(source, path string, raw map[string]any, line int) (any, error) {
	switch source {
	case "opt":
		if v, ok := r.opts[path]; ok {
			return v, nil
		}
	case "self":
		if v, ok := selfref.Get(raw, path); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("line %d: variable ${%s:%s} does not resolve", line, source, path)
}

// hasVariable reports whether v still contains unresolved variables other
// than the whole-string self marker.
func hasVariable(v any) bool {
	switch t := v.(type) {
	case string:
		return t != SelfMarker && variablePattern.MatchString(t)
	case map[string]any:
		for _, child := range t {
			if hasVariable(child) {
				return true
			}
		}
	case []any:
		for _, child := range t {
			if hasVariable(child) {
				return true
			}
		}
	}
	return false
}

// setProviderScalar writes provider.<key> = value into the document,
// creating the provider mapping if needed.
func setProviderScalar(doc *yaml.Node, key, value string) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("service definition must be a mapping")
	}
	root := doc.Content[0]

	provider := mappingValue(root, "provider")
	if provider == nil || provider.Kind != yaml.MappingNode {
		if provider == nil {
			provider = &yaml.Node{}
			root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "provider"}, provider)
		}
		*provider = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	if existing := mappingValue(provider, key); existing != nil {
		*existing = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
		return nil
	}
	provider.Content = append(provider.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// scalarValue returns the literal value of provider.<key> when it is a plain
// string without variables.
func scalarValue(doc *yaml.Node, key string) string {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return ""
	}
	provider := mappingValue(doc.Content[0], "provider")
	if provider == nil || provider.Kind != yaml.MappingNode {
		return ""
	}
	v := mappingValue(provider, key)
	if v == nil || v.Kind != yaml.ScalarNode || variablePattern.MatchString(v.Value) {
		return ""
	}
	return v.Value
}
