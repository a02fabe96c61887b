package iam

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

type statementGroup struct {
	statement   intrinsics.PolicyStatement
	resources   []any
	hasResource bool
}

// MergeStatements groups statements by Effect plus Action (or NotAction) and
// concatenates the Resource entries of each group in encounter order.
// Repeated resources are kept.
//
// A statement carrying a Condition only joins a group with an identical
// Condition, so the key is Effect, Action and Condition rather than Effect
// and Action alone. Statements without a Condition group as before.
//
// Action lists are compared without regard to order; the first statement of a
// group supplies the emitted Action. A group whose concatenated Resource list
// has exactly one entry emits it as a scalar. Statements with neither Action
// nor NotAction form their own group.
func MergeStatements(statements []intrinsics.PolicyStatement) []intrinsics.PolicyStatement {
	groups := make(map[string]*statementGroup)
	var order []string

	for i, stmt := range statements {
		key, ok := groupKey(stmt)
		if !ok {
			key = fmt.Sprintf("\x00ungrouped\x00%d", i)
		}

		g, exists := groups[key]
		if !exists {
			g = &statementGroup{statement: stmt, resources: []any{}}
			groups[key] = g
			order = append(order, key)
		}
		if stmt.Resource != nil {
			g.hasResource = true
			g.resources = append(g.resources, flatten(stmt.Resource)...)
		}
	}

	merged := make([]intrinsics.PolicyStatement, 0, len(order))
	for _, key := range order {
		g := groups[key]
		stmt := g.statement
		switch {
		case !g.hasResource:
			stmt.Resource = nil
		case len(g.resources) == 1:
			stmt.Resource = g.resources[0]
		default:
			stmt.Resource = g.resources
		}
		merged = append(merged, stmt)
	}
	return merged
}

// MergePrincipals unions principal lists in order, dropping duplicates.
func MergePrincipals(lists ...[]any) []any {
	seen := sets.New[string]()
	out := []any{}
	for _, list := range lists {
		for _, p := range list {
			key := canonical(p)
			if seen.Has(key) {
				continue
			}
			seen.Insert(key)
			out = append(out, p)
		}
	}
	return out
}

// MergeManagedPolicies concatenates ARN lists, dropping deep-equal repeats
// while keeping first-seen order.
func MergeManagedPolicies(lists ...[]any) []any {
	out := []any{}
	for _, list := range lists {
		for _, arn := range list {
			if containsDeepEqual(out, arn) {
				continue
			}
			out = append(out, arn)
		}
	}
	return out
}

func containsDeepEqual(list []any, v any) bool {
	for _, existing := range list {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

func groupKey(stmt intrinsics.PolicyStatement) (string, bool) {
	field, value := "Action", stmt.Action
	if value == nil {
		field, value = "NotAction", stmt.NotAction
	}
	if value == nil {
		return "", false
	}

	parts := []string{stmt.Effect, field, actionKey(value)}
	if len(stmt.Condition) > 0 {
		parts = append(parts, canonical(stmt.Condition))
	}
	return strings.Join(parts, "\x00"), true
}

// actionKey renders an Action value so that lists with the same elements in
// any order produce the same key. A scalar and a one-element list differ.
func actionKey(value any) string {
	items, isList := asList(value)
	if !isList {
		return canonical(value)
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = canonical(item)
	}
	sort.Strings(keys)
	return "[" + strings.Join(keys, ",") + "]"
}

// flatten turns a Resource value into its element sequence.
func flatten(value any) []any {
	if items, ok := asList(value); ok {
		return items
	}
	return []any{value}
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case intrinsics.ServicePrincipal:
		return []any(v), true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// canonical renders v as a stable comparison key.
func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
