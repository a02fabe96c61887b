package iam

import (
	"encoding/json"
	"fmt"

	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// MergeRole folds the provider baseline and the per-function contributions
// into the properties of the shared execution role.
//
// The role must carry a trust policy with at least one statement and at least
// one inline policy; both are created by the base template. Existing entries
// come first, then baseline entries, then acc entries.
func MergeRole(props map[string]any, baseline, acc *Accumulator) error {
	if baseline == nil {
		baseline = NewAccumulator()
	}
	if acc == nil {
		acc = NewAccumulator()
	}

	if err := mergeTrust(props, baseline, acc); err != nil {
		return err
	}

	existingArns, err := anyList(props["ManagedPolicyArns"])
	if err != nil {
		return fmt.Errorf("execution role ManagedPolicyArns: %w", err)
	}
	props["ManagedPolicyArns"] = MergeManagedPolicies(existingArns, baseline.ManagedPolicyArns, acc.ManagedPolicyArns)

	return mergeInline(props, baseline, acc)
}

func mergeTrust(props map[string]any, baseline, acc *Accumulator) error {
	doc, ok := props["AssumeRolePolicyDocument"].(map[string]any)
	if !ok {
		return fmt.Errorf("execution role has no AssumeRolePolicyDocument")
	}
	statements, err := anyList(doc["Statement"])
	if err != nil || len(statements) == 0 {
		return fmt.Errorf("execution role trust policy has no statements")
	}
	first, ok := statements[0].(map[string]any)
	if !ok {
		return fmt.Errorf("execution role trust statement is %T, want map", statements[0])
	}

	existing, err := servicePrincipals(first["Principal"])
	if err != nil {
		return err
	}
	first["Principal"] = map[string]any{
		"Service": MergePrincipals(existing, baseline.Principals, acc.Principals),
	}
	return nil
}

func mergeInline(props map[string]any, baseline, acc *Accumulator) error {
	policies, err := anyList(props["Policies"])
	if err != nil || len(policies) == 0 {
		return fmt.Errorf("execution role has no inline policy")
	}
	policy, ok := policies[0].(map[string]any)
	if !ok {
		return fmt.Errorf("execution role inline policy is %T, want map", policies[0])
	}
	doc, ok := policy["PolicyDocument"].(map[string]any)
	if !ok {
		return fmt.Errorf("execution role inline policy has no PolicyDocument")
	}

	raw, err := anyList(doc["Statement"])
	if err != nil {
		return fmt.Errorf("execution role inline policy: %w", err)
	}
	existing := make([]intrinsics.PolicyStatement, 0, len(raw))
	for i, item := range raw {
		stmt, err := toStatement(item)
		if err != nil {
			return fmt.Errorf("execution role statement %d: %w", i, err)
		}
		existing = append(existing, stmt)
	}

	all := make([]intrinsics.PolicyStatement, 0, len(existing)+len(baseline.Statements)+len(acc.Statements))
	all = append(all, existing...)
	all = append(all, baseline.Statements...)
	all = append(all, acc.Statements...)

	merged := MergeStatements(all)
	out := make([]any, len(merged))
	for i, stmt := range merged {
		out[i] = stmt
	}
	doc["Statement"] = out
	return nil
}

func servicePrincipals(principal any) ([]any, error) {
	switch p := principal.(type) {
	case nil:
		return nil, nil
	case intrinsics.ServicePrincipal:
		return []any(p), nil
	case map[string]any:
		return anyList(p["Service"])
	}
	return nil, fmt.Errorf("execution role trust principal is %T, want service principal", principal)
}

// anyList accepts a missing value, a list, or a scalar.
func anyList(v any) ([]any, error) {
	if v == nil {
		return []any{}, nil
	}
	if items, ok := asList(v); ok {
		return items, nil
	}
	switch v.(type) {
	case map[string]any:
		return nil, fmt.Errorf("expected list, got object")
	}
	return []any{v}, nil
}

func toStatement(v any) (intrinsics.PolicyStatement, error) {
	switch s := v.(type) {
	case intrinsics.PolicyStatement:
		return s, nil
	case *intrinsics.PolicyStatement:
		return *s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return intrinsics.PolicyStatement{}, err
	}
	var stmt intrinsics.PolicyStatement
	if err := json.Unmarshal(data, &stmt); err != nil {
		return intrinsics.PolicyStatement{}, err
	}
	return stmt, nil
}
