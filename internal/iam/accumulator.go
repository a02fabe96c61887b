// Package iam merges security declarations contributed by many functions and
// event compilers into the single shared execution role.
package iam

import (
	"reflect"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// Accumulator collects IAM requirements during one compilation pass.
//
// Principals have set semantics and keep insertion order. Managed policies
// and statements are kept as appended; they are deduplicated and merged by
// MergeRole.
type Accumulator struct {
	Principals        []any
	ManagedPolicyArns []any
	Statements        []intrinsics.PolicyStatement

	seen sets.Set[string]
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: sets.New[string]()}
}

// AddPrincipals appends principals not already present.
func (a *Accumulator) AddPrincipals(principals ...any) {
	if a.seen == nil {
		a.seen = sets.New[string]()
		for _, p := range a.Principals {
			a.seen.Insert(canonical(p))
		}
	}
	for _, p := range principals {
		key := canonical(p)
		if a.seen.Has(key) {
			continue
		}
		a.seen.Insert(key)
		a.Principals = append(a.Principals, p)
	}
}

// AddManagedPolicies appends managed policy ARNs.
func (a *Accumulator) AddManagedPolicies(arns ...any) {
	a.ManagedPolicyArns = append(a.ManagedPolicyArns, arns...)
}

// AddStatements appends inline policy statements.
func (a *Accumulator) AddStatements(statements ...intrinsics.PolicyStatement) {
	a.Statements = append(a.Statements, statements...)
}

// HasStatement reports whether a deep-equal statement was already added.
func (a *Accumulator) HasStatement(stmt intrinsics.PolicyStatement) bool {
	for _, s := range a.Statements {
		if reflect.DeepEqual(s, stmt) {
			return true
		}
	}
	return false
}

// Append folds other into a, preserving other's order after a's.
func (a *Accumulator) Append(other *Accumulator) {
	if other == nil {
		return
	}
	a.AddPrincipals(other.Principals...)
	a.AddManagedPolicies(other.ManagedPolicyArns...)
	a.AddStatements(other.Statements...)
}

// IsEmpty reports whether nothing has been accumulated.
func (a *Accumulator) IsEmpty() bool {
	return len(a.Principals) == 0 && len(a.ManagedPolicyArns) == 0 && len(a.Statements) == 0
}
