// Package intrinsics provides CloudFormation intrinsic functions.
// This file contains IAM policy document types and helpers.
package intrinsics

import (
	"encoding/json"
)

// PolicyVersion is the IAM policy language version used by every generated document.
const PolicyVersion = "2012-10-17"

// PolicyDocument represents an IAM policy document.
type PolicyDocument struct {
	Version   string `json:"Version,omitempty" yaml:"Version,omitempty"`
	Statement []any  `json:"Statement" yaml:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version and
// an empty, non-nil statement list.
func NewPolicyDocument() PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: []any{}}
}

// PolicyStatement represents an IAM policy statement.
//
// Action and NotAction are mutually exclusive; Resource may be a scalar,
// an intrinsic function or a list of either.
//
// Example:
//
//	PolicyStatement{
//	    Effect:   "Allow",
//	    Action:   []any{"mq:DescribeBroker"},
//	    Resource: []any{"arn:aws:mq:us-east-1:123456789012:broker:orders:b-1234"},
//	}
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty" yaml:"Sid,omitempty"`
	Effect    string `json:"Effect" yaml:"Effect"`
	Principal any    `json:"Principal,omitempty" yaml:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty" yaml:"Action,omitempty"`
	NotAction any    `json:"NotAction,omitempty" yaml:"NotAction,omitempty"`
	Resource  any    `json:"Resource,omitempty" yaml:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty" yaml:"Condition,omitempty"`
}

// Allow returns an Allow statement granting actions on resources.
func Allow(actions []any, resource any) PolicyStatement {
	return PolicyStatement{Effect: "Allow", Action: actions, Resource: resource}
}

// ServicePrincipal represents a service principal (e.g., lambda.amazonaws.com).
// Serializes to {"Service": ...} format.
//
// Examples:
//
//	ServicePrincipal{"lambda.amazonaws.com"}
//	ServicePrincipal{"edgelambda.amazonaws.com", "lambda.amazonaws.com"}
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}
