// Package service loads serverless.yml service definitions.
//
// Function and event declaration order is preserved because compilation is
// order-sensitive. Events decode into a closed set of typed variants.
package service

import (
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// Default stage and region when neither flags nor provider settings name one.
const (
	DefaultStage  = "dev"
	DefaultRegion = "us-east-1"
)

// Definition is a fully resolved service definition.
type Definition struct {
	Service          string
	FrameworkVersion string
	Provider         Provider
	// Functions in declaration order.
	Functions []*Function
	Custom    map[string]any

	// Raw is the resolved document as generic maps and lists. A "${self:}"
	// value resolves to Raw itself, so Raw may contain cycles.
	Raw map[string]any
}

// Provider holds the shared provider settings.
type Provider struct {
	Name        string         `yaml:"name"`
	Runtime     string         `yaml:"runtime"`
	Stage       string         `yaml:"stage"`
	Region      string         `yaml:"region"`
	MemorySize  int            `yaml:"memorySize"`
	Timeout     int            `yaml:"timeout"`
	Environment map[string]any `yaml:"environment"`
	IAM         struct {
		Role IAM `yaml:"role"`
	} `yaml:"iam"`
}

// IAM carries security declarations contributed to the shared execution role.
type IAM struct {
	Principals      []any                        `yaml:"principals"`
	ManagedPolicies []any                        `yaml:"managedPolicies"`
	Statements      []intrinsics.PolicyStatement `yaml:"statements"`
}

// Function is one declared function.
type Function struct {
	// Name is the key under which the function is declared.
	Name        string         `yaml:"-"`
	Handler     string         `yaml:"handler"`
	Description string         `yaml:"description"`
	Runtime     string         `yaml:"runtime"`
	MemorySize  int            `yaml:"memorySize"`
	Timeout     int            `yaml:"timeout"`
	Environment map[string]any `yaml:"environment"`
	Events      Events         `yaml:"events"`
	IAM         *IAM           `yaml:"iam"`
}

// Function returns the function declared under name.
func (d *Definition) Function(name string) (*Function, bool) {
	for _, fn := range d.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// StackName returns the CloudFormation stack name, "<service>-<stage>".
func (d *Definition) StackName() string {
	return d.Service + "-" + d.Provider.Stage
}

// ExecutionRoleName returns the role name, "<service>-<stage>-<region>-lambdaRole".
func (d *Definition) ExecutionRoleName() string {
	return d.Service + "-" + d.Provider.Stage + "-" + d.Provider.Region + "-lambdaRole"
}

// FunctionName returns the deployed Lambda function name, "<service>-<stage>-<fn>".
func (d *Definition) FunctionName(fn *Function) string {
	return d.StackName() + "-" + fn.Name
}

// RuntimeOf returns fn's runtime, falling back to the provider runtime.
func (d *Definition) RuntimeOf(fn *Function) string {
	if fn.Runtime != "" {
		return fn.Runtime
	}
	return d.Provider.Runtime
}

// MemorySizeOf returns fn's memory size, falling back to the provider then 1024.
func (d *Definition) MemorySizeOf(fn *Function) int {
	switch {
	case fn.MemorySize > 0:
		return fn.MemorySize
	case d.Provider.MemorySize > 0:
		return d.Provider.MemorySize
	}
	return 1024
}

// TimeoutOf returns fn's timeout in seconds, falling back to the provider then 6.
func (d *Definition) TimeoutOf(fn *Function) int {
	switch {
	case fn.Timeout > 0:
		return fn.Timeout
	case d.Provider.Timeout > 0:
		return d.Provider.Timeout
	}
	return 6
}
