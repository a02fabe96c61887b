// Package wetwire_serverless compiles declarative multi-function service
// definitions into CloudFormation templates.
//
// A service declares functions and the events that trigger them:
//
//	service: orders
//	provider:
//	  name: aws
//	functions:
//	  consumer:
//	    handler: bin/consumer
//	    events:
//	      - activemq:
//	          arn: arn:aws:mq:us-east-1:123456789012:broker:orders:b-1234
//	          queue: orders
//	          basicAuthArn: arn:aws:secretsmanager:us-east-1:123456789012:secret:mq
//
// The wetwire-serverless CLI compiles the definition into a dependency-ordered
// resource graph and writes it as a CloudFormation template.
package wetwire_serverless

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
	Export      *struct {
		Name string `json:"Name" yaml:"Name"`
	} `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// BuildResult is the JSON output from `wetwire-serverless package --json`.
type BuildResult struct {
	Success   bool              `json:"success"`
	Template  Template          `json:"template,omitempty"`
	Resources []string          `json:"resources,omitempty"`
	Paths     map[string]string `json:"paths,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `wetwire-serverless validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// DiffEntry describes one resource that differs between two templates.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource differences by kind of change.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffSummary counts resource differences.
type DiffSummary struct {
	Total    int `json:"total"`
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// IsNoop reports whether the summary contains no changes.
func (s DiffSummary) IsNoop() bool {
	return s.Total == 0
}

// OptimizeSuggestion is one improvement suggested for a compiled resource.
type OptimizeSuggestion struct {
	Resource    string `json:"resource"`
	Rule        string `json:"rule"`
	Category    string `json:"category"` // security, cost, performance, reliability
	Severity    string `json:"severity"` // high, medium, low
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// OptimizeSummary counts suggestions by category.
type OptimizeSummary struct {
	Total       int `json:"total"`
	Security    int `json:"security"`
	Cost        int `json:"cost"`
	Performance int `json:"performance"`
	Reliability int `json:"reliability"`
}

// OptimizeResult is the JSON output from `wetwire-serverless optimize`.
type OptimizeResult struct {
	Success       bool                 `json:"success"`
	Suggestions   []OptimizeSuggestion `json:"suggestions,omitempty"`
	ResourceCount int                  `json:"resource_count"`
	Summary       OptimizeSummary      `json:"summary"`
}
