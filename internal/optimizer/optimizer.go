// Package optimizer suggests improvements for compiled templates.
// It inspects resource properties for security, cost, performance, and
// reliability issues.
package optimizer

import (
	"sort"

	wetwire "github.com/lex00/wetwire-serverless-go"
)

// Options configures the optimizer.
type Options struct {
	// Category filters suggestions: "all", "security", "cost", "performance", "reliability"
	Category string
}

// Result contains optimization suggestions.
type Result struct {
	Suggestions []wetwire.OptimizeSuggestion
	Summary     wetwire.OptimizeSummary
}

// Optimize runs every rule against every resource of t. Suggestions are
// ordered by logical ID, then rule ID. t is expected in normalized form,
// the shape produced by a build.
func Optimize(t *wetwire.Template, opts Options) *Result {
	result := &Result{}
	if opts.Category == "" {
		opts.Category = "all"
	}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result.Suggestions = append(result.Suggestions, analyzeResource(name, t.Resources[name], opts.Category)...)
	}

	result.Summary = calculateSummary(result.Suggestions)
	return result
}

func analyzeResource(name string, res wetwire.ResourceDef, category string) []wetwire.OptimizeSuggestion {
	var suggestions []wetwire.OptimizeSuggestion

	for _, rule := range getRulesForType(res.Type) {
		if category != "all" && rule.Category != category {
			continue
		}
		if !rule.Check(res) {
			continue
		}
		suggestions = append(suggestions, wetwire.OptimizeSuggestion{
			Resource:    name,
			Rule:        rule.ID,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Title:       rule.Title,
			Description: rule.Description,
			Suggestion:  rule.Suggestion,
		})
	}

	return suggestions
}

// calculateSummary tallies suggestions by category.
func calculateSummary(suggestions []wetwire.OptimizeSuggestion) wetwire.OptimizeSummary {
	summary := wetwire.OptimizeSummary{}
	for _, s := range suggestions {
		switch s.Category {
		case "security":
			summary.Security++
		case "cost":
			summary.Cost++
		case "performance":
			summary.Performance++
		case "reliability":
			summary.Reliability++
		}
		summary.Total++
	}
	return summary
}

// Rule represents an optimization rule. Check reports whether the rule
// applies to a resource.
type Rule struct {
	ID          string
	Category    string
	Severity    string
	Title       string
	Description string
	Suggestion  string
	Check       func(res wetwire.ResourceDef) bool
}

// getRulesForType returns applicable rules for a resource type.
func getRulesForType(resourceType string) []Rule {
	switch resourceType {
	case "AWS::S3::Bucket":
		return s3BucketRules
	case "AWS::Lambda::Function":
		return lambdaFunctionRules
	case "AWS::Logs::LogGroup":
		return logGroupRules
	case "AWS::IAM::Role":
		return iamRules
	case "AWS::Lambda::EventSourceMapping":
		return eventSourceMappingRules
	}
	return nil
}
