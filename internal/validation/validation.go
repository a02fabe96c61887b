// Package validation checks compiled templates.
//
// Validate runs, in order:
//   - structural checks on the build: configuration errors, dangling
//     DependsOn entries, and mappings that do not depend on the role
//   - property schema checks for the emitted resource types
//   - cfn-lint-go on the serialized template, when requested
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/compile"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/schema"
	"github.com/lex00/wetwire-serverless-go/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Options configures Validate.
type Options struct {
	// CfnLint also runs cfn-lint-go over the template.
	CfnLint bool
	// Strict warns about properties the schema does not know.
	Strict bool
}

// Validate checks a build and reports the result in CLI form. Lint
// warnings never fail validation.
func Validate(build *template.Build, opts Options) (*wetwire.ValidateResult, error) {
	result := &wetwire.ValidateResult{Resources: len(build.Template.Resources)}

	for _, e := range build.Errors {
		result.Errors = append(result.Errors, e.Error())
	}
	result.Errors = append(result.Errors, CheckStructure(build.Template)...)

	schemaResult := schema.ValidateTemplate(build.Template, schema.Options{Strict: opts.Strict})
	for _, e := range schemaResult.Errors {
		result.Errors = append(result.Errors, e.String())
	}
	for _, w := range schemaResult.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	if opts.CfnLint {
		lintResult, err := LintTemplate(build.Template)
		if err != nil {
			return nil, err
		}
		result.Errors = append(result.Errors, lintResult.Errors...)
		result.Warnings = append(result.Warnings, lintResult.Warnings...)
		result.Warnings = append(result.Warnings, lintResult.Informational...)
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// CheckStructure reports DependsOn entries that name missing resources and
// event source mappings that do not depend on the execution role.
func CheckStructure(t *wetwire.Template) []string {
	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		res := t.Resources[name]
		for _, dep := range res.DependsOn {
			if _, ok := t.Resources[dep]; !ok {
				problems = append(problems, fmt.Sprintf("%s: DependsOn names missing resource %s", name, dep))
			}
		}
		if res.Type == compile.EventSourceMappingType && !contains(res.DependsOn, naming.RoleLogicalID) {
			problems = append(problems, fmt.Sprintf("%s: event source mapping does not depend on %s", name, naming.RoleLogicalID))
		}
	}
	return problems
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LintTemplate writes t to a temporary file and runs cfn-lint-go on it.
func LintTemplate(t *wetwire.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	dir, err := os.MkdirTemp("", "wetwire-serverless-lint")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	result.Passed = len(result.Errors) == 0
	return result, nil
}

func formatMatch(match lint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}

	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}
