package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/optimizer"
)

// validCategories lists all valid optimization categories.
var validCategories = map[string]bool{
	"all":         true,
	"security":    true,
	"cost":        true,
	"performance": true,
	"reliability": true,
}

// newOptimizeCmd creates the "optimize" subcommand for suggesting improvements.
func newOptimizeCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		category     string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest improvements for the compiled template",
		Long: `Optimize compiles the service and suggests improvements for security,
cost, performance, and reliability.

Categories:
    security     - Encryption, public access, IAM wildcards
    cost         - Log retention, long timeouts
    performance  - Memory sizing, broker batching
    reliability  - Dead letter queues, disabled mappings

Examples:
    wetwire-serverless optimize
    wetwire-serverless optimize --category security
    wetwire-serverless optimize -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd.OutOrStdout(), opts, outputFormat, category)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&category, "category", "all", "Category: all, security, cost, performance, or reliability")

	return cmd
}

func runOptimize(w io.Writer, opts *globalOptions, format, category string) error {
	if !validCategories[category] {
		return fmt.Errorf("invalid category: %s (valid: all, security, cost, performance, reliability)", category)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	_, build, err := compileService(opts)
	if err != nil {
		return err
	}

	optResult := optimizer.Optimize(build.Template, optimizer.Options{Category: category})
	result := wetwire.OptimizeResult{
		Success:       true,
		Suggestions:   optResult.Suggestions,
		ResourceCount: len(build.Template.Resources),
		Summary:       optResult.Summary,
	}
	return outputOptimizeResult(w, result, format)
}

func outputOptimizeResult(w io.Writer, result wetwire.OptimizeResult, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(result.Suggestions) == 0 {
		fmt.Fprintf(w, "Analyzed %d resources. No optimization suggestions.\n", result.ResourceCount)
		return nil
	}

	fmt.Fprintf(w, "Analyzed %d resources. Found %d suggestions:\n\n", result.ResourceCount, result.Summary.Total)

	byCat := map[string][]wetwire.OptimizeSuggestion{}
	for _, s := range result.Suggestions {
		byCat[s.Category] = append(byCat[s.Category], s)
	}

	for _, cat := range []string{"security", "cost", "performance", "reliability"} {
		suggestions := byCat[cat]
		if len(suggestions) == 0 {
			continue
		}

		fmt.Fprintf(w, "=== %s (%d) ===\n", capitalize(cat), len(suggestions))
		for _, s := range suggestions {
			fmt.Fprintf(w, "\n[%s] %s (%s)\n", s.Severity, s.Title, s.Rule)
			fmt.Fprintf(w, "  Resource: %s\n", s.Resource)
			fmt.Fprintf(w, "  %s\n", s.Description)
			fmt.Fprintf(w, "  Suggestion: %s\n", s.Suggestion)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d security, %d cost, %d performance, %d reliability\n",
		result.Summary.Security, result.Summary.Cost,
		result.Summary.Performance, result.Summary.Reliability)
	return nil
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return string(s[0]-32) + s[1:]
}
