package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/validation"
)

var errValidation = errors.New("validation failed")

// newValidateCmd creates the "validate" subcommand.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		vOpts        validation.Options
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the compiled template",
		Long: `Validate compiles the service and checks the result.

Checks performed:
  - Event configuration: required fields and valid HTTP routes
  - Dependencies: every DependsOn entry names a compiled resource
  - Property schemas of the emitted resource types
  - cfn-lint rules on the template (with --cfn-lint)

Examples:
    wetwire-serverless validate
    wetwire-serverless validate --cfn-lint --format json
    wetwire-serverless validate --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts, outputFormat, vOpts)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&vOpts.CfnLint, "cfn-lint", false, "Also run cfn-lint rules")
	cmd.Flags().BoolVar(&vOpts.Strict, "strict", false, "Warn about properties without a known schema")

	return cmd
}

func runValidate(w io.Writer, opts *globalOptions, format string, vOpts validation.Options) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	_, build, err := compileService(opts)
	if err != nil {
		return err
	}

	result, err := validation.Validate(build, vOpts)
	if err != nil {
		return err
	}
	if err := outputValidateResult(w, *result, format); err != nil {
		return err
	}
	if !result.Success {
		return errValidation
	}
	return nil
}

func outputValidateResult(w io.Writer, result wetwire.ValidateResult, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if result.Success {
		fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}
		return nil
	}

	fmt.Fprintln(w, "Validation FAILED:")
	for _, errMsg := range result.Errors {
		fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
	}
	for _, warnMsg := range result.Warnings {
		fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
	}
	return nil
}
