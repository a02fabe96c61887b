package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/differ"
	"github.com/lex00/wetwire-serverless-go/internal/state"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		exitCode     bool
	)

	cmd := &cobra.Command{
		Use:   "diff [<template1> <template2>]",
		Short: "Compare templates",
		Long: `Diff compares two templates. Without arguments it compiles the service and
compares the result with the template saved by the last package; no changes
means the deployment would be a no-op.

Examples:
    wetwire-serverless diff
    wetwire-serverless diff --exit-code
    wetwire-serverless diff old.json new.yaml --format json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dOpts := differ.Options{IgnoreOrder: ignoreOrder}

			var (
				result *differ.Result
				err    error
			)
			if len(args) == 2 {
				result, err = differ.CompareFiles(args[0], args[1], dOpts)
			} else {
				result, err = diffAgainstState(opts, stateDir(opts), dOpts)
			}
			if err != nil {
				return err
			}

			if err := outputDiff(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if exitCode && !result.IsNoop() {
				return errors.New("templates differ")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Fail when the templates differ")

	return cmd
}

// diffAgainstState compares a fresh compilation with the state saved in dir.
func diffAgainstState(opts *globalOptions, dir string, dOpts differ.Options) (*differ.Result, error) {
	saved, err := state.Load(dir)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("no saved state in %s; run package first", filepath.Clean(dir))
	}
	if err != nil {
		return nil, err
	}

	_, build, err := compileService(opts)
	if err != nil {
		return nil, err
	}
	if len(build.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", errConfig, build.Errors[0].Error())
	}

	return differ.Compare(saved.Template, build.Template, dOpts)
}

func outputDiff(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Diff    wetwire.TemplateDiff `json:"diff"`
			Summary wetwire.DiffSummary  `json:"summary"`
			Outputs []string             `json:"outputs,omitempty"`
			Noop    bool                 `json:"noop"`
		}{result.Diff, result.Summary, result.Outputs, result.IsNoop()}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.IsNoop() {
			fmt.Fprintln(w, "No changes")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		for _, name := range result.Outputs {
			fmt.Fprintf(w, "~ output %s\n", name)
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
