package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-serverless-go/internal/selfref"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/internal/template"
)

func newPrintCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		showTemplate bool
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the resolved service definition",
		Long: `Print shows the service definition after variable resolution. References
to the whole document print as ${self:}.

With --template the compiled CloudFormation template is printed instead.

Examples:
    wetwire-serverless print
    wetwire-serverless print --format json
    wetwire-serverless print --template --stage prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, outputFormat, showTemplate)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "yaml", "Output format: yaml or json")
	cmd.Flags().BoolVarP(&showTemplate, "template", "t", false, "Print the compiled template")

	return cmd
}

func runPrint(stdout, stderr io.Writer, opts *globalOptions, format string, showTemplate bool) error {
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	var data []byte
	if showTemplate {
		_, build, err := compileService(opts)
		if err != nil {
			return err
		}
		if len(build.Errors) > 0 {
			for _, e := range build.Errors {
				fmt.Fprintln(stderr, e.Error())
			}
			return errConfig
		}
		if format == "json" {
			data, err = template.ToJSON(build.Template)
		} else {
			data, err = template.ToYAML(build.Template)
		}
		if err != nil {
			return err
		}
	} else {
		def, err := service.Load(opts.config, service.Options{Stage: opts.stage, Region: opts.region})
		if err != nil {
			return err
		}
		if data, err = encodeDocument(def.Raw, format); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(stdout, string(data))
	return err
}

// encodeDocument encodes raw with its self-references cut to the marker,
// restoring them before returning.
func encodeDocument(raw map[string]any, format string) ([]byte, error) {
	cut, err := selfref.Replace(raw, raw, service.SelfMarker)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, path := range cut {
			_ = selfref.Set(raw, path, raw)
		}
	}()

	if format == "json" {
		return json.MarshalIndent(raw, "", "  ")
	}
	return yaml.Marshal(raw)
}
