package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/internal/state"
	"github.com/lex00/wetwire-serverless-go/internal/template"
)

// errConfig is returned after configuration errors have been printed.
var errConfig = errors.New("service definition has configuration errors")

// compileService loads the service definition named by opts and compiles it.
func compileService(opts *globalOptions) (*service.Definition, *template.Build, error) {
	def, err := service.Load(opts.config, service.Options{Stage: opts.stage, Region: opts.region})
	if err != nil {
		return nil, nil, err
	}

	build, err := template.NewBuilder(def).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("compiling %s: %w", def.Service, err)
	}
	slog.Debug("compiled service", "service", def.Service, "resources", len(build.Template.Resources), "errors", len(build.Errors))
	return def, build, nil
}

// stateDir returns the .serverless directory next to the service definition.
func stateDir(opts *globalOptions) string {
	return state.Path(filepath.Dir(opts.config))
}

func newPackageCmd(opts *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		packageDir string
	)

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Compile the service and write its state",
		Long: `Package compiles the service definition and writes the result to the
.serverless directory next to it:

    serverless-state.json                       service, template and path map
    cloudformation-template-update-stack.json   template only

Examples:
    wetwire-serverless package
    wetwire-serverless package --stage prod --region eu-west-1
    wetwire-serverless package --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := packageDir
			if dir == "" {
				dir = stateDir(opts)
			}
			return runPackage(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, dir, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the build result as JSON")
	cmd.Flags().StringVarP(&packageDir, "package", "p", "", "Output directory (default: .serverless next to the config)")

	return cmd
}

func runPackage(stdout, stderr io.Writer, opts *globalOptions, dir string, jsonOutput bool) error {
	def, build, err := compileService(opts)
	if err != nil {
		return err
	}

	result := wetwire.BuildResult{
		Success:   len(build.Errors) == 0,
		Resources: build.Order,
		Paths:     build.Paths,
	}
	for _, e := range build.Errors {
		result.Errors = append(result.Errors, e.Error())
	}

	if result.Success {
		result.Template = *build.Template
		if err := state.Save(dir, state.New(def, build)); err != nil {
			return err
		}
	}

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	} else if result.Success {
		fmt.Fprintf(stdout, "Packaged %s (%s): %d resources written to %s\n",
			def.Service, def.Provider.Stage, len(build.Order), dir)
	} else {
		printErrors(stderr, result.Errors)
	}

	if !result.Success {
		return errConfig
	}
	return nil
}

func printErrors(w io.Writer, errs []string) {
	for _, e := range errs {
		fmt.Fprintln(w, e)
	}
}
