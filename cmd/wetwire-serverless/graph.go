package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-serverless-go/internal/graph"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph of the compiled resources.

The output can be rendered with Graphviz:
    wetwire-serverless graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    wetwire-serverless graph -f mermaid

Examples:
    wetwire-serverless graph
    wetwire-serverless graph --cluster        # cluster by service
    wetwire-serverless graph -f mermaid       # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.OutOrStdout(), opts, outputFormat, clusterByType)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVar(&clusterByType, "cluster", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(w io.Writer, opts *globalOptions, format string, cluster bool) error {
	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	_, build, err := compileService(opts)
	if err != nil {
		return err
	}

	gen := &graph.Generator{Format: graphFormat, ClusterByType: cluster}
	return gen.Generate(build.Template, w)
}
