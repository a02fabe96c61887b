// Command wetwire-serverless compiles serverless.yml service definitions into
// CloudFormation templates.
//
// Usage:
//
//	wetwire-serverless package             Compile and write .serverless state
//	wetwire-serverless print               Show the resolved service definition
//	wetwire-serverless validate            Check the compiled template
//	wetwire-serverless graph               Render resource dependencies
//	wetwire-serverless diff                Compare against the last package
//	wetwire-serverless watch               Re-package on change
//	wetwire-serverless version             Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-serverless-go/internal/logger"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	config  string
	stage   string
	region  string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "wetwire-serverless",
		Short: "Compile serverless service definitions into CloudFormation",
		Long: `wetwire-serverless compiles a serverless.yml service definition into a
CloudFormation template.

Declare functions and the events that trigger them:

    functions:
      consumer:
        handler: bin/consumer
        events:
          - activemq:
              arn: arn:aws:mq:us-east-1:123456789012:broker:orders:b-1234
              queue: orders
              basicAuthArn: arn:aws:secretsmanager:us-east-1:123456789012:secret:mq

Then compile it:

    wetwire-serverless package --stage prod`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init()
			if opts.verbose {
				logger.SetVerbose(os.Stderr)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.config, "config", "c", "serverless.yml", "Path to the service definition")
	flags.StringVarP(&opts.stage, "stage", "s", "", "Stage (default: provider.stage or dev)")
	flags.StringVarP(&opts.region, "region", "r", "", "Region (default: provider.region or us-east-1)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newPackageCmd(opts),
		newPrintCmd(opts),
		newValidateCmd(opts),
		newGraphCmd(opts),
		newOptimizeCmd(opts),
		newDiffCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-serverless %s\n", getVersion())
		},
	}
}
