package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-serverless-go/internal/differ"
	"github.com/lex00/wetwire-serverless-go/internal/state"
	"github.com/lex00/wetwire-serverless-go/internal/validation"
)

const ordersService = `service: orders
provider:
  name: aws
  runtime: provided.al2023
custom:
  root: ${self:}
functions:
  consumer:
    handler: bootstrap
    events:
      - activemq:
          arn: brokerArn
          queue: orders
          basicAuthArn: secretArn
      - http: GET orders/{id}
`

func writeService(t *testing.T, dir, content string) *globalOptions {
	t.Helper()
	path := filepath.Join(dir, "serverless.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &globalOptions{config: path}
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"package", "print", "validate", "graph", "optimize", "diff", "watch", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "stage", "region", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing --%s flag", flag)
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "wetwire-serverless "))
}

func TestGetVersion(t *testing.T) {
	v := getVersion()
	assert.NotEmpty(t, v)
	if v != "dev" {
		assert.True(t, strings.HasPrefix(v, "v"), "getVersion() = %q, want 'dev' or 'vX.Y.Z'", v)
	}
}

func TestRunPackage(t *testing.T) {
	dir := t.TempDir()
	opts := writeService(t, dir, ordersService)
	opts.stage = "prod"

	var stdout, stderr bytes.Buffer
	require.NoError(t, runPackage(&stdout, &stderr, opts, stateDir(opts), false))
	assert.Contains(t, stdout.String(), "Packaged orders (prod)")
	assert.Empty(t, stderr.String())

	assert.FileExists(t, filepath.Join(dir, state.Dir, state.StateFile))
	assert.FileExists(t, filepath.Join(dir, state.Dir, state.TemplateFile))

	saved, err := state.Load(stateDir(opts))
	require.NoError(t, err)
	assert.Equal(t, "prod", saved.Stage)
	assert.Contains(t, saved.Template.Resources, "ConsumerActiveMQ1")
	assert.Equal(t, "ApiGatewayResourceOrdersIdVar", saved.Paths["orders/{id}"])
}

func TestRunPackage_JSON(t *testing.T) {
	dir := t.TempDir()
	opts := writeService(t, dir, ordersService)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runPackage(&stdout, &stderr, opts, filepath.Join(dir, "out"), true))
	assert.Contains(t, stdout.String(), `"success": true`)
	assert.Contains(t, stdout.String(), `"ConsumerActiveMQ1"`)
}

func TestRunPackage_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	opts := writeService(t, dir, strings.Replace(ordersService, "          basicAuthArn: secretArn\n", "", 1))

	var stdout, stderr bytes.Buffer
	err := runPackage(&stdout, &stderr, opts, stateDir(opts), false)
	assert.ErrorIs(t, err, errConfig)
	assert.Contains(t, stderr.String(), `functions.consumer.events[0].activemq: missing required field "basicAuthArn"`)
	assert.NoFileExists(t, filepath.Join(dir, state.Dir, state.StateFile))
}

func TestDiffAgainstState(t *testing.T) {
	dir := t.TempDir()
	opts := writeService(t, dir, ordersService)

	_, err := diffAgainstState(opts, stateDir(opts), differ.Options{})
	assert.ErrorContains(t, err, "run package first")

	var stdout, stderr bytes.Buffer
	require.NoError(t, runPackage(&stdout, &stderr, opts, stateDir(opts), false))

	// recompiling unchanged input is a no-op
	result, err := diffAgainstState(opts, stateDir(opts), differ.Options{})
	require.NoError(t, err)
	assert.True(t, result.IsNoop())

	var out bytes.Buffer
	require.NoError(t, outputDiff(&out, result, "text"))
	assert.Equal(t, "No changes\n", out.String())

	writeService(t, dir, ordersService+`  payments:
    handler: bootstrap
    events:
      - rabbitmq:
          arn: brokerArn
          queue: payments
          basicAuthArn: secretArn
`)
	result, err = diffAgainstState(opts, stateDir(opts), differ.Options{})
	require.NoError(t, err)
	assert.False(t, result.IsNoop())

	var added []string
	for _, e := range result.Diff.Added {
		added = append(added, e.Resource)
	}
	assert.Contains(t, added, "PaymentsRabbitMQ1")
	assert.Contains(t, added, "PaymentsLambdaFunction")
}

func TestRunPrint(t *testing.T) {
	opts := writeService(t, t.TempDir(), ordersService)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runPrint(&stdout, &stderr, opts, "json", false))
	assert.Contains(t, stdout.String(), `"root": "${self:}"`)
	assert.Contains(t, stdout.String(), `"stage": "dev"`)

	stdout.Reset()
	require.NoError(t, runPrint(&stdout, &stderr, opts, "yaml", true))
	assert.Contains(t, stdout.String(), "AWSTemplateFormatVersion")

	assert.Error(t, runPrint(&stdout, &stderr, opts, "toml", false))
}

func TestRunValidate(t *testing.T) {
	opts := writeService(t, t.TempDir(), ordersService)

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, opts, "text", validation.Options{}))
	assert.Contains(t, out.String(), "Validation passed")

	assert.Error(t, runValidate(&out, opts, "xml", validation.Options{}))
}

func TestRunGraph(t *testing.T) {
	opts := writeService(t, t.TempDir(), ordersService)

	var out bytes.Buffer
	require.NoError(t, runGraph(&out, opts, "dot", false))
	assert.Contains(t, out.String(), "digraph")
	assert.Contains(t, out.String(), "ConsumerActiveMQ1")

	assert.Error(t, runGraph(&out, opts, "svg", false))
}

func TestRunOptimize(t *testing.T) {
	opts := writeService(t, t.TempDir(), ordersService)

	var out bytes.Buffer
	require.NoError(t, runOptimize(&out, opts, "text", "all"))
	assert.Contains(t, out.String(), "OPT-LOG-001")
	assert.Contains(t, out.String(), "Resource: ConsumerLogGroup")

	out.Reset()
	require.NoError(t, runOptimize(&out, opts, "json", "security"))
	assert.NotContains(t, out.String(), `"category": "cost"`)

	assert.Error(t, runOptimize(&out, opts, "text", "speed"))
}

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&globalOptions{})

	flag := cmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)
}

func TestNewDiffCmd_Args(t *testing.T) {
	cmd := newDiffCmd(&globalOptions{})
	assert.NoError(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"a.json", "b.json"}))
	assert.Error(t, cmd.Args(cmd, []string{"a.json"}))
	assert.NotNil(t, cmd.Flags().Lookup("ignore-order"))
}
