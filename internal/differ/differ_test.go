package differ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

func mapping(queue string) wetwire.ResourceDef {
	return wetwire.ResourceDef{
		Type: "AWS::Lambda::EventSourceMapping",
		Properties: map[string]any{
			"EventSourceArn": "brokerArn",
			"Queues":         []any{queue},
			"FilterCriteria": map[string]any{"Filters": []any{map[string]any{"Pattern": "{}"}}},
		},
		DependsOn: []string{"IamRoleLambdaExecution"},
	}
}

func TestCompare(t *testing.T) {
	prev := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"ConsumerActiveMQ1": mapping("orders"),
		"ConsumerActiveMQ2": mapping("refunds"),
	}}
	next := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"ConsumerActiveMQ1": mapping("orders-v2"),
		"PaymentsRabbitMQ1": mapping("payments"),
	}}

	result, err := Compare(prev, next, Options{})
	require.NoError(t, err)

	require.Len(t, result.Diff.Removed, 1)
	assert.Equal(t, "ConsumerActiveMQ2", result.Diff.Removed[0].Resource)
	require.Len(t, result.Diff.Added, 1)
	assert.Equal(t, "PaymentsRabbitMQ1", result.Diff.Added[0].Resource)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{"Queues modified"}, result.Diff.Modified[0].Changes)

	assert.Equal(t, wetwire.DiffSummary{Total: 3, Added: 1, Removed: 1, Modified: 1}, result.Summary)
	assert.False(t, result.IsNoop())
}

func TestCompare_Identical(t *testing.T) {
	tmpl := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{"ConsumerActiveMQ1": mapping("orders")}}

	result, err := Compare(tmpl, tmpl, Options{})
	require.NoError(t, err)
	assert.True(t, result.IsNoop())
}

func TestCompare_NestedChanges(t *testing.T) {
	prev := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{"M": mapping("orders")}}
	changed := mapping("orders")
	changed.Properties["FilterCriteria"] = map[string]any{"Filters": []any{}}
	changed.Properties["BatchSize"] = 10
	delete(changed.Properties, "EventSourceArn")
	changed.DependsOn = nil
	next := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{"M": changed}}

	result, err := Compare(prev, next, Options{})
	require.NoError(t, err)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{
		"BatchSize added",
		"EventSourceArn removed",
		"FilterCriteria.Filters modified",
		"DependsOn changed",
	}, result.Diff.Modified[0].Changes)
}

func TestCompare_TypedAndPlainIntrinsicsAgree(t *testing.T) {
	typed := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"M": {Type: "T", Properties: map[string]any{"FunctionName": intrinsics.Arn("ConsumerLambdaFunction")}},
	}}
	plain := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"M": {Type: "T", Properties: map[string]any{
			"FunctionName": map[string]any{"Fn::GetAtt": []any{"ConsumerLambdaFunction", "Arn"}},
		}},
	}}

	result, err := Compare(typed, plain, Options{})
	require.NoError(t, err)
	assert.True(t, result.IsNoop())
}

func TestCompare_IgnoreOrder(t *testing.T) {
	prev := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"M": {Type: "T", Properties: map[string]any{"Queues": []any{"a", "b"}}},
	}}
	next := &wetwire.Template{Resources: map[string]wetwire.ResourceDef{
		"M": {Type: "T", Properties: map[string]any{"Queues": []any{"b", "a"}}},
	}}

	result, err := Compare(prev, next, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Modified)

	result, err = Compare(prev, next, Options{IgnoreOrder: true})
	require.NoError(t, err)
	assert.True(t, result.IsNoop())
}

func TestCompare_Outputs(t *testing.T) {
	prev := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{},
		Outputs:   map[string]wetwire.Output{"Old": {Value: "x"}, "Same": {Value: "y"}},
	}
	next := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{},
		Outputs:   map[string]wetwire.Output{"New": {Value: "x"}, "Same": {Value: "y"}},
	}

	result, err := Compare(prev, next, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Old"}, result.Outputs)
	assert.True(t, result.Summary.IsNoop())
	assert.False(t, result.IsNoop())
}

func TestCompare_Nil(t *testing.T) {
	_, err := Compare(nil, &wetwire.Template{}, Options{})
	assert.Error(t, err)
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "a.json")
	yamlFile := filepath.Join(dir, "b.yaml")

	require.NoError(t, os.WriteFile(jsonFile, []byte(`{
  "AWSTemplateFormatVersion": "2010-09-09",
  "Resources": {"Bucket": {"Type": "AWS::S3::Bucket"}}
}`), 0o644))
	require.NoError(t, os.WriteFile(yamlFile, []byte(`AWSTemplateFormatVersion: "2010-09-09"
Resources:
  Bucket:
    Type: AWS::S3::Bucket
`), 0o644))

	result, err := CompareFiles(jsonFile, yamlFile, Options{})
	require.NoError(t, err)
	assert.True(t, result.IsNoop())

	_, err = CompareFiles(filepath.Join(dir, "missing.json"), yamlFile, Options{})
	assert.Error(t, err)
}
