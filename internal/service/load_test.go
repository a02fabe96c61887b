package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-serverless-go/internal/selfref"
)

const ordersYAML = `
service: orders
frameworkVersion: "3"

provider:
  name: aws
  runtime: nodejs20.x
  iam:
    role:
      principals:
        - edgelambda.amazonaws.com
      managedPolicies:
        - arn:aws:iam::aws:policy/ReadOnlyAccess
      statements:
        - Effect: Allow
          Action:
            - s3:GetObject
          Resource: arn:aws:s3:::orders-${self:provider.stage}/*

custom:
  brokerArn: arn:aws:mq:us-east-1:123456789012:broker:orders:b-1234
  secretArn: arn:aws:secretsmanager:us-east-1:123456789012:secret:mq-creds
  batch: 25
  service: ${self:}

functions:
  zeta:
    handler: zeta.handler
    events:
      - http: GET users/list
      - http:
          method: post
          path: /users/{id}
  alpha:
    handler: alpha.handler
    memorySize: 256
    iam:
      principals:
        - events.amazonaws.com
    events:
      - activemq:
          arn: ${self:custom.brokerArn}
          queue: orders
          basicAuthArn: ${self:custom.secretArn}
          batchSize: ${self:custom.batch}
          enabled: false
          filterPatterns:
            - value:
                kind: [created]
      - rabbitmq:
          arn: ${self:custom.brokerArn}
          queue: payments
          virtualHost: /prod
          basicAuthArn: ${self:custom.secretArn}
      - schedule: rate(5 minutes)
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(ordersYAML), Options{})
	require.NoError(t, err)

	assert.Equal(t, "orders", def.Service)
	assert.Equal(t, "3", def.FrameworkVersion)
	assert.Equal(t, DefaultStage, def.Provider.Stage)
	assert.Equal(t, DefaultRegion, def.Provider.Region)
	assert.Equal(t, "orders-dev", def.StackName())

	require.Len(t, def.Provider.IAM.Role.Statements, 1)
	assert.Equal(t, "arn:aws:s3:::orders-dev/*", def.Provider.IAM.Role.Statements[0].Resource)
	assert.Equal(t, []any{"edgelambda.amazonaws.com"}, def.Provider.IAM.Role.Principals)

	// declaration order, not alphabetical
	require.Len(t, def.Functions, 2)
	assert.Equal(t, "zeta", def.Functions[0].Name)
	assert.Equal(t, "alpha", def.Functions[1].Name)
}

func TestParse_Events(t *testing.T) {
	def, err := Parse([]byte(ordersYAML), Options{})
	require.NoError(t, err)

	zeta, ok := def.Function("zeta")
	require.True(t, ok)
	require.Len(t, zeta.Events, 2)
	assert.Equal(t, &HTTPEvent{Method: "GET", Path: "users/list"}, zeta.Events[0])
	assert.Equal(t, &HTTPEvent{Method: "post", Path: "/users/{id}"}, zeta.Events[1])

	alpha, ok := def.Function("alpha")
	require.True(t, ok)
	require.Len(t, alpha.Events, 3)

	mq, ok := alpha.Events[0].(*ActiveMQEvent)
	require.True(t, ok)
	assert.Equal(t, "arn:aws:mq:us-east-1:123456789012:broker:orders:b-1234", mq.Arn)
	assert.Equal(t, "orders", mq.Queue)
	assert.Equal(t, "arn:aws:secretsmanager:us-east-1:123456789012:secret:mq-creds", mq.BasicAuthArn)
	require.NotNil(t, mq.BatchSize)
	assert.Equal(t, 25, *mq.BatchSize)
	require.NotNil(t, mq.Enabled)
	assert.False(t, *mq.Enabled)
	require.Len(t, mq.FilterPatterns, 1)

	rabbit, ok := alpha.Events[1].(*RabbitMQEvent)
	require.True(t, ok)
	assert.Equal(t, "/prod", rabbit.VirtualHost)
	assert.Equal(t, KindRabbitMQ, rabbit.Kind())
	assert.Nil(t, rabbit.Enabled)

	sched, ok := alpha.Events[2].(*ScheduleEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"rate(5 minutes)"}, sched.Rate)

	require.NotNil(t, alpha.IAM)
	assert.Equal(t, []any{"events.amazonaws.com"}, alpha.IAM.Principals)
	assert.Equal(t, 256, def.MemorySizeOf(alpha))
	assert.Equal(t, 1024, def.MemorySizeOf(zeta))
	assert.Equal(t, "nodejs20.x", def.RuntimeOf(alpha))
}

func TestParse_OptionsOverrideProvider(t *testing.T) {
	src := `
service: orders
provider:
  stage: qa
  region: eu-west-1
custom:
  bucket: orders-${opt:stage}-${self:provider.region}
`
	def, err := Parse([]byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, "qa", def.Provider.Stage)
	assert.Equal(t, "eu-west-1", def.Provider.Region)
	assert.Equal(t, "orders-qa-eu-west-1", def.Custom["bucket"])

	def, err = Parse([]byte(src), Options{Stage: "prod", Region: "ap-south-1"})
	require.NoError(t, err)
	assert.Equal(t, "prod", def.Provider.Stage)
	assert.Equal(t, "orders-prod-ap-south-1", def.Custom["bucket"])
}

func TestParse_SelfReference(t *testing.T) {
	def, err := Parse([]byte(ordersYAML), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"custom.service"}, selfref.Find(def.Raw, def.Raw))
	v, ok := selfref.Get(def.Raw, "custom.service.service")
	require.True(t, ok)
	assert.Equal(t, "orders", v)
}

func TestParse_NestedVariables(t *testing.T) {
	src := `
service: orders
custom:
  a: ${self:custom.b}
  b: ${self:custom.c}-x
  c: base
`
	def, err := Parse([]byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, "base-x", def.Custom["a"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"no service", "provider:\n  name: aws\n"},
		{"missing handler", "service: s\nfunctions:\n  f:\n    events: []\n"},
		{"unknown event kind", "service: s\nfunctions:\n  f:\n    handler: h\n    events:\n      - carrierPigeon: {}\n"},
		{"multi-key event", "service: s\nfunctions:\n  f:\n    handler: h\n    events:\n      - http: GET /\n        sqs: arn\n"},
		{"bad http shorthand", "service: s\nfunctions:\n  f:\n    handler: h\n    events:\n      - http: GET\n"},
		{"unresolved variable", "service: s\ncustom:\n  a: ${self:custom.missing}\n"},
		{"circular variable", "service: s\ncustom:\n  a: ${self:custom.b}\n  b: ${self:custom.a}\n"},
		{"embedded self", "service: s\ncustom:\n  a: x-${self:}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), Options{})
			assert.Error(t, err)
		})
	}
}

func TestParse_SelfKeyWithQuoteAndBracket(t *testing.T) {
	src := "service: s\ncustom:\n  'x\"]y': ${self:}\n"

	def, err := Parse([]byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{`custom["x\"]y"]`}, selfref.Find(def.Raw, def.Raw))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serverless.yml")
	require.NoError(t, os.WriteFile(path, []byte(ordersYAML), 0644))

	def, err := Load(path, Options{Stage: "prod"})
	require.NoError(t, err)
	assert.Equal(t, "orders-prod", def.StackName())
	assert.Equal(t, "orders-prod-zeta", def.FunctionName(def.Functions[0]))

	_, err = Load(filepath.Join(dir, "missing.yml"), Options{})
	assert.Error(t, err)
}
