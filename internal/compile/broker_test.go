package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-serverless-go/internal/iam"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func definition(functions ...*service.Function) *service.Definition {
	return &service.Definition{
		Service:   "orders",
		Provider:  service.Provider{Name: "aws", Stage: "dev", Region: "us-east-1"},
		Functions: functions,
	}
}

func activemq(arn, queue, secret any) *service.ActiveMQEvent {
	ev := &service.ActiveMQEvent{}
	ev.Arn, ev.BasicAuthArn = arn, secret
	if q, ok := queue.(string); ok {
		ev.Queue = q
	}
	return ev
}

func TestBrokerCompiler_SingleEvent(t *testing.T) {
	def := definition(&service.Function{
		Name:    "consumer",
		Handler: "consumer.handler",
		Events:  service.Events{activemq("brokerArn", "Q", "secretArn")},
	})
	g := NewGraph(nil)
	acc := iam.NewAccumulator()

	errs, err := NewActiveMQCompiler().Compile(def, g, acc)
	require.NoError(t, err)
	assert.Empty(t, errs)

	require.Equal(t, 1, g.Len())
	res, ok := g.Get("ConsumerActiveMQ1")
	require.True(t, ok)

	assert.Equal(t, EventSourceMappingType, res.Type)
	assert.Equal(t, []string{naming.RoleLogicalID}, res.DependsOn)
	assert.Equal(t, map[string]any{
		"FunctionName":   map[string]any{"Fn::GetAtt": []any{"ConsumerLambdaFunction", "Arn"}},
		"EventSourceArn": "brokerArn",
		"Queues":         []any{"Q"},
		"Enabled":        true,
		"SourceAccessConfigurations": []any{
			map[string]any{"Type": "BASIC_AUTH", "URI": "secretArn"},
		},
	}, res.Properties)

	assert.Equal(t, []intrinsics.PolicyStatement{
		intrinsics.Allow([]any{"mq:DescribeBroker"}, []any{"brokerArn"}),
		intrinsics.Allow([]any{"secretsmanager:GetSecretValue"}, []any{"secretArn"}),
		ENIStatement(),
	}, acc.Statements)
	assert.Equal(t, "*", acc.Statements[2].Resource)
}

func TestBrokerCompiler_Disabled(t *testing.T) {
	enabledDef := definition(&service.Function{
		Name:   "consumer",
		Events: service.Events{activemq("brokerArn", "Q", "secretArn")},
	})
	disabled := activemq("brokerArn", "Q", "secretArn")
	disabled.Enabled = boolPtr(false)
	disabledDef := definition(&service.Function{Name: "consumer", Events: service.Events{disabled}})

	g1, g2 := NewGraph(nil), NewGraph(nil)
	_, err := NewActiveMQCompiler().Compile(enabledDef, g1, iam.NewAccumulator())
	require.NoError(t, err)
	_, err = NewActiveMQCompiler().Compile(disabledDef, g2, iam.NewAccumulator())
	require.NoError(t, err)

	on, _ := g1.Get("ConsumerActiveMQ1")
	off, _ := g2.Get("ConsumerActiveMQ1")
	assert.Equal(t, false, off.Properties["Enabled"])

	off.Properties["Enabled"] = true
	assert.Equal(t, on.Properties, off.Properties)
}

func TestBrokerCompiler_MissingFields(t *testing.T) {
	def := definition(&service.Function{
		Name: "consumer",
		Events: service.Events{
			activemq(nil, "Q", ""),
			&service.HTTPEvent{Method: "GET", Path: "health"},
			activemq("brokerArn", nil, "secretArn"),
			activemq("brokerArn", "Q", "secretArn"),
		},
	})
	g := NewGraph(nil)

	errs, err := NewActiveMQCompiler().Compile(def, g, iam.NewAccumulator())
	require.NoError(t, err)

	require.Len(t, errs, 3)
	assert.Equal(t, &ConfigError{Function: "consumer", EventIndex: 0, Kind: service.KindActiveMQ, Field: "arn"}, errs[0])
	assert.Equal(t, "basicAuthArn", errs[1].Field)
	assert.Equal(t, 2, errs[2].EventIndex)
	assert.Equal(t, "queue", errs[2].Field)
	assert.Equal(t, `functions.consumer.events[0].activemq: missing required field "arn"`, errs[0].Error())

	// the valid event keeps its ordinal among activemq events
	assert.Equal(t, []string{"ConsumerActiveMQ3"}, g.IDs())
}

func TestBrokerCompiler_OptionalProperties(t *testing.T) {
	ev := activemq("brokerArn", "Q", "secretArn")
	ev.BatchSize = intPtr(10)
	ev.MaximumBatchingWindow = intPtr(5)
	ev.FilterPatterns = []map[string]any{
		{"value": map[string]any{"kind": []any{"created"}}},
		{"value": map[string]any{"kind": []any{"cancelled"}}},
	}
	def := definition(&service.Function{Name: "consumer", Events: service.Events{ev}})
	g := NewGraph(nil)

	_, err := NewActiveMQCompiler().Compile(def, g, iam.NewAccumulator())
	require.NoError(t, err)

	res, _ := g.Get("ConsumerActiveMQ1")
	assert.Equal(t, 10, res.Properties["BatchSize"])
	assert.Equal(t, 5, res.Properties["MaximumBatchingWindowInSeconds"])
	assert.Equal(t, map[string]any{
		"Filters": []any{
			map[string]any{"Pattern": `{"value":{"kind":["created"]}}`},
			map[string]any{"Pattern": `{"value":{"kind":["cancelled"]}}`},
		},
	}, res.Properties["FilterCriteria"])
}

func TestRabbitMQCompiler_VirtualHost(t *testing.T) {
	withHost := &service.RabbitMQEvent{VirtualHost: "/prod"}
	withHost.Arn, withHost.Queue, withHost.BasicAuthArn = "brokerArn", "payments", "secretArn"
	noHost := &service.RabbitMQEvent{}
	noHost.Arn, noHost.Queue, noHost.BasicAuthArn = "brokerArn", "refunds", "secretArn"

	def := definition(&service.Function{Name: "pay-worker", Events: service.Events{withHost, noHost}})
	g := NewGraph(nil)
	acc := iam.NewAccumulator()

	errs, err := NewRabbitMQCompiler().Compile(def, g, acc)
	require.NoError(t, err)
	assert.Empty(t, errs)

	first, ok := g.Get("PayDashworkerRabbitMQ1")
	require.True(t, ok)
	assert.Equal(t, []any{
		map[string]any{"Type": "BASIC_AUTH", "URI": "secretArn"},
		map[string]any{"Type": "VIRTUAL_HOST", "URI": "/prod"},
	}, first.Properties["SourceAccessConfigurations"])

	second, ok := g.Get("PayDashworkerRabbitMQ2")
	require.True(t, ok)
	assert.Len(t, second.Properties["SourceAccessConfigurations"], 1)

	// one describe and one secret statement per function, listing both events
	require.Len(t, acc.Statements, 3)
	assert.Equal(t, []any{"brokerArn", "brokerArn"}, acc.Statements[0].Resource)
}

func TestBrokerCompiler_IntrinsicArn(t *testing.T) {
	ev := activemq(map[string]any{"Ref": "OrdersBroker"}, "Q", map[string]any{"Ref": "BrokerSecret"})
	def := definition(&service.Function{Name: "consumer", Events: service.Events{ev}})
	g := NewGraph(nil)

	errs, err := NewActiveMQCompiler().Compile(def, g, iam.NewAccumulator())
	require.NoError(t, err)
	assert.Empty(t, errs)

	res, _ := g.Get("ConsumerActiveMQ1")
	assert.Equal(t, map[string]any{"Ref": "OrdersBroker"}, res.Properties["EventSourceArn"])
}

func TestBrokerCompiler_DuplicateLogicalID(t *testing.T) {
	def := definition(&service.Function{Name: "consumer", Events: service.Events{activemq("a", "Q", "s")}})
	g := NewGraph(nil)
	require.NoError(t, g.Add("ConsumerActiveMQ1", mappingPlaceholder()))

	_, err := NewActiveMQCompiler().Compile(def, g, iam.NewAccumulator())
	assert.True(t, IsInvariant(err))
	assert.ErrorIs(t, err, ErrDuplicateLogicalID)
}
