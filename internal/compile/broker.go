package compile

import (
	"encoding/json"
	"log/slog"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/iam"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/serialize"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// EventSourceMappingType is the resource type emitted for broker events.
const EventSourceMappingType = "AWS::Lambda::EventSourceMapping"

// eniActions are needed by Lambda to reach a broker inside a VPC. ENI IDs
// are not known at compile time, so the grant is scoped to "*".
var eniActions = []any{
	"ec2:CreateNetworkInterface",
	"ec2:DescribeNetworkInterfaces",
	"ec2:DescribeVpcs",
	"ec2:DeleteNetworkInterface",
	"ec2:DescribeSubnets",
	"ec2:DescribeSecurityGroups",
}

// ENIStatement is the standing network-interface grant shared by every
// broker family.
func ENIStatement() intrinsics.PolicyStatement {
	return intrinsics.Allow(eniActions, "*")
}

type brokerEvent interface {
	service.Event
	Broker() *service.BrokerEvent
}

// brokerFamily is the per-kind variation of the broker pattern.
type brokerFamily struct {
	kind service.Kind
	// name is the kind as it appears in logical IDs, e.g. "ActiveMQ".
	name         string
	resourceType string
	// accessConfigs lists source-access-configuration entries beyond
	// BASIC_AUTH.
	accessConfigs func(ev service.Event) []sourceAccessConfiguration
}

// brokerCompiler compiles every event of one broker family.
type brokerCompiler struct {
	family brokerFamily
}

// NewActiveMQCompiler compiles activemq events.
func NewActiveMQCompiler() Compiler {
	return &brokerCompiler{family: brokerFamily{
		kind:         service.KindActiveMQ,
		name:         "ActiveMQ",
		resourceType: EventSourceMappingType,
	}}
}

// NewRabbitMQCompiler compiles rabbitmq events. A declared virtual host
// adds a VIRTUAL_HOST access entry.
func NewRabbitMQCompiler() Compiler {
	return &brokerCompiler{family: brokerFamily{
		kind:         service.KindRabbitMQ,
		name:         "RabbitMQ",
		resourceType: EventSourceMappingType,
		accessConfigs: func(ev service.Event) []sourceAccessConfiguration {
			r, ok := ev.(*service.RabbitMQEvent)
			if !ok || r.VirtualHost == "" {
				return nil
			}
			return []sourceAccessConfiguration{{Type: "VIRTUAL_HOST", URI: r.VirtualHost}}
		},
	}}
}

type eventSourceMapping struct {
	FunctionName                   any                         `json:"FunctionName"`
	EventSourceArn                 any                         `json:"EventSourceArn"`
	Queues                         []string                    `json:"Queues"`
	Enabled                        *bool                       `json:"Enabled"`
	BatchSize                      *int                        `json:"BatchSize,omitempty"`
	MaximumBatchingWindowInSeconds *int                        `json:"MaximumBatchingWindowInSeconds,omitempty"`
	FilterCriteria                 *filterCriteria             `json:"FilterCriteria,omitempty"`
	SourceAccessConfigurations     []sourceAccessConfiguration `json:"SourceAccessConfigurations,omitempty"`
}

type filterCriteria struct {
	Filters []filter `json:"Filters"`
}

type filter struct {
	Pattern string `json:"Pattern"`
}

type sourceAccessConfiguration struct {
	Type string `json:"Type"`
	URI  any    `json:"URI"`
}

func (c *brokerCompiler) Kind() service.Kind { return c.family.kind }

// Compile emits one mapping per valid event. Per function it grants
// describe on that function's brokers and read on its secrets; the ENI
// grant is added once per pass.
func (c *brokerCompiler) Compile(def *service.Definition, g *Graph, acc *iam.Accumulator) ([]*ConfigError, error) {
	var errs []*ConfigError

	for _, fn := range def.Functions {
		var brokers, secrets []any
		ordinal := 0

		for i, ev := range fn.Events {
			if ev.Kind() != c.family.kind {
				continue
			}
			ordinal++

			be, ok := ev.(brokerEvent)
			if !ok {
				return errs, invariantf("", "%s event of type %T has no broker fields", c.family.kind, ev)
			}
			b := be.Broker()

			if problems := c.validate(fn.Name, i, b); len(problems) > 0 {
				errs = append(errs, problems...)
				continue
			}

			props, cerr := c.properties(fn, i, ev, b)
			if cerr != nil {
				errs = append(errs, cerr)
				continue
			}

			id := naming.EventLogicalID(fn.Name, c.family.name, ordinal)
			if err := g.Add(id, wetwire.ResourceDef{
				Type:       c.family.resourceType,
				Properties: props,
				DependsOn:  []string{naming.RoleLogicalID},
			}); err != nil {
				return errs, err
			}
			slog.Debug("compiled event source mapping", "function", fn.Name, "kind", c.family.kind, "logicalId", id)

			brokers = append(brokers, b.Arn)
			secrets = append(secrets, b.BasicAuthArn)
		}

		if len(brokers) == 0 {
			continue
		}
		acc.AddStatements(
			intrinsics.Allow([]any{"mq:DescribeBroker"}, brokers),
			intrinsics.Allow([]any{"secretsmanager:GetSecretValue"}, secrets),
		)
		if !acc.HasStatement(ENIStatement()) {
			acc.AddStatements(ENIStatement())
		}
	}
	return errs, nil
}

// validate reports every missing required field of one event.
func (c *brokerCompiler) validate(fn string, index int, b *service.BrokerEvent) []*ConfigError {
	var errs []*ConfigError
	if isBlank(b.Arn) {
		errs = append(errs, missing(fn, index, c.family.kind, "arn"))
	}
	if b.Queue == "" {
		errs = append(errs, missing(fn, index, c.family.kind, "queue"))
	}
	if isBlank(b.BasicAuthArn) {
		errs = append(errs, missing(fn, index, c.family.kind, "basicAuthArn"))
	}
	return errs
}

func (c *brokerCompiler) properties(fn *service.Function, index int, ev service.Event, b *service.BrokerEvent) (map[string]any, *ConfigError) {
	enabled := true
	if b.Enabled != nil {
		enabled = *b.Enabled
	}

	mapping := eventSourceMapping{
		FunctionName:                   intrinsics.Arn(naming.FunctionLogicalID(fn.Name)),
		EventSourceArn:                 b.Arn,
		Queues:                         []string{b.Queue},
		Enabled:                        &enabled,
		BatchSize:                      b.BatchSize,
		MaximumBatchingWindowInSeconds: b.MaximumBatchingWindow,
		SourceAccessConfigurations: []sourceAccessConfiguration{
			{Type: "BASIC_AUTH", URI: b.BasicAuthArn},
		},
	}
	if c.family.accessConfigs != nil {
		mapping.SourceAccessConfigurations = append(mapping.SourceAccessConfigurations, c.family.accessConfigs(ev)...)
	}

	if len(b.FilterPatterns) > 0 {
		mapping.FilterCriteria = &filterCriteria{}
		for _, pattern := range b.FilterPatterns {
			data, err := json.Marshal(pattern)
			if err != nil {
				return nil, invalid(fn.Name, index, c.family.kind, "filterPatterns", "cannot encode pattern: %v", err)
			}
			mapping.FilterCriteria.Filters = append(mapping.FilterCriteria.Filters, filter{Pattern: string(data)})
		}
	}

	props, err := serialize.Properties(mapping)
	if err != nil {
		return nil, invalid(fn.Name, index, c.family.kind, "arn", "cannot serialize mapping: %v", err)
	}
	return props, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}
