package service

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind names an event source family as written in serverless.yml.
type Kind string

const (
	KindHTTP     Kind = "http"
	KindActiveMQ Kind = "activemq"
	KindRabbitMQ Kind = "rabbitmq"
	KindStream   Kind = "stream"
	KindSchedule Kind = "schedule"
	KindS3       Kind = "s3"
)

// Event is one declared trigger. The set of implementations is closed.
type Event interface {
	Kind() Kind
	isEvent()
}

// HTTPEvent is an API route.
type HTTPEvent struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
}

// BrokerEvent holds the fields shared by message-broker sources.
type BrokerEvent struct {
	Arn                   any              `yaml:"arn"`
	Queue                 string           `yaml:"queue"`
	BasicAuthArn          any              `yaml:"basicAuthArn"`
	BatchSize             *int             `yaml:"batchSize"`
	MaximumBatchingWindow *int             `yaml:"maximumBatchingWindow"`
	Enabled               *bool            `yaml:"enabled"`
	FilterPatterns        []map[string]any `yaml:"filterPatterns"`
}

// Broker returns the shared broker fields.
func (b *BrokerEvent) Broker() *BrokerEvent { return b }

// ActiveMQEvent consumes an Amazon MQ for ActiveMQ queue.
type ActiveMQEvent struct {
	BrokerEvent `yaml:",inline"`
}

// RabbitMQEvent consumes an Amazon MQ for RabbitMQ queue.
type RabbitMQEvent struct {
	BrokerEvent `yaml:",inline"`
	VirtualHost string `yaml:"virtualHost"`
}

// StreamEvent consumes a Kinesis or DynamoDB stream.
type StreamEvent struct {
	Arn              any    `yaml:"arn"`
	Type             string `yaml:"type"`
	BatchSize        *int   `yaml:"batchSize"`
	StartingPosition string `yaml:"startingPosition"`
	Enabled          *bool  `yaml:"enabled"`
}

// ScheduleEvent invokes the function on a rate or cron expression.
type ScheduleEvent struct {
	Rate    []string `yaml:"rate"`
	Enabled *bool    `yaml:"enabled"`
	Input   any      `yaml:"input"`
}

// S3Event invokes the function on bucket notifications.
type S3Event struct {
	Bucket   string           `yaml:"bucket"`
	Event    string           `yaml:"event"`
	Rules    []map[string]any `yaml:"rules"`
	Existing bool             `yaml:"existing"`
}

func (*HTTPEvent) Kind() Kind     { return KindHTTP }
func (*ActiveMQEvent) Kind() Kind { return KindActiveMQ }
func (*RabbitMQEvent) Kind() Kind { return KindRabbitMQ }
func (*StreamEvent) Kind() Kind   { return KindStream }
func (*ScheduleEvent) Kind() Kind { return KindSchedule }
func (*S3Event) Kind() Kind       { return KindS3 }

func (*HTTPEvent) isEvent()     {}
func (*ActiveMQEvent) isEvent() {}
func (*RabbitMQEvent) isEvent() {}
func (*StreamEvent) isEvent()   {}
func (*ScheduleEvent) isEvent() {}
func (*S3Event) isEvent()       {}

// Events is an ordered event list.
type Events []Event

// UnmarshalYAML decodes each single-key "<kind>: <body>" item into its
// typed variant.
func (e *Events) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: events must be a list", node.Line)
	}
	out := make(Events, 0, len(node.Content))
	for i, item := range node.Content {
		ev, err := decodeEvent(item)
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		out = append(out, ev)
	}
	*e = out
	return nil
}

func decodeEvent(node *yaml.Node) (Event, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, fmt.Errorf("line %d: event must be a mapping with exactly one kind key", node.Line)
	}
	kind, body := Kind(node.Content[0].Value), node.Content[1]

	var ev Event
	switch kind {
	case KindHTTP:
		h := &HTTPEvent{}
		if body.Kind == yaml.ScalarNode {
			method, path, ok := strings.Cut(strings.TrimSpace(body.Value), " ")
			if !ok {
				return nil, fmt.Errorf("line %d: http shorthand must be \"<METHOD> <path>\"", body.Line)
			}
			h.Method, h.Path = method, strings.TrimSpace(path)
			return h, nil
		}
		ev = h
	case KindActiveMQ:
		ev = &ActiveMQEvent{}
	case KindRabbitMQ:
		ev = &RabbitMQEvent{}
	case KindStream:
		s := &StreamEvent{}
		if body.Kind == yaml.ScalarNode {
			s.Arn = body.Value
			return s, nil
		}
		ev = s
	case KindSchedule:
		s := &ScheduleEvent{}
		if body.Kind == yaml.ScalarNode {
			s.Rate = []string{body.Value}
			return s, nil
		}
		if err := decodeSchedule(body, s); err != nil {
			return nil, err
		}
		return s, nil
	case KindS3:
		s := &S3Event{}
		if body.Kind == yaml.ScalarNode {
			s.Bucket = body.Value
			return s, nil
		}
		ev = s
	default:
		return nil, fmt.Errorf("line %d: unknown event kind %q", node.Content[0].Line, kind)
	}

	if err := body.Decode(ev); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return ev, nil
}

// decodeSchedule accepts rate as either a string or a list of strings.
func decodeSchedule(body *yaml.Node, s *ScheduleEvent) error {
	var raw struct {
		Rate    yaml.Node `yaml:"rate"`
		Enabled *bool     `yaml:"enabled"`
		Input   any       `yaml:"input"`
	}
	if err := body.Decode(&raw); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	s.Enabled, s.Input = raw.Enabled, raw.Input
	switch raw.Rate.Kind {
	case 0:
	case yaml.ScalarNode:
		s.Rate = []string{raw.Rate.Value}
	default:
		if err := raw.Rate.Decode(&s.Rate); err != nil {
			return fmt.Errorf("schedule.rate: %w", err)
		}
	}
	return nil
}
