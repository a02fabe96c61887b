package template

import (
	"fmt"
	"testing"

	"github.com/lex00/wetwire-serverless-go/internal/service"
)

// BenchmarkBuild benchmarks building templates with varying function counts.
func BenchmarkBuild(b *testing.B) {
	sizes := []int{10, 50, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("functions_%d", size), func(b *testing.B) {
			def := generateDefinition(size)
			builder := NewBuilder(def)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkOrder benchmarks dependency ordering of a compiled template.
func BenchmarkOrder(b *testing.B) {
	build, err := NewBuilder(generateDefinition(100)).Build()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Order(build.Template); err != nil {
			b.Fatal(err)
		}
	}
}

// generateDefinition creates a service with size functions, each with one
// broker event and one HTTP route under a shared prefix.
func generateDefinition(size int) *service.Definition {
	def := &service.Definition{
		Service:  "bench",
		Provider: service.Provider{Name: "aws", Runtime: "provided.al2023", Stage: "dev", Region: "us-east-1"},
	}
	for i := 0; i < size; i++ {
		var broker service.Event
		if i%2 == 0 {
			ev := &service.ActiveMQEvent{}
			ev.Arn, ev.Queue, ev.BasicAuthArn = fmt.Sprintf("broker-%d", i%5), fmt.Sprintf("queue-%d", i), "secret"
			broker = ev
		} else {
			ev := &service.RabbitMQEvent{}
			ev.Arn, ev.Queue, ev.BasicAuthArn = fmt.Sprintf("broker-%d", i%5), fmt.Sprintf("queue-%d", i), "secret"
			broker = ev
		}
		def.Functions = append(def.Functions, &service.Function{
			Name:    fmt.Sprintf("fn%d", i),
			Handler: "bootstrap",
			Events: service.Events{
				broker,
				&service.HTTPEvent{Method: "GET", Path: fmt.Sprintf("api/v1/items%d/{id}", i)},
			},
		})
	}
	return def
}
