// Package compile turns a service definition into a CloudFormation
// resource graph.
//
// Each event family has a Compiler. Compilers append resources to a shared
// Graph and IAM requirements to a shared Accumulator; after every compiler
// has run, the accumulated IAM is merged into the execution role once.
// Configuration errors are collected per event and never stop the pass.
// Invariant violations do.
package compile

import (
	"fmt"
	"log/slog"

	"k8s.io/apimachinery/pkg/util/sets"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/iam"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/service"
)

// Compiler compiles every event of one kind in a service.
type Compiler interface {
	Kind() service.Kind
	Compile(def *service.Definition, g *Graph, acc *iam.Accumulator) ([]*ConfigError, error)
}

// PathMapper is implemented by compilers that allocate API path resources.
type PathMapper interface {
	Paths() map[string]string
}

// Result is the output of one compilation pass.
type Result struct {
	Template *wetwire.Template
	// Paths maps each canonical HTTP path to its path resource logical ID.
	Paths  map[string]string
	Errors []*ConfigError
}

// HasErrors reports whether any event failed to compile.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Engine runs compilers in a fixed order.
type Engine struct {
	compilers []Compiler
}

// DefaultCompilers returns the compilers for every supported event kind.
func DefaultCompilers() []Compiler {
	return []Compiler{
		NewActiveMQCompiler(),
		NewRabbitMQCompiler(),
		NewHTTPCompiler(),
	}
}

// NewEngine creates an engine. With no compilers it uses DefaultCompilers.
func NewEngine(compilers ...Compiler) *Engine {
	if len(compilers) == 0 {
		compilers = DefaultCompilers()
	}
	return &Engine{compilers: compilers}
}

// Compile runs one pass over def starting from base, which must contain
// the execution role skeleton. base is not modified.
func (e *Engine) Compile(def *service.Definition, base *wetwire.Template) (*Result, error) {
	if base == nil {
		return nil, invariantf("", "base template is nil")
	}

	g := NewGraph(base.Resources)
	role, ok := g.Get(naming.RoleLogicalID)
	if !ok {
		return nil, invariantf(naming.RoleLogicalID, "execution role is missing from the base template")
	}
	role.Properties = cloneProperties(role.Properties)
	if err := g.Set(naming.RoleLogicalID, role); err != nil {
		return nil, err
	}

	e.logUncompiled(def)

	acc := FunctionContributions(def)
	result := &Result{Paths: map[string]string{}}

	for _, c := range e.compilers {
		errs, err := c.Compile(def, g, acc)
		result.Errors = append(result.Errors, errs...)
		if err != nil {
			return nil, fmt.Errorf("compiling %s events: %w", c.Kind(), err)
		}
		if pm, ok := c.(PathMapper); ok {
			for path, id := range pm.Paths() {
				result.Paths[path] = id
			}
		}
		slog.Debug("compiler finished", "kind", c.Kind(), "errors", len(errs), "resources", g.Len())
	}

	props, err := g.Role()
	if err != nil {
		return nil, err
	}
	if err := iam.MergeRole(props, ProviderBaseline(def), acc); err != nil {
		return nil, &InvariantError{LogicalID: naming.RoleLogicalID, Err: err}
	}

	result.Template = &wetwire.Template{
		AWSTemplateFormatVersion: base.AWSTemplateFormatVersion,
		Description:              base.Description,
		Resources:                g.Resources(),
		Outputs:                  base.Outputs,
	}
	return result, nil
}

func (e *Engine) logUncompiled(def *service.Definition) {
	handled := sets.New[service.Kind]()
	for _, c := range e.compilers {
		handled.Insert(c.Kind())
	}
	for _, fn := range def.Functions {
		for i, ev := range fn.Events {
			if !handled.Has(ev.Kind()) {
				slog.Debug("no compiler for event kind, skipping", "function", fn.Name, "event", i, "kind", ev.Kind())
			}
		}
	}
}

// cloneProperties deep-copies the generic maps and slices of a property bag
// so that merging into the role leaves the caller's base template intact.
func cloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	return cloneValue(props).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = cloneValue(child)
		}
		return out
	}
	return v
}
