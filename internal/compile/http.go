package compile

import (
	"errors"
	"log/slog"
	"strings"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/iam"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/pathtree"
	"github.com/lex00/wetwire-serverless-go/internal/serialize"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

const (
	RestApiType  = "AWS::ApiGateway::RestApi"
	ResourceType = "AWS::ApiGateway::Resource"
)

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "OPTIONS": true, "HEAD": true, "ANY": true,
}

// HTTPCompiler builds the REST API and its path resources from every http
// event in the service. Method and integration resources are not emitted;
// Paths exposes the path to logical ID map for that purpose.
type HTTPCompiler struct {
	paths map[string]string
}

// NewHTTPCompiler creates an http event compiler.
func NewHTTPCompiler() *HTTPCompiler {
	return &HTTPCompiler{paths: map[string]string{}}
}

func (c *HTTPCompiler) Kind() service.Kind { return service.KindHTTP }

// Paths returns the canonical path to logical ID map of the last Compile.
func (c *HTTPCompiler) Paths() map[string]string {
	return c.paths
}

type restApi struct {
	Name                  string                `json:"Name"`
	EndpointConfiguration endpointConfiguration `json:"EndpointConfiguration"`
}

type endpointConfiguration struct {
	Types []string `json:"Types"`
}

type apiResource struct {
	ParentId  any    `json:"ParentId"`
	PathPart  string `json:"PathPart"`
	RestApiId any    `json:"RestApiId"`
}

func (c *HTTPCompiler) Compile(def *service.Definition, g *Graph, _ *iam.Accumulator) ([]*ConfigError, error) {
	var errs []*ConfigError
	var routes []pathtree.Route

	for _, fn := range def.Functions {
		for i, ev := range fn.Events {
			h, ok := ev.(*service.HTTPEvent)
			if !ok {
				continue
			}
			route, cerr := validateRoute(fn.Name, i, h)
			if cerr != nil {
				errs = append(errs, cerr)
				continue
			}
			routes = append(routes, route)
		}
	}

	c.paths = map[string]string{}
	if len(routes) == 0 {
		return errs, nil
	}

	tree, err := pathtree.Build(routes)
	if err != nil {
		return errs, &InvariantError{Err: err}
	}

	apiProps, err := serialize.Properties(restApi{
		Name:                  def.StackName(),
		EndpointConfiguration: endpointConfiguration{Types: []string{"EDGE"}},
	})
	if err != nil {
		return errs, err
	}
	if err := g.Add(naming.RestApiLogicalID, wetwire.ResourceDef{Type: RestApiType, Properties: apiProps}); err != nil {
		return errs, err
	}

	for _, node := range tree.Nodes() {
		var parent any = intrinsics.GetAtt{LogicalName: naming.RestApiLogicalID, Attribute: "RootResourceId"}
		if node.ParentID != "" {
			parent = intrinsics.RefTo(node.ParentID)
		}
		props, err := serialize.Properties(apiResource{
			ParentId:  parent,
			PathPart:  node.Segment,
			RestApiId: intrinsics.RefTo(naming.RestApiLogicalID),
		})
		if err != nil {
			return errs, err
		}
		if err := g.Add(node.LogicalID, wetwire.ResourceDef{Type: ResourceType, Properties: props}); err != nil {
			return errs, err
		}
	}

	c.paths = tree.IDs()
	slog.Debug("compiled http paths", "routes", len(routes), "resources", tree.Len())
	return errs, nil
}

func validateRoute(fn string, index int, h *service.HTTPEvent) (pathtree.Route, *ConfigError) {
	method := strings.ToUpper(h.Method)
	if method == "" {
		return pathtree.Route{}, missing(fn, index, service.KindHTTP, "method")
	}
	if !httpMethods[method] {
		return pathtree.Route{}, invalid(fn, index, service.KindHTTP, "method", "unsupported method %q", h.Method)
	}
	if _, err := pathtree.Canonicalize(h.Path); err != nil {
		if errors.Is(err, pathtree.ErrGreedyNotTerminal) {
			return pathtree.Route{}, invalid(fn, index, service.KindHTTP, "path", "greedy segment must be last in %q", h.Path)
		}
		return pathtree.Route{}, invalid(fn, index, service.KindHTTP, "path", "%v", err)
	}
	return pathtree.Route{Method: method, Path: h.Path}, nil
}
