// Package graph renders the dependency graph of a compiled template in DOT
// or Mermaid format.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from compiled templates.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate writes the dependency graph of t to w. Edges point from a
// resource to the resources it depends on; Fn::GetAtt edges are blue and
// explicit DependsOn-only edges are dashed.
func (g *Generator) Generate(t *wetwire.Template, w io.Writer) error {
	graph := g.buildGraph(t)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(t *wetwire.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(t, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(t *wetwire.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make(map[string]dot.Node, len(names))
	if g.ClusterByType {
		g.addClusteredNodes(graph, t, names, nodes)
	} else {
		for _, name := range names {
			nodes[name] = addNode(graph, name, t.Resources[name].Type)
		}
	}

	for _, name := range names {
		res := t.Resources[name]
		getAtt := make(map[string]bool)
		for _, ref := range template.AttributeReferences(res.Properties) {
			getAtt[ref] = true
		}
		referenced := make(map[string]bool)
		for _, ref := range template.References(res.Properties) {
			referenced[ref] = true
		}

		for _, dep := range template.Dependencies(res) {
			to, ok := nodes[dep]
			if !ok {
				continue
			}
			e := graph.Edge(nodes[name], to)
			switch {
			case getAtt[dep]:
				e.Attr("color", "blue")
			case !referenced[dep]:
				e.Attr("style", "dashed")
			}
		}
	}

	return graph
}

// addClusteredNodes groups resources of the same service into a cluster
// when that service has more than one resource.
func (g *Generator) addClusteredNodes(graph *dot.Graph, t *wetwire.Template, names []string, nodes map[string]dot.Node) {
	byService := make(map[string][]string)
	var services []string
	for _, name := range names {
		service := extractService(t.Resources[name].Type)
		if _, ok := byService[service]; !ok {
			services = append(services, service)
		}
		byService[service] = append(byService[service], name)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		parent := graph
		if len(members) > 1 {
			parent = graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			parent.Attr("label", service)
			parent.Attr("style", "rounded")
			parent.Attr("bgcolor", "lightyellow")
		}
		for _, name := range members {
			nodes[name] = addNode(parent, name, t.Resources[name].Type)
		}
	}
}

func addNode(graph *dot.Graph, name, cfType string) dot.Node {
	n := graph.Node(name)
	n.Label(name + "\\n[" + cfType + "]")
	return n
}

// extractService extracts the service name from a resource type.
// e.g., "AWS::Lambda::EventSourceMapping" -> "Lambda"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
