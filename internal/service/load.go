package service

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-serverless-go/internal/selfref"
)

// Options override values in the service definition.
type Options struct {
	Stage  string
	Region string
}

// Load reads and parses the service definition at path.
func Load(path string, opts Options) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service definition: %w", err)
	}
	def, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("loaded service definition", "path", path, "service", def.Service,
		"stage", def.Provider.Stage, "region", def.Provider.Region, "functions", len(def.Functions))
	return def, nil
}

// Parse decodes a serverless.yml document, resolving variables first.
func Parse(data []byte, opts Options) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("service definition is empty")
	}

	stage := firstNonEmpty(opts.Stage, scalarValue(&doc, "stage"), DefaultStage)
	region := firstNonEmpty(opts.Region, scalarValue(&doc, "region"), DefaultRegion)
	if err := setProviderScalar(&doc, "stage", stage); err != nil {
		return nil, err
	}
	if err := setProviderScalar(&doc, "region", region); err != nil {
		return nil, err
	}

	r := &resolver{opts: map[string]string{"stage": stage, "region": region}}
	if err := r.resolve(&doc); err != nil {
		return nil, err
	}

	var typed struct {
		Service          string    `yaml:"service"`
		FrameworkVersion string    `yaml:"frameworkVersion"`
		Provider         Provider  `yaml:"provider"`
		Functions        yaml.Node `yaml:"functions"`
	}
	if err := doc.Decode(&typed); err != nil {
		return nil, fmt.Errorf("decoding service definition: %w", err)
	}
	if typed.Service == "" {
		return nil, fmt.Errorf("service: name is required")
	}

	def := &Definition{
		Service:          typed.Service,
		FrameworkVersion: typed.FrameworkVersion,
		Provider:         typed.Provider,
	}
	if def.Provider.Name == "" {
		def.Provider.Name = "aws"
	}

	functions, err := decodeFunctions(&typed.Functions)
	if err != nil {
		return nil, err
	}
	def.Functions = functions

	if err := doc.Decode(&def.Raw); err != nil {
		return nil, fmt.Errorf("decoding service definition: %w", err)
	}
	if _, err := selfref.Replace(def.Raw, SelfMarker, def.Raw); err != nil {
		return nil, fmt.Errorf("linking self references: %w", err)
	}
	if custom, ok := def.Raw["custom"].(map[string]any); ok {
		def.Custom = custom
	}
	return def, nil
}

func decodeFunctions(node *yaml.Node) ([]*Function, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: functions must be a mapping", node.Line)
	}

	functions := make([]*Function, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		fn := &Function{}
		if err := node.Content[i+1].Decode(fn); err != nil {
			return nil, fmt.Errorf("functions.%s: %w", name, err)
		}
		fn.Name = name
		if fn.Handler == "" {
			return nil, fmt.Errorf("functions.%s: handler is required", name)
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
