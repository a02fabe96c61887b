// Package schema checks compiled resources against the property schemas of
// the resource types the compiler emits.
package schema

import (
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-serverless-go"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties the schema does not know as warnings.
	Strict bool
}

// Error is one schema violation.
type Error struct {
	Resource string
	Property string
	Message  string
}

func (e Error) String() string {
	if e.Property == "" {
		return e.Resource + ": " + e.Message
	}
	return e.Resource + "." + e.Property + ": " + e.Message
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Error
	Warnings []Error
}

// ValidateTemplate checks every resource in t, in logical ID order.
func ValidateTemplate(t *wetwire.Template, opts Options) *Result {
	result := &Result{Valid: true}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs, warnings := validateResource(name, t.Resources[name], opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateResource(name string, resource wetwire.ResourceDef, opts Options) ([]Error, []Error) {
	var errs, warnings []Error

	if !isValidResourceType(resource.Type) {
		errs = append(errs, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, Error{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for prop := range resource.Properties {
		props = append(props, prop)
	}
	sort.Strings(props)

	for _, prop := range props {
		propSchema, ok := schema.Properties[prop]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Error{
					Resource: name,
					Property: prop,
					Message:  fmt.Sprintf("unknown property: %s", prop),
				})
			}
			continue
		}
		errs = append(errs, validateProperty(name, prop, resource.Properties[prop], propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks the AWS::Service::Resource or Custom::* form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	return len(parts) == 3 && parts[0] == "AWS"
}

func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	var errs []Error

	if !isValidType(value, schema.Type) {
		errs = append(errs, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
	}

	if len(schema.AllowedValues) > 0 {
		if s, ok := value.(string); ok && !contains(schema.AllowedValues, s) {
			errs = append(errs, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", s, schema.AllowedValues),
			})
		}
	}

	if schema.Min > 0 || schema.Max > 0 {
		if n, ok := number(value); ok && (n < schema.Min || (schema.Max > 0 && n > schema.Max)) {
			errs = append(errs, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %v out of range [%v, %v]", n, schema.Min, schema.Max),
			})
		}
	}

	return errs
}

// isValidType checks if a value matches the expected type. Intrinsic
// functions match every type.
func isValidType(value any, expectedType string) bool {
	if m, ok := value.(map[string]any); ok && len(m) == 1 {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		_, ok := number(value)
		return ok
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	// Min and Max bound numeric values when either is set.
	Min, Max float64
}

var resourceSchemas = map[string]ResourceSchema{
	"AWS::Lambda::EventSourceMapping": {
		Required: []string{"FunctionName"},
		Properties: map[string]PropertySchema{
			"FunctionName":                   {Type: "String"},
			"EventSourceArn":                 {Type: "String"},
			"Queues":                         {Type: "List"},
			"Enabled":                        {Type: "Boolean"},
			"BatchSize":                      {Type: "Integer", Min: 1, Max: 10000},
			"MaximumBatchingWindowInSeconds": {Type: "Integer", Max: 300},
			"FilterCriteria":                 {Type: "Map"},
			"SourceAccessConfigurations":     {Type: "List"},
			"StartingPosition":               {Type: "String", AllowedValues: []string{"TRIM_HORIZON", "LATEST", "AT_TIMESTAMP"}},
		},
	},
	"AWS::Lambda::Function": {
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"Code":         {Type: "Map"},
			"Role":         {Type: "String"},
			"Handler":      {Type: "String"},
			"Runtime":      {Type: "String"},
			"FunctionName": {Type: "String"},
			"Description":  {Type: "String"},
			"MemorySize":   {Type: "Integer", Min: 128, Max: 10240},
			"Timeout":      {Type: "Integer", Min: 1, Max: 900},
			"Environment":  {Type: "Map"},
		},
	},
	"AWS::Logs::LogGroup": {
		Properties: map[string]PropertySchema{
			"LogGroupName":    {Type: "String"},
			"RetentionInDays": {Type: "Integer"},
		},
	},
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": {Type: "Map"},
			"ManagedPolicyArns":        {Type: "List"},
			"Policies":                 {Type: "List"},
			"Path":                     {Type: "String"},
			"RoleName":                 {Type: "String"},
		},
	},
	"AWS::S3::Bucket": {
		Properties: map[string]PropertySchema{
			"BucketName":       {Type: "String"},
			"BucketEncryption": {Type: "Map"},
		},
	},
	"AWS::ApiGateway::RestApi": {
		Properties: map[string]PropertySchema{
			"Name":                  {Type: "String"},
			"EndpointConfiguration": {Type: "Map"},
		},
	},
	"AWS::ApiGateway::Resource": {
		Required: []string{"ParentId", "PathPart", "RestApiId"},
		Properties: map[string]PropertySchema{
			"ParentId":  {Type: "String"},
			"PathPart":  {Type: "String"},
			"RestApiId": {Type: "String"},
		},
	},
}
