package template

import (
	"fmt"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/compile"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
	"github.com/lex00/wetwire-serverless-go/internal/serialize"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

type lambdaFunction struct {
	Code         lambdaCode   `json:"Code"`
	Handler      string       `json:"Handler"`
	Runtime      string       `json:"Runtime"`
	FunctionName string       `json:"FunctionName"`
	Description  string       `json:"Description,omitempty"`
	MemorySize   int          `json:"MemorySize"`
	Timeout      int          `json:"Timeout"`
	Role         any          `json:"Role"`
	Environment  *environment `json:"Environment,omitempty"`
}

type lambdaCode struct {
	S3Bucket any    `json:"S3Bucket"`
	S3Key    string `json:"S3Key"`
}

type environment struct {
	Variables map[string]any `json:"Variables"`
}

// Core returns the base template for def: the deployment bucket, the
// execution role skeleton, and one log group and Lambda function per
// declared function. Event compilers build on top of it. Two functions
// whose names normalize to the same logical ID are an invariant violation.
func Core(def *service.Definition) (*wetwire.Template, error) {
	t := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              "The AWS CloudFormation template for this Serverless application",
		Resources: map[string]wetwire.ResourceDef{
			naming.DeploymentBucketLogicalID: deploymentBucket(),
			naming.RoleLogicalID:             executionRole(def),
		},
		Outputs: map[string]wetwire.Output{
			"ServerlessDeploymentBucketName": {
				Value:  intrinsics.RefTo(naming.DeploymentBucketLogicalID),
				Export: exportName("sls-" + def.StackName() + "-ServerlessDeploymentBucketName"),
			},
		},
	}

	owners := make(map[string]string, len(def.Functions))
	for _, fn := range def.Functions {
		functionID := naming.FunctionLogicalID(fn.Name)
		if prev, ok := owners[functionID]; ok {
			return nil, &compile.InvariantError{
				LogicalID: functionID,
				Err:       fmt.Errorf("%w: functions %q and %q", compile.ErrDuplicateLogicalID, prev, fn.Name),
			}
		}
		owners[functionID] = fn.Name

		logGroupID := naming.LogGroupLogicalID(fn.Name)
		t.Resources[logGroupID] = wetwire.ResourceDef{
			Type: "AWS::Logs::LogGroup",
			Properties: map[string]any{
				"LogGroupName": "/aws/lambda/" + def.FunctionName(fn),
			},
		}

		props, err := serialize.Properties(lambdaFunction{
			Code: lambdaCode{
				S3Bucket: intrinsics.RefTo(naming.DeploymentBucketLogicalID),
				S3Key:    "serverless/" + def.Service + "/" + def.Provider.Stage + "/" + fn.Name + ".zip",
			},
			Handler:      fn.Handler,
			Runtime:      def.RuntimeOf(fn),
			FunctionName: def.FunctionName(fn),
			Description:  fn.Description,
			MemorySize:   def.MemorySizeOf(fn),
			Timeout:      def.TimeoutOf(fn),
			Role:         intrinsics.Arn(naming.RoleLogicalID),
			Environment:  mergeEnvironment(def.Provider.Environment, fn.Environment),
		})
		if err != nil {
			return nil, err
		}

		t.Resources[functionID] = wetwire.ResourceDef{
			Type:       "AWS::Lambda::Function",
			Properties: props,
			DependsOn:  []string{logGroupID, naming.RoleLogicalID},
		}
	}
	return t, nil
}

func deploymentBucket() wetwire.ResourceDef {
	return wetwire.ResourceDef{
		Type: "AWS::S3::Bucket",
		Properties: map[string]any{
			"BucketEncryption": map[string]any{
				"ServerSideEncryptionConfiguration": []any{
					map[string]any{"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "AES256"}},
				},
			},
		},
	}
}

// executionRole is the role skeleton: a lambda.amazonaws.com trust
// statement, one inline policy with no statements and no managed policies.
func executionRole(def *service.Definition) wetwire.ResourceDef {
	return wetwire.ResourceDef{
		Type: "AWS::IAM::Role",
		Properties: map[string]any{
			"AssumeRolePolicyDocument": map[string]any{
				"Version": intrinsics.PolicyVersion,
				"Statement": []any{
					map[string]any{
						"Effect":    "Allow",
						"Principal": map[string]any{"Service": []any{"lambda.amazonaws.com"}},
						"Action":    []any{"sts:AssumeRole"},
					},
				},
			},
			"Policies": []any{
				map[string]any{
					"PolicyName": intrinsics.Join{Delimiter: "-", Values: []any{def.Service, def.Provider.Stage, "lambda"}},
					"PolicyDocument": map[string]any{
						"Version":   intrinsics.PolicyVersion,
						"Statement": []any{},
					},
				},
			},
			"ManagedPolicyArns": []any{},
			"Path":              "/",
			"RoleName":          def.ExecutionRoleName(),
		},
	}
}

func mergeEnvironment(provider, function map[string]any) *environment {
	if len(provider) == 0 && len(function) == 0 {
		return nil
	}
	vars := make(map[string]any, len(provider)+len(function))
	for k, v := range provider {
		vars[k] = v
	}
	for k, v := range function {
		vars[k] = v
	}
	return &environment{Variables: vars}
}

func exportName(name string) *struct {
	Name string `json:"Name" yaml:"Name"`
} {
	return &struct {
		Name string `json:"Name" yaml:"Name"`
	}{Name: name}
}
