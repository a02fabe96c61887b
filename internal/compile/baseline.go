package compile

import (
	"github.com/lex00/wetwire-serverless-go/internal/iam"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

// ProviderBaseline returns the provider-level IAM contributions: log write
// access to the service's log groups, then provider.iam.role.
func ProviderBaseline(def *service.Definition) *iam.Accumulator {
	acc := iam.NewAccumulator()

	if len(def.Functions) > 0 {
		prefix := "arn:${AWS::Partition}:logs:${AWS::Region}:${AWS::AccountId}:log-group:/aws/lambda/" + def.StackName() + "*"
		acc.AddStatements(
			intrinsics.Allow(
				[]any{"logs:CreateLogStream", "logs:CreateLogGroup", "logs:TagResource"},
				[]any{intrinsics.Sub{String: prefix + ":*"}},
			),
			intrinsics.Allow(
				[]any{"logs:PutLogEvents"},
				[]any{intrinsics.Sub{String: prefix + ":*:*"}},
			),
		)
	}

	role := def.Provider.IAM.Role
	acc.AddPrincipals(role.Principals...)
	acc.AddManagedPolicies(role.ManagedPolicies...)
	acc.AddStatements(role.Statements...)
	return acc
}

// FunctionContributions returns the IAM declared directly on functions, in
// function declaration order.
func FunctionContributions(def *service.Definition) *iam.Accumulator {
	acc := iam.NewAccumulator()
	for _, fn := range def.Functions {
		if fn.IAM == nil {
			continue
		}
		acc.AddPrincipals(fn.IAM.Principals...)
		acc.AddManagedPolicies(fn.IAM.ManagedPolicies...)
		acc.AddStatements(fn.IAM.Statements...)
	}
	return acc
}
