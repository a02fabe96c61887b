package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lex00/wetwire-serverless-go/intrinsics"
)

func stmt(effect string, action, resource any) intrinsics.PolicyStatement {
	return intrinsics.PolicyStatement{Effect: effect, Action: action, Resource: resource}
}

func notStmt(effect string, notAction, resource any) intrinsics.PolicyStatement {
	return intrinsics.PolicyStatement{Effect: effect, NotAction: notAction, Resource: resource}
}

func TestMergeStatements_SameGroup(t *testing.T) {
	in := []intrinsics.PolicyStatement{
		stmt("a", "a", "a"),
		stmt("a", "a", "b"),
	}

	out := MergeStatements(in)

	assert.Equal(t, []intrinsics.PolicyStatement{
		stmt("a", "a", []any{"a", "b"}),
	}, out)
}

func TestMergeStatements_NotActionGroups(t *testing.T) {
	in := []intrinsics.PolicyStatement{
		notStmt("a", "a", "a"),
		notStmt("a", "a", "b"),
		stmt("b", "b", "a"),
		stmt("b", "b", "b"),
	}

	out := MergeStatements(in)

	assert.Equal(t, []intrinsics.PolicyStatement{
		notStmt("a", "a", []any{"a", "b"}),
		stmt("b", "b", []any{"a", "b"}),
	}, out)
}

func TestMergeStatements_ScalarCollapse(t *testing.T) {
	in := []intrinsics.PolicyStatement{
		stmt("a", []any{"a", "b"}, "a"),
		stmt("b", []any{"a", "b"}, []any{}),
		stmt("a", []any{"b", "a"}, []any{"c", "b"}),
		stmt("b", []any{"a", "b"}, []any{"b"}),
	}

	out := MergeStatements(in)

	assert.Equal(t, []intrinsics.PolicyStatement{
		stmt("a", []any{"a", "b"}, []any{"a", "c", "b"}),
		stmt("b", []any{"a", "b"}, "b"),
	}, out)
}

func TestMergeStatements_ActionAndNotActionDiffer(t *testing.T) {
	in := []intrinsics.PolicyStatement{
		stmt("Allow", "s3:GetObject", "x"),
		notStmt("Allow", "s3:GetObject", "y"),
	}

	assert.Len(t, MergeStatements(in), 2)
}

func TestMergeStatements_ScalarActionDiffersFromSingletonList(t *testing.T) {
	in := []intrinsics.PolicyStatement{
		stmt("Allow", "s3:GetObject", "x"),
		stmt("Allow", []any{"s3:GetObject"}, "y"),
	}

	assert.Len(t, MergeStatements(in), 2)
}

func TestMergeStatements_IntrinsicResources(t *testing.T) {
	arn := intrinsics.Arn("ConsumerLambdaFunction")
	in := []intrinsics.PolicyStatement{
		stmt("Allow", []any{"lambda:InvokeFunction"}, arn),
		stmt("Allow", []any{"lambda:InvokeFunction"}, []any{"*", arn}),
	}

	out := MergeStatements(in)

	assert.Equal(t, []any{arn, "*", arn}, out[0].Resource)
}

func TestMergeStatements_ConditionSplitsGroups(t *testing.T) {
	cond := intrinsics.Json{"StringEquals": map[string]any{"aws:RequestedRegion": "us-east-1"}}
	withCond := stmt("Allow", "ec2:*", "a")
	withCond.Condition = cond

	out := MergeStatements([]intrinsics.PolicyStatement{
		stmt("Allow", "ec2:*", "b"),
		withCond,
	})

	assert.Len(t, out, 2)
	assert.Equal(t, cond, out[1].Condition)
}

func TestMergeStatements_IdenticalConditionsMerge(t *testing.T) {
	cond := intrinsics.Json{"Bool": map[string]any{"aws:SecureTransport": "true"}}
	first := stmt("Allow", "s3:GetObject", "a")
	first.Condition = cond
	second := stmt("Allow", "s3:GetObject", "b")
	second.Condition = intrinsics.Json{"Bool": map[string]any{"aws:SecureTransport": "true"}}

	out := MergeStatements([]intrinsics.PolicyStatement{first, second})

	assert.Len(t, out, 1)
	assert.Equal(t, []any{"a", "b"}, out[0].Resource)
	assert.Equal(t, cond, out[0].Condition)
}

func TestMergeStatements_PrincipalIsNotPartOfKey(t *testing.T) {
	first := stmt("Allow", "sqs:SendMessage", "a")
	first.Principal = map[string]any{"Service": "sns.amazonaws.com"}
	second := stmt("Allow", "sqs:SendMessage", "a")
	second.Principal = map[string]any{"Service": "events.amazonaws.com"}

	out := MergeStatements([]intrinsics.PolicyStatement{first, second})

	// the first statement's Principal survives; repeated resources are kept
	assert.Len(t, out, 1)
	assert.Equal(t, first.Principal, out[0].Principal)
	assert.Equal(t, []any{"a", "a"}, out[0].Resource)
}

func TestMergeStatements_UngroupedPassThrough(t *testing.T) {
	malformed := intrinsics.PolicyStatement{Effect: "Allow", Resource: "x"}
	in := []intrinsics.PolicyStatement{malformed, malformed, stmt("Allow", "a", "y")}

	out := MergeStatements(in)

	assert.Equal(t, []intrinsics.PolicyStatement{malformed, malformed, stmt("Allow", "a", "y")}, out)
}

func TestMergeStatements_NoResourceStaysAbsent(t *testing.T) {
	out := MergeStatements([]intrinsics.PolicyStatement{
		{Effect: "Allow", Action: "sts:AssumeRole"},
	})

	assert.Nil(t, out[0].Resource)
}

func TestMergeStatements_Idempotent(t *testing.T) {
	merged := []intrinsics.PolicyStatement{
		stmt("Allow", []any{"logs:CreateLogStream", "logs:CreateLogGroup"}, []any{"a", "b"}),
		stmt("Allow", []any{"logs:PutLogEvents"}, "c"),
		notStmt("Deny", "iam:*", "*"),
	}

	once := MergeStatements(merged)
	twice := MergeStatements(once)

	assert.Equal(t, merged, once)
	assert.Equal(t, once, twice)
}

func TestMergeStatements_Empty(t *testing.T) {
	out := MergeStatements(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestMergePrincipals(t *testing.T) {
	out := MergePrincipals(
		[]any{"lambda.amazonaws.com"},
		[]any{"edgelambda.amazonaws.com", "lambda.amazonaws.com"},
		[]any{"events.amazonaws.com", "edgelambda.amazonaws.com"},
	)

	assert.Equal(t, []any{"lambda.amazonaws.com", "edgelambda.amazonaws.com", "events.amazonaws.com"}, out)
}

func TestMergeManagedPolicies(t *testing.T) {
	sub := intrinsics.Sub{String: "arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaVPCAccessExecutionRole"}

	out := MergeManagedPolicies(
		[]any{"arn:aws:iam::aws:policy/ReadOnlyAccess", sub},
		[]any{intrinsics.Sub{String: sub.String}, "arn:aws:iam::aws:policy/ReadOnlyAccess", "arn:aws:iam::aws:policy/AmazonMQReadOnlyAccess"},
	)

	assert.Equal(t, []any{
		"arn:aws:iam::aws:policy/ReadOnlyAccess",
		sub,
		"arn:aws:iam::aws:policy/AmazonMQReadOnlyAccess",
	}, out)
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()
	assert.True(t, acc.IsEmpty())

	acc.AddPrincipals("lambda.amazonaws.com", "lambda.amazonaws.com")
	acc.AddManagedPolicies("arn:a")
	acc.AddStatements(stmt("Allow", "a", "x"))

	other := &Accumulator{}
	other.AddPrincipals("events.amazonaws.com", "lambda.amazonaws.com")
	other.AddStatements(stmt("Allow", "b", "y"))
	acc.Append(other)

	assert.Equal(t, []any{"lambda.amazonaws.com", "events.amazonaws.com"}, acc.Principals)
	assert.Equal(t, []any{"arn:a"}, acc.ManagedPolicyArns)
	assert.Len(t, acc.Statements, 2)
	assert.False(t, acc.IsEmpty())
}
