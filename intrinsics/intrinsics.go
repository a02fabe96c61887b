// Package intrinsics provides the CloudFormation intrinsic functions used by
// compiled service templates.
//
// The core types are re-exported from cloudformation-schema-go:
//
//	Ref{"ApiGatewayRestApi"} → {"Ref": "ApiGatewayRestApi"}
//	GetAtt{"ConsumerLambdaFunction", "Arn"} → {"Fn::GetAtt": ["ConsumerLambdaFunction", "Arn"]}
//	Sub{"arn:${AWS::Partition}:logs:..."} → {"Fn::Sub": "arn:${AWS::Partition}:logs:..."}
//	Join{"-", []any{"orders", "dev", "lambda"}} → {"Fn::Join": ["-", ["orders", "dev", "lambda"]]}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join
)

// Json is a shorthand for map[string]any.
// Used for inline JSON objects like Condition blocks.
type Json = map[string]any

// Arn returns the GetAtt reference to a resource's Arn attribute.
func Arn(logicalID string) GetAtt {
	return GetAtt{LogicalName: logicalID, Attribute: "Arn"}
}

// RefTo returns a Ref to the given logical ID.
func RefTo(logicalID string) Ref {
	return Ref{LogicalName: logicalID}
}
