// Package naming derives the deterministic CloudFormation logical IDs used
// by the compiled template.
//
// Every compiler names its resources through this package so that two
// compilers can never collide on a logical ID.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// RoleLogicalID is the shared execution role assumed by every function.
	RoleLogicalID = "IamRoleLambdaExecution"

	// RestApiLogicalID is the REST API that owns every path resource.
	RestApiLogicalID = "ApiGatewayRestApi"

	// DeploymentBucketLogicalID is the bucket code artifacts are uploaded to.
	DeploymentBucketLogicalID = "ServerlessDeploymentBucket"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^0-9A-Za-z]`)
	capture         = regexp.MustCompile(`\{(.*)\}`)
)

// NormalizeName upper-cases the first letter of name.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NormalizeAlphanumeric spells out dashes and underscores, strips every
// other non-alphanumeric character, then applies NormalizeName.
//
//	"order-consumer" → "OrderDashconsumer"
//	"order_consumer" → "OrderUnderscoreconsumer"
func NormalizeAlphanumeric(name string) string {
	name = strings.ReplaceAll(name, "-", "Dash")
	name = strings.ReplaceAll(name, "_", "Underscore")
	return NormalizeName(nonAlphanumeric.ReplaceAllString(name, ""))
}

// FunctionLogicalID returns the logical ID of a function's Lambda resource.
func FunctionLogicalID(function string) string {
	return NormalizeAlphanumeric(function) + "LambdaFunction"
}

// LogGroupLogicalID returns the logical ID of a function's log group.
func LogGroupLogicalID(function string) string {
	return NormalizeAlphanumeric(function) + "LogGroup"
}

// EventLogicalID returns the logical ID of the ordinal-th (1-based) event of
// the given kind on a function.
func EventLogicalID(function, kind string, ordinal int) string {
	return fmt.Sprintf("%s%s%d", NormalizeAlphanumeric(function), kind, ordinal)
}

// NormalizePathPart renders one HTTP path segment for use in a logical ID.
// Captures become "<Name>Var", so "{proxy+}" yields "ProxyVar".
func NormalizePathPart(segment string) string {
	segment = strings.ReplaceAll(segment, "-", "Dash")
	segment = capture.ReplaceAllString(segment, "${1}Var")
	return NormalizeName(nonAlphanumeric.ReplaceAllString(segment, ""))
}

// PathResourceLogicalID returns the logical ID of the path resource for the
// given segment sequence.
func PathResourceLogicalID(segments []string) string {
	var b strings.Builder
	b.WriteString("ApiGatewayResource")
	for _, s := range segments {
		b.WriteString(NormalizePathPart(s))
	}
	return b.String()
}
