package optimizer

import (
	"strings"

	wetwire "github.com/lex00/wetwire-serverless-go"
)

// s3BucketRules contains optimization rules for S3 buckets.
var s3BucketRules = []Rule{
	{
		ID:          "OPT-S3-001",
		Category:    "security",
		Severity:    "high",
		Title:       "Enable S3 bucket encryption",
		Description: "S3 buckets should have server-side encryption enabled to protect data at rest.",
		Suggestion:  "Add BucketEncryption with SSE-S3 or SSE-KMS configuration.",
		Check: func(res wetwire.ResourceDef) bool {
			return !has(res, "BucketEncryption")
		},
	},
	{
		ID:          "OPT-S3-002",
		Category:    "security",
		Severity:    "high",
		Title:       "Block public access",
		Description: "S3 buckets should have PublicAccessBlockConfiguration to prevent accidental public exposure.",
		Suggestion:  "Add PublicAccessBlockConfiguration with BlockPublicAcls, BlockPublicPolicy, IgnorePublicAcls, and RestrictPublicBuckets set to true.",
		Check: func(res wetwire.ResourceDef) bool {
			return !has(res, "PublicAccessBlockConfiguration")
		},
	},
}

// lambdaFunctionRules contains optimization rules for Lambda functions.
var lambdaFunctionRules = []Rule{
	{
		ID:          "OPT-LAM-001",
		Category:    "performance",
		Severity:    "medium",
		Title:       "Review Lambda memory configuration",
		Description: "The function runs with the default 1024 MB. Memory allocation affects CPU allocation and execution speed.",
		Suggestion:  "Set memorySize on the function or provider after measuring the workload.",
		Check: func(res wetwire.ResourceDef) bool {
			n, ok := number(res.Properties["MemorySize"])
			return ok && n == 1024
		},
	},
	{
		ID:          "OPT-LAM-002",
		Category:    "reliability",
		Severity:    "medium",
		Title:       "Consider adding a dead letter queue",
		Description: "A dead letter queue (DLQ) captures failed async invocations for later analysis or retry.",
		Suggestion:  "Add DeadLetterConfig pointing to an SQS queue or SNS topic.",
		Check: func(res wetwire.ResourceDef) bool {
			return !has(res, "DeadLetterConfig")
		},
	},
	{
		ID:          "OPT-LAM-003",
		Category:    "cost",
		Severity:    "low",
		Title:       "Review Lambda timeout setting",
		Description: "The timeout exceeds five minutes. Long timeouts with errors can be costly.",
		Suggestion:  "Set timeout to the expected execution time plus a reasonable buffer.",
		Check: func(res wetwire.ResourceDef) bool {
			n, ok := number(res.Properties["Timeout"])
			return ok && n > 300
		},
	},
}

// logGroupRules contains optimization rules for CloudWatch log groups.
var logGroupRules = []Rule{
	{
		ID:          "OPT-LOG-001",
		Category:    "cost",
		Severity:    "low",
		Title:       "Set a log retention period",
		Description: "Log groups without RetentionInDays keep events forever.",
		Suggestion:  "Add RetentionInDays to the function log group.",
		Check: func(res wetwire.ResourceDef) bool {
			return !has(res, "RetentionInDays")
		},
	},
}

// iamRules contains optimization rules for IAM roles.
var iamRules = []Rule{
	{
		ID:          "OPT-IAM-001",
		Category:    "security",
		Severity:    "high",
		Title:       "Avoid wildcard actions",
		Description: "A policy statement grants every action of a service, or of every service.",
		Suggestion:  "List the specific actions the functions need.",
		Check: func(res wetwire.ResourceDef) bool {
			for _, stmt := range roleStatements(res) {
				for _, action := range stringList(stmt["Action"]) {
					if action == "*" || strings.HasSuffix(action, ":*") {
						return true
					}
				}
			}
			return false
		},
	},
	{
		ID:          "OPT-IAM-002",
		Category:    "security",
		Severity:    "medium",
		Title:       "Scope statement resources",
		Description: "A policy statement applies to every resource. Network interface actions are exempt since their IDs are unknown at deploy time.",
		Suggestion:  "Replace \"*\" with the ARNs the actions operate on.",
		Check: func(res wetwire.ResourceDef) bool {
			for _, stmt := range roleStatements(res) {
				if !contains(stringList(stmt["Resource"]), "*") {
					continue
				}
				for _, action := range stringList(stmt["Action"]) {
					if !strings.HasPrefix(action, "ec2:") {
						return true
					}
				}
			}
			return false
		},
	},
}

// eventSourceMappingRules contains optimization rules for broker mappings.
var eventSourceMappingRules = []Rule{
	{
		ID:          "OPT-ESM-001",
		Category:    "reliability",
		Severity:    "medium",
		Title:       "Event source mapping is disabled",
		Description: "The mapping is deployed but does not poll its queue.",
		Suggestion:  "Remove enabled: false once the consumer is ready.",
		Check: func(res wetwire.ResourceDef) bool {
			enabled, ok := res.Properties["Enabled"].(bool)
			return ok && !enabled
		},
	},
	{
		ID:          "OPT-ESM-002",
		Category:    "performance",
		Severity:    "low",
		Title:       "Batch size without a batching window",
		Description: "A batch size above 10 without MaximumBatchingWindowInSeconds invokes the function as soon as any records arrive.",
		Suggestion:  "Set maximumBatchingWindow so batches can fill.",
		Check: func(res wetwire.ResourceDef) bool {
			n, ok := number(res.Properties["BatchSize"])
			return ok && n > 10 && !has(res, "MaximumBatchingWindowInSeconds")
		},
	},
}

func has(res wetwire.ResourceDef, property string) bool {
	_, ok := res.Properties[property]
	return ok
}

// roleStatements returns the statements of every inline policy of a role.
func roleStatements(res wetwire.ResourceDef) []map[string]any {
	var out []map[string]any
	policies, _ := res.Properties["Policies"].([]any)
	for _, p := range policies {
		policy, _ := p.(map[string]any)
		doc, _ := policy["PolicyDocument"].(map[string]any)
		statements, _ := doc["Statement"].([]any)
		for _, s := range statements {
			if stmt, ok := s.(map[string]any); ok {
				out = append(out, stmt)
			}
		}
	}
	return out
}

// stringList returns the string members of a string-or-list value.
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
