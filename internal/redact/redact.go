// Package redact scrubs credentials from text before it is written to the
// audit log or sent to a classifier backend. Checker diagnostics and user
// prompts routinely echo environment files, connection strings and keys.
package redact

import (
	"regexp"
	"strings"
)

var sensitivePatterns = []*regexp.Regexp{
	// LLM providers
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-(proj-|svcacct-)?[A-Za-z0-9_-]{32,}`),

	// AWS
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{40,}`),

	// Generic API keys
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),

	// Private keys
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),

	// Credentials in URLs and DSNs
	regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^:/\s]+:[^@\s]+@`),

	// Slack tokens
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),

	// Stripe
	regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`),

	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every credential-shaped substring with a placeholder.
func Redact(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

var sensitiveEnvNames = []string{
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"GITHUB_PAT",
	"API_KEY",
	"SECRET",
	"TOKEN",
	"PASSWORD",
	"PASSWD",
	"DATABASE_URL",
	"REDIS_URL",
	"MONGO_URL",
}

// EnvVars redacts the values of NAME=value pairs whose name looks
// sensitive.
func EnvVars(envVars []string) []string {
	result := make([]string, 0, len(envVars))
	for _, env := range envVars {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			result = append(result, env)
			continue
		}
		if IsSensitiveName(name) {
			result = append(result, name+"="+redactedPlaceholder)
		} else {
			result = append(result, env)
		}
	}
	return result
}

// IsSensitiveName reports whether an environment variable name suggests a
// credential.
func IsSensitiveName(name string) bool {
	upper := strings.ToUpper(name)
	for _, s := range sensitiveEnvNames {
		if strings.Contains(upper, s) {
			return true
		}
	}
	return false
}
