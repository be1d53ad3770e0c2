package logging

import (
	"regexp"
)

const (
	// MaxBodyLogLength is the maximum length of a vendor response body to log
	MaxBodyLogLength = 500
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
	// MaskedText stands in for configured secrets in diagnostics output
	MaskedText = "***"
)

var (
	// Bearer credentials in headers or error text (tenant tokens are not JWTs)
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9._\-]+`)

	// JSON credential members as they appear in token requests and responses
	jsonSecretPattern = regexp.MustCompile(`"(app_secret|tenant_access_token|app_access_token|password)"\s*:\s*"[^"]*"`)

	// key=value credentials in query strings or connection strings
	kvSecretPattern = regexp.MustCompile(`(?i)(app_secret|password|token)=[^;&\s]+`)
)

// SanitizeError sanitizes error messages that might contain credentials.
// Use this before logging any error from vendor calls.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText removes bearer tokens and credential values from arbitrary text.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	sanitized := bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	sanitized = jsonSecretPattern.ReplaceAllString(sanitized, `"${1}":"`+RedactedText+`"`)
	sanitized = kvSecretPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return sanitized
}

// SanitizeBody truncates and sanitizes a vendor response body for logging.
func SanitizeBody(body []byte) string {
	return SanitizeText(TruncateString(string(body), MaxBodyLogLength))
}

// MaskSecret reports a configured secret as present without revealing it.
// Empty secrets stay empty so missing configuration remains visible.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return MaskedText
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
