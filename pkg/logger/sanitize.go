package logger

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// MaskIdentity keeps the first character and replaces the rest with asterisks ("a****")
func MaskIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(identity)
	rest := utf8.RuneCountInString(identity[size:])
	if rest == 0 {
		return "*"
	}
	return string(r) + strings.Repeat("*", rest)
}

// RedactedAttr returns "[REDACTED]" in production and the real value elsewhere
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

var sensitiveParams = []string{
	"password",
	"secret",
	"token",
	"code",
	"username",
	"auth",
}

// SanitizeQueryString reports whether the query string mentions a sensitive parameter
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
