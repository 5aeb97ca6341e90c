package logger

import (
	"log/slog"
	"strings"
)

// secretHashPrefix marks an argon2id hash; hashes keep only the parameters.
const secretHashPrefix = "$argon2id$"

// Sensitive key patterns that should be redacted.
// "value" and "payload" cover vault contents.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"credential",
	"auth",
	"value",
	"payload",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); s != "" {
			if r := redactField(a.Key, s); r != s {
				return slog.String(a.Key, r)
			}
		}
		return a
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// redactField returns the loggable form of a string attribute.
// Secret hashes are masked by value; anything else by key name.
func redactField(key, value string) string {
	if value == "" {
		return value
	}
	if strings.HasPrefix(value, secretHashPrefix) {
		return RedactString(value)
	}
	if IsSensitiveKey(key) {
		return redactedValue
	}
	return value
}

// RedactString masks a value that is known to be sensitive. Argon2id
// hashes keep their parameter section so operators can tell them apart.
func RedactString(value string) string {
	if strings.HasPrefix(value, secretHashPrefix) {
		parts := strings.Split(value, "$")
		if len(parts) >= 4 {
			return strings.Join(parts[:4], "$") + "$***"
		}
		return secretHashPrefix + "***"
	}
	if value == "" {
		return value
	}
	return redactedValue
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
