package logger

import (
	"log/slog"
	"testing"
)

func TestRedact_SensitiveKeys(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			l, buf := newJSONLogger(t, backend)
			l.Info("write",
				"key", "color",
				"value", "blue",
				"payload", "color blue",
				"secret", "hunter2",
				"user", "3",
			)

			entry := decodeEntry(t, buf)
			for _, k := range []string{"value", "payload", "secret"} {
				if entry[k] != redactedValue {
					t.Errorf("%s = %v, want redacted", k, entry[k])
				}
			}
			if entry["key"] != "color" {
				t.Errorf("key = %v, want color", entry["key"])
			}
			if entry["user"] != "3" {
				t.Errorf("user = %v, want 3", entry["user"])
			}
		})
	}
}

func TestRedact_SecretHashValue(t *testing.T) {
	hash := "$argon2id$v=19$m=16384,t=2,p=2$c2FsdHNhbHQ$aGFzaGhhc2g"

	l, buf := newJSONLogger(t, BackendSlog)
	l.Info("principal loaded", "hash", hash)

	want := "$argon2id$v=19$m=16384,t=2,p=2$***"
	if got := decodeEntry(t, buf)["hash"]; got != want {
		t.Errorf("hash = %v, want %q", got, want)
	}
}

func TestRedact_Group(t *testing.T) {
	l, buf := newJSONLogger(t, BackendSlog)
	l.Info("grouped", slog.Group("principal", "name", "alice", "secret", "hunter2"))

	group, ok := decodeEntry(t, buf)["principal"].(map[string]any)
	if !ok {
		t.Fatal("principal group missing")
	}
	if group["name"] != "alice" || group["secret"] != redactedValue {
		t.Errorf("principal = %v", group)
	}
}

func TestRedactString(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"anything":           redactedValue,
		"$argon2id$":         "$argon2id$***",
		"$argon2id$v=19$m=1": "$argon2id$v=19$m=1$***",
	}
	for in, want := range tests {
		if got := RedactString(in); got != want {
			t.Errorf("RedactString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := map[string]bool{
		"password":    true,
		"SecretHash":  true,
		"auth_header": true,
		"value":       true,
		"values":      true,
		"payload":     true,
		"user":        false,
		"key":         false,
		"session_id":  false,
	}
	for key, want := range tests {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}
