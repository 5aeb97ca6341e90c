package config

import "strings"

// Sanitize returns a copy of cfg that is safe to log. Secret hashes keep
// two characters at each end; cfg itself is not modified.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	if cfg.Identity.Principals == nil {
		return &out
	}
	out.Identity.Principals = append([]PrincipalConfig(nil), cfg.Identity.Principals...)
	for i := range out.Identity.Principals {
		p := &out.Identity.Principals[i]
		if p.SecretHash != "" {
			p.SecretHash = mask(p.SecretHash)
		}
	}
	return &out
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
