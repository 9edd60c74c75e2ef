package cache

import "strings"

// GenerateKey joins the non-empty parts with ':', e.g. ("historical", "1mo") → "historical:1mo".
func GenerateKey(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}
