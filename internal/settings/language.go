package settings

import (
	"context"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

var supportedLanguages = map[string]struct{}{
	"en": {},
	"ar": {},
	"fr": {},
}

// SupportedLanguages lists the accepted language codes.
func SupportedLanguages() []string {
	return []string{"en", "ar", "fr"}
}

// NormalizeLanguage trims and lowercases code. Unsupported codes fall back to
// the default language with a warning; they are never an error.
func NormalizeLanguage(ctx context.Context, code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if _, ok := supportedLanguages[normalized]; ok {
		return normalized
	}
	applog.For(applog.ComponentSettings).WarnContext(ctx, "Unsupported language, falling back to default",
		"language", code,
		"fallback", core.DefaultLanguage)
	return core.DefaultLanguage
}
