package keycheck

import "regexp"

// Per-provider API key shapes. These are format checks only; nothing here
// proves a key is live or authorized.
var patterns = map[string]*regexp.Regexp{
	"openai":    regexp.MustCompile(`^sk-[A-Za-z0-9]{20,}$`),
	"anthropic": regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{24,}$`),
	"gemini":    regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),
}

// Valid reports whether key matches the expected format for provider.
// Unknown providers are always invalid.
func Valid(provider, key string) bool {
	re, ok := patterns[provider]
	if !ok {
		return false
	}
	return re.MatchString(key)
}

// Providers lists the provider names with a known key format.
func Providers() []string {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	return names
}
