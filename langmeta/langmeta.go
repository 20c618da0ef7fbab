// Package langmeta provides language metadata (native names and emoji
// flags) for locale tags shown in the CLI.
package langmeta

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

func parse(lang string) (language.Tag, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return language.Und, fmt.Errorf("empty locale tag")
	}
	return language.Parse(normalized)
}

// Canonicalize validates a locale tag and returns its canonical BCP 47
// form, e.g. "pt_br" -> "pt-BR".
func Canonicalize(lang string) (string, error) {
	tag, err := parse(lang)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", lang, err)
	}
	return tag.String(), nil
}

// Resolve returns best-effort metadata for a locale tag. The name is the
// language's own name for itself; the flag comes from the explicit or
// most likely region. Unknown tags resolve to their own text and no flag.
func Resolve(lang string) Meta {
	tag, err := parse(lang)
	if err != nil {
		return Meta{Name: lang}
	}

	name := display.Self.Name(tag)
	if name == "" {
		name = lang
	}

	flag := ""
	if region, conf := tag.Region(); conf != language.No {
		flag = FlagFromRegion(region.String())
	}
	return Meta{Name: name, Flag: flag}
}

// FlagFromRegion converts a two-letter region code to its emoji flag.
// Anything else (numeric regions like "419", three letters) has no flag.
func FlagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var b strings.Builder
	for _, c := range region {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
