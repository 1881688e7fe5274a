package classify

import (
	"regexp"
	"strings"
)

// Classifier decides whether text describes a machine with a discrete
// NVIDIA/AMD GPU. The decision is include AND NOT exclude: any integrated
// or shared-graphics signal vetoes a positive.
type Classifier struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func New() *Classifier {
	// All patterns are word-boundary anchored: "arcade" must not trip the
	// "arc" exclude.
	return &Classifier{
		include: compileAll(
			`\brtx\b`,
			`\bgtx\b`,
			`\bgeforce\b`,
			`\bnvidia\b`,
			`\bradeon\b`,
			`\brx\b`,
			`\bamd\s+radeon\b`,
		),
		exclude: compileAll(
			`\bintel\b.*\buhd\b`,
			`\buhd\s+graphics\b`,
			`\biris\b`,
			`\biris\s+xe\b`,
			`\bintegrated\b`,
			`\buma\b`,
			`\bshared\b`,
			`\barc\b`,
			`\bintel\s+arc\b`,
		),
	}
}

// HasDiscreteGPU reports whether the normalized text names a discrete
// NVIDIA/AMD GPU and no integrated-graphics marker. Pure function, no
// state.
func (c *Classifier) HasDiscreteGPU(text string) bool {
	t := Normalize(text)
	if t == "" {
		return false
	}

	included := false
	for _, re := range c.include {
		if re.MatchString(t) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, re := range c.exclude {
		if re.MatchString(t) {
			return false
		}
	}
	return true
}

// Normalize lowercases and collapses all whitespace runs to single spaces.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
