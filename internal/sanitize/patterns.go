package sanitize

import (
	"regexp"
	"strings"
)

var (
	// Card-like runs: 6 leading digits, 2-9 middle groups of digits or mask characters,
	// then 4 trailing digits. Spaces and hyphens may separate digits.
	cardPattern = regexp.MustCompile(`\b((?:\d[ -]?){6})(?:(?:[Xx\- ]{1,6}|\d[ -]?){2,9})([ -]?\d{4})\b`)
	ssnPattern  = regexp.MustCompile(`\b(\d{3}|X{3})[- ]?(\d{2}|X{2})[- ]?(\d{4})\b`)
)

const maskedCardLen = 16

// MaskPatterns masks card numbers (first 6 and last 4 digits kept, 16 characters total)
// and SSNs (always XXX-XX- plus the last 4 digits). It is idempotent.
func MaskPatterns(text string) string {
	return MaskSSNs(MaskCards(text))
}

func MaskCards(text string) string {
	idx := cardPattern.FindAllStringSubmatchIndex(text, -1)
	if idx == nil {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, m := range idx {
		first := digitsOnly(text[m[2]:m[3]])
		if len(first) > 6 {
			first = first[:6]
		}
		last := digitsOnly(text[m[4]:m[5]])
		if len(last) > 4 {
			last = last[len(last)-4:]
		}
		pad := maskedCardLen - len(first) - len(last)
		if pad < 0 {
			pad = 0
		}
		b.WriteString(text[prev:m[0]])
		b.WriteString(first)
		b.WriteString(strings.Repeat("X", pad))
		b.WriteString(last)
		prev = m[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

func MaskSSNs(text string) string {
	return ssnPattern.ReplaceAllString(text, "XXX-XX-${3}")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
