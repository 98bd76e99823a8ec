package version

import (
	"regexp"
	"strings"
)

var (
	fuzzyVersion      = regexp.MustCompile(`(?s)^(\d+)(\.(\d+)(\.(\d+))?)?([^a-zA-Z0-9](.*))?$`)
	fuzzyVersionRange = regexp.MustCompile(`(?s)^(\(|\[)\s*([-\da-zA-Z.]+)\s*,\s*([-\da-zA-Z.]+)\s*(\]|\))$`)
	fuzzyModifier     = regexp.MustCompile(`(?s)^(\d+[.-])*(.*)$`)
)

// Cleanup turns a loosely formatted version or range into the strict
// syntax where it can. Input that cannot be repaired is returned as is.
//
//	"1"          -> "1.0.0"
//	"01.2-beta"  -> "1.2.0.beta"
//	"[1.0,2)"    -> "[1.0,2)"
//	"[1,2.x)"    -> "[1.0.0,2.0.0.x)"
func Cleanup(raw string) string {
	value := strings.TrimSpace(raw)
	if IsRange(value) {
		return value
	}
	if m := fuzzyVersionRange.FindStringSubmatch(value); m != nil {
		return m[1] + Cleanup(m[2]) + "," + Cleanup(m[3]) + m[4]
	}
	m := fuzzyVersion.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	major := dropLeadingZeroes(m[1])
	minor := dropLeadingZeroes(m[3])
	micro := dropLeadingZeroes(m[5])
	var b strings.Builder
	b.WriteString(major)
	b.WriteByte('.')
	b.WriteString(minor)
	b.WriteByte('.')
	b.WriteString(micro)
	if m[6] != "" {
		if q := cleanModifier(m[7]); q != "" {
			b.WriteByte('.')
			b.WriteString(q)
		}
	}
	return b.String()
}

func dropLeadingZeroes(group string) string {
	if group == "" {
		return "0"
	}
	n := 0
	for n < len(group)-1 && group[n] == '0' {
		n++
	}
	return group[n:]
}

func cleanModifier(modifier string) string {
	if m := fuzzyModifier.FindStringSubmatch(modifier); m != nil {
		modifier = m[2]
	}
	var b strings.Builder
	for _, c := range modifier {
		if isQualifierRune(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// SanitizeQualifier replaces every rune that is not legal in a qualifier
// with an underscore.
func SanitizeQualifier(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if isQualifierRune(c) {
			b.WriteRune(c)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func isQualifierRune(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '-'
}
