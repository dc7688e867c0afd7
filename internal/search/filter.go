package search

import (
	"strconv"
	"strings"
)

// Quote renders value as a filter string literal.
func Quote(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for _, r := range value {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Eq renders `attribute = "value"`.
func Eq(attribute, value string) string {
	return attribute + " = " + Quote(value)
}

// In renders `attribute IN ["a", "b"]`. A single value is rendered with Eq.
func In(attribute string, values []string) string {
	if len(values) == 1 {
		return Eq(attribute, values[0])
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return attribute + " IN [" + strings.Join(quoted, ", ") + "]"
}

// Gte renders `attribute >= value`.
func Gte(attribute string, value int64) string {
	return attribute + " >= " + strconv.FormatInt(value, 10)
}

// Lt renders `attribute < value`.
func Lt(attribute string, value int64) string {
	return attribute + " < " + strconv.FormatInt(value, 10)
}

// And joins the non-empty expressions with AND.
func And(expressions ...string) string {
	parts := make([]string, 0, len(expressions))
	for _, e := range expressions {
		if e == "" {
			continue
		}
		if strings.Contains(e, " OR ") {
			e = "(" + e + ")"
		}
		parts = append(parts, e)
	}
	return strings.Join(parts, " AND ")
}
