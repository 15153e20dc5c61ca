// Package template implements the placeholder dialect used by the
// notification templates: {{name}} substitution and non-nesting
// {{#if name}}...{{/if}} blocks. Values are emitted verbatim; callers
// supply pre-sanitized content, no HTML escaping happens here.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNestedConditional is returned when an {{#if}} opens inside an
	// already-open block. Nesting is unsupported and fails closed.
	ErrNestedConditional = fmt.Errorf("nested {{#if}} blocks are not supported")

	// ErrUnclosedConditional is returned when an {{#if}} never closes.
	ErrUnclosedConditional = fmt.Errorf("unclosed {{#if}} block")
)

var (
	conditionalRe = regexp.MustCompile(`(?s)\{\{#if\s+([A-Za-z0-9_]+)\s*\}\}(.*?)\{\{/if\}\}`)
	placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	openerRe      = regexp.MustCompile(`\{\{#if\b`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// Render expands tpl against vars. Absent or nil variables become the
// empty string, never the literal placeholder. Conditional blocks keep
// their content only when the variable is truthy (present and not
// false, "false", "0" or empty).
func Render(tpl string, vars map[string]interface{}) (string, error) {
	out, err := expandConditionals(tpl, vars)
	if err != nil {
		return "", err
	}

	out = placeholderRe.ReplaceAllStringFunc(out, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return stringify(vars[name])
	})

	// Block removal leaves runs of blank lines behind; collapse them to
	// a single blank line.
	out = blankRunRe.ReplaceAllString(out, "\n\n")

	return out, nil
}

func expandConditionals(tpl string, vars map[string]interface{}) (string, error) {
	var sb strings.Builder
	rest := tpl
	for {
		loc := conditionalRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		name := rest[loc[2]:loc[3]]
		body := rest[loc[4]:loc[5]]

		if openerRe.MatchString(body) {
			return "", ErrNestedConditional
		}

		sb.WriteString(rest[:loc[0]])
		if truthy(vars, name) {
			sb.WriteString(body)
		}
		rest = rest[loc[1]:]
	}

	if openerRe.MatchString(rest) {
		return "", ErrUnclosedConditional
	}

	sb.WriteString(rest)
	return sb.String(), nil
}

func truthy(vars map[string]interface{}, name string) bool {
	v, ok := vars[name]
	if !ok || v == nil {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	switch stringify(v) {
	case "", "false", "0":
		return false
	}
	return true
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
