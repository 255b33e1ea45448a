// Package remote submits configuration runs to a PBS-style batch scheduler and reads back job states.
package remote

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches "%=%=" (a literal "%="), "%=name", "%={name}" and any other "%=" as invalid.
var placeholderPattern = regexp.MustCompile(`%=(?:(%=)|([_A-Za-z][_A-Za-z0-9]*)|\{([_A-Za-z][_A-Za-z0-9]*)\}|())`)

// RenderTemplate replaces every %=name and %={name} placeholder in text with values[name].
// A placeholder with no value, or a "%=" not followed by a name, is an error.
func RenderTemplate(text string, values map[string]string) (string, error) {
	var (
		out  strings.Builder
		last int
	)
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(text, -1) {
		out.WriteString(text[last:m[0]])
		last = m[1]

		switch {
		case m[2] >= 0:
			out.WriteString("%=")
		case m[4] >= 0 || m[6] >= 0:
			name := group(text, m, 2)
			if name == "" {
				name = group(text, m, 3)
			}
			value, ok := values[name]
			if !ok {
				return "", fmt.Errorf("template placeholder '%s' has no value", name)
			}
			out.WriteString(value)
		default:
			line := strings.Count(text[:m[0]], "\n") + 1
			return "", fmt.Errorf("invalid placeholder on line %d", line)
		}
	}
	out.WriteString(text[last:])
	return out.String(), nil
}

func group(text string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}
