// Package template renders alert title and message templates.
//
// Templates reference variables as ${name}. Rendering is a single
// left-to-right pass: each placeholder is resolved independently against the
// variable set, a missing variable renders as an empty string, and a "${"
// without a closing "}" is left in the output verbatim. There is no escaping
// and no nested substitution.
package template

import "strings"

// Render substitutes ${name} placeholders in tmpl with values from vars.
func Render(tmpl string, vars Variables) string {
	if strings.TrimSpace(tmpl) == "" {
		return ""
	}

	lookup := vars.lookup()

	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		start := strings.Index(tmpl[i:], "${")
		if start < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		start += i
		b.WriteString(tmpl[i:start])

		end := strings.IndexByte(tmpl[start+2:], '}')
		if end < 0 {
			// Unterminated placeholder, keep the rest as-is.
			b.WriteString(tmpl[start:])
			break
		}
		name := tmpl[start+2 : start+2+end]
		b.WriteString(lookup[name])
		i = start + 2 + end + 1
	}

	return b.String()
}
