package prefs

import "strings"

// Format substitutes {name} placeholders from vars. "{{" and "}}" are literal
// braces. A placeholder missing from vars is rendered as "{?name}" so the
// gap stays visible; an unterminated "{" is copied as-is.
func Format(pattern string, vars map[string]string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '{' && i+1 < len(pattern) && pattern[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(pattern) && pattern[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(pattern[i+1:], '}')
			if end < 0 {
				b.WriteString(pattern[i:])
				return b.String()
			}
			name := pattern[i+1 : i+1+end]
			if v, ok := vars[name]; ok {
				b.WriteString(v)
			} else {
				b.WriteString("{?" + name + "}")
			}
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Placeholders lists the distinct placeholder names used in pattern.
func Placeholders(pattern string) []string {
	var names []string
	seen := map[string]bool{}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '{' {
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(pattern[i+1:], '}')
		if end < 0 {
			break
		}
		name := pattern[i+1 : i+1+end]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i += end + 1
	}
	return names
}
