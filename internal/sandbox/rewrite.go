package sandbox

import (
	"strings"
)

// testCalls are the registrations that get an implicit await.
var testCalls = []string{"insomnia.test.skip(", "insomnia.test("}

// regexPrecedingWords are keywords after which a slash starts a regex literal.
var regexPrecedingWords = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "of": true, "new": true, "delete": true, "void": true,
	"throw": true, "instanceof": true, "yield": true, "await": true,
}

// awaitTestCalls prefixes insomnia.test( and insomnia.test.skip( call sites
// with await so scripts need not write it. Occurrences inside string,
// template or regex literals and comments are left alone, as are calls that
// are already awaited or that are a member of something else.
func awaitTestCalls(script string) string {
	var (
		out strings.Builder
		// Brace depth per open template substitution.
		templates []int
		depth     int
		// Last significant token, used to tell regex literals from division.
		lastWord  string
		lastPunct byte
	)
	out.Grow(len(script) + 64)

	n := len(script)
	for i := 0; i < n; {
		c := script[i]
		switch {
		case c == '/' && i+1 < n && script[i+1] == '/':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = n - i
			}
			out.WriteString(script[i : i+end])
			i += end
			continue

		case c == '/' && i+1 < n && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				end = n - i
			} else {
				end += 4
			}
			out.WriteString(script[i : i+end])
			i += end
			continue

		case c == '\'' || c == '"':
			end := skipQuoted(script, i)
			out.WriteString(script[i:end])
			i = end
			lastWord, lastPunct = "", c
			continue

		case c == '`':
			end, open := skipTemplate(script, i+1)
			out.WriteString(script[i:end])
			i = end
			if open {
				templates = append(templates, depth)
				depth++
				lastWord, lastPunct = "", '{'
			} else {
				lastWord, lastPunct = "", c
			}
			continue

		case c == '/' && regexAllowed(lastWord, lastPunct):
			end := skipRegex(script, i)
			out.WriteString(script[i:end])
			i = end
			lastWord, lastPunct = "", '/'
			continue

		case c == '{':
			depth++

		case c == '}':
			depth--
			if k := len(templates); k > 0 && templates[k-1] == depth {
				// Back inside the template text.
				templates = templates[:k-1]
				end, open := skipTemplate(script, i+1)
				out.WriteString(script[i:end])
				i = end
				if open {
					templates = append(templates, depth)
					depth++
					lastWord, lastPunct = "", '{'
				} else {
					lastWord, lastPunct = "", '`'
				}
				continue
			}

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(script[i]) {
				i++
			}
			if call := matchTestCall(script, start); call != "" && !memberAccess(script, start) && lastWord != "await" {
				out.WriteString("await ")
				out.WriteString(call)
				i = start + len(call)
				lastWord, lastPunct = "", '('
				continue
			}
			out.WriteString(script[start:i])
			lastWord, lastPunct = script[start:i], 0
			continue
		}

		out.WriteByte(c)
		if !isSpace(c) {
			lastWord, lastPunct = "", c
		}
		i++
	}
	return out.String()
}

func matchTestCall(script string, at int) string {
	for _, call := range testCalls {
		if strings.HasPrefix(script[at:], call) {
			return call
		}
	}
	return ""
}

// memberAccess reports whether the identifier at i follows a dot.
func memberAccess(script string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if isSpace(script[j]) {
			continue
		}
		return script[j] == '.' && (j == 0 || script[j-1] != '.')
	}
	return false
}

func regexAllowed(lastWord string, lastPunct byte) bool {
	if lastWord != "" {
		return regexPrecedingWords[lastWord]
	}
	if isIdentPart(lastPunct) {
		// Numeric literal.
		return false
	}
	switch lastPunct {
	case ')', ']', '}', '\'', '"', '`':
		return false
	}
	return true
}

func skipQuoted(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote, '\n':
			return j + 1
		}
	}
	return len(s)
}

// skipTemplate scans template text from i. It returns the index after the
// closing backtick, or after "${" with open set.
func skipTemplate(s string, i int) (end int, open bool) {
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '`':
			return j + 1, false
		case '$':
			if j+1 < len(s) && s[j+1] == '{' {
				return j + 2, true
			}
		}
	}
	return len(s), false
}

func skipRegex(s string, i int) int {
	inClass := false
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return j
		case '/':
			if !inClass {
				j++
				for j < len(s) && isIdentPart(s[j]) {
					j++
				}
				return j
			}
		}
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
