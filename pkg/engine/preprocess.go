package engine

import "strings"

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites Meadow source into something zygomys accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with user variables. Hyphens inside keywords are kept.
//   - kebab-case identifiers become snake_case (check-radius -> check_radius),
//     since zygomys reads a bare hyphen as subtraction.
//   - ; and ;; line comments become // comments.
//
// String literals (double-quoted and backtick) pass through untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)

	b := source
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"':
			j := skipQuoted(b, i)
			out.WriteString(b[i:j])
			i = j

		case c == '`':
			j := strings.IndexByte(b[i+1:], '`')
			if j < 0 {
				out.WriteString(b[i:])
				return out.String()
			}
			out.WriteString(b[i : i+j+2])
			i += j + 2

		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			j := strings.IndexByte(b[i:], '\n')
			if j < 0 {
				j = len(b) - i
			}
			out.WriteString("//")
			out.WriteString(b[i : i+j])
			i += j

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out.WriteString(":=")
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out.WriteByte('"')
			out.WriteString(kwPrefix)
			out.WriteString(b[i+1 : j])
			out.WriteByte('"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipQuoted returns the index just past the double-quoted literal starting
// at i, honoring backslash escapes. Unterminated literals run to the end.
func skipQuoted(b string, i int) int {
	for j := i + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(b)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
