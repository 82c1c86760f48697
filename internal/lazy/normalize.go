package lazy

import "strings"

// Normalize collapses body onto one line: every line is trimmed of
// surrounding whitespace and the lines are joined with no separator.
func Normalize(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	lines := strings.Split(body, "\n")
	var sb strings.Builder
	sb.Grow(len(body))
	for _, line := range lines {
		sb.WriteString(strings.TrimSpace(line))
	}
	return sb.String()
}

// Escape prepares normalized text for embedding inside a string literal
// delimited by quote. Backslashes are doubled first, so a literal \n in the
// source survives the second round of string parsing, then quote is escaped.
func Escape(s string, quote byte) string {
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			sb.WriteString(`\\`)
		case quote:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// quoted returns s escaped and wrapped in quote.
func quoted(s string, quote byte) string {
	return string(quote) + Escape(s, quote) + string(quote)
}
