package process

import "strings"

// escapeArg quotes one argument for CreateProcess following the
// CommandLineToArgvW rules:
//
//   - backslashes are doubled only when they precede a double quote;
//   - double quotes are escaped with a backslash;
//   - the argument is wrapped in quotes only if it contains spaces or tabs;
//   - an empty argument becomes "".
func escapeArg(s string) string {
	if s == "" {
		return `""`
	}

	var quoteNeeded, escapeNeeded bool
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t':
			quoteNeeded = true
		case '"', '\\':
			escapeNeeded = true
		}
	}
	if !escapeNeeded && !quoteNeeded {
		return s
	}
	if !escapeNeeded {
		return `"` + s + `"`
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	if quoteNeeded {
		b.WriteByte('"')
	}
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	if quoteNeeded {
		b.WriteString(strings.Repeat(`\`, slashes))
		b.WriteByte('"')
	}
	return b.String()
}

// buildCmdLine joins arguments into a single CreateProcess command line.
func buildCmdLine(args []string) string {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = escapeArg(arg)
	}
	return strings.Join(escaped, " ")
}
