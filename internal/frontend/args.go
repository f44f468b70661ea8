package frontend

import "strings"

// SplitArgs splits a flag passthrough string into individual arguments the
// way a shell would: whitespace separates, single and double quotes group,
// and backslashes escape quotes, spaces, and themselves.
//
//	SplitArgs(`-I /usr/local/include -DNAME="a b"`)
//	  -> ["-I", "/usr/local/include", `-DNAME=a b`]
func SplitArgs(s string) []string {
	var (
		parts   []string
		cur     strings.Builder
		quote   byte // 0, '\'' or '"'
		escaped bool
		started bool
	)
	flush := func() {
		if started {
			parts = append(parts, cur.String())
			cur.Reset()
			started = false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			started = true
			escaped = false
		case c == '\\':
			// Escape only characters that need it; keep literal
			// backslashes in paths intact.
			if i+1 < len(s) {
				switch s[i+1] {
				case '"', '\'', ' ', '\\':
					escaped = true
					continue
				}
			}
			cur.WriteByte(c)
			started = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
			started = true
		case c == '"' || c == '\'':
			quote = c
			started = true
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	flush()
	return parts
}
