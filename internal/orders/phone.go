package orders

import "strings"

// NormalizePhone formats 10 or 11 digit Brazilian numbers as "(dd) dddd-dddd" or
// "(dd) ddddd-dddd". Only ASCII digits count. Anything else comes back trimmed.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	switch len(d) {
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	default:
		return s
	}
}
