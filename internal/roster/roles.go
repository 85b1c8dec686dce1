package roster

import "strings"

// ResolveRole returns the first header containing keywords[0]
// (case-insensitive), then tries each following keyword in turn.
func ResolveRole(headers []string, keywords ...string) (string, bool) {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), kw) {
				return h, true
			}
		}
	}
	return "", false
}

// IdentityColumn returns the primary key column: the first header containing
// "id", else the first header. Empty when there are no headers.
func IdentityColumn(headers []string) string {
	if h, ok := ResolveRole(headers, "id"); ok {
		return h
	}
	if len(headers) > 0 {
		return headers[0]
	}
	return ""
}

// NameColumn returns the display name column: the first header containing
// "name", else the second header, else the identity column.
func NameColumn(headers []string) string {
	if h, ok := ResolveRole(headers, "name"); ok {
		return h
	}
	if len(headers) > 1 {
		return headers[1]
	}
	return IdentityColumn(headers)
}

// LoginColumn returns the column matched against a username at sign-in.
func LoginColumn(headers []string) string {
	if h, ok := ResolveRole(headers, "employee id"); ok {
		return h
	}
	if len(headers) > 0 {
		return headers[0]
	}
	return ""
}

// Initials returns up to two upper-case initials from a display name.
func Initials(name string) string {
	var b strings.Builder
	for i, part := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}
