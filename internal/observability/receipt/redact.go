package receipt

import (
	"net/url"
	"regexp"
	"strings"
)

// sensitiveFlags have their value redacted in either --flag=v or --flag v form
var sensitiveFlags = map[string]bool{
	"token":             true,
	"password":          true,
	"secret":            true,
	"api-key":           true,
	"auth":              true,
	"credentials":       true,
	"bearer":            true,
	"registry-token":    true,
	"registry-password": true,
	"otel-headers":      true,
}

// sensitivePrefixes of well-known token formats
var sensitivePrefixes = []string{
	"ghp_",
	"github_pat_",
	"gho_",
	"glpat-",
	"AKIA",
	"ya29.",
	"AIza",
	"dckr_pat_",
}

var jwtRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)

var longSecretRegex = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{32,}$`)

const redactedValue = "[REDACTED]"

// RedactArgs returns args with secrets replaced and whether anything changed.
// URLs keep their shape with the password removed, so a history dsn stays
// identifiable.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	out := make([]string, len(args))
	changed := false
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, value, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(name, "-") {
			switch {
			case sensitiveFlags[flagName(name)] || isSensitiveValue(value):
				out[i] = name + "=" + redactedValue
				changed = true
			default:
				out[i] = name + "=" + RedactURL(value)
				changed = changed || out[i] != arg
			}
			continue
		}

		if strings.HasPrefix(arg, "-") && sensitiveFlags[flagName(arg)] && i+1 < len(args) {
			out[i] = arg
			i++
			out[i] = redactedValue
			changed = true
			continue
		}

		if isSensitiveValue(arg) {
			out[i] = redactedValue
			changed = true
			continue
		}
		out[i] = RedactURL(arg)
		changed = changed || out[i] != arg
	}
	return out, changed
}

// RedactURL masks the password of a URL with userinfo; anything else is returned unchanged
func RedactURL(s string) string {
	if !strings.Contains(s, "://") || !strings.Contains(s, "@") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); !ok {
		return s
	}
	return u.Redacted()
}

func flagName(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "-"))
}

func isSensitiveValue(value string) bool {
	for _, prefix := range sensitivePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	if jwtRegex.MatchString(value) {
		return true
	}
	// paths and dotted names are never treated as secrets
	if len(value) >= 32 && !strings.ContainsAny(value, "/.") {
		return longSecretRegex.MatchString(value)
	}
	return false
}
