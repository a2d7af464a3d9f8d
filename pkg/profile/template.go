package profile

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{%([A-Za-z0-9_.\-]+)%\}`)

// Bindings map placeholder keys to values.
type Bindings map[string]interface{}

// Merge copies other into b and returns b.
func (b Bindings) Merge(other Bindings) Bindings {
	for k, v := range other {
		b[k] = v
	}
	return b
}

// Render replaces each {%key%} in tmpl with the string form of its bound
// value. Nil values render as the empty string. Placeholders without a
// binding are left untouched.
func Render(tmpl string, bindings Bindings) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := bindings[key]
		if !ok {
			return match
		}
		return stringify(v)
	})
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(v)
	}
}
