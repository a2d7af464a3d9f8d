package secrets

import (
	"regexp"
	"strings"
)

// Prefix starts every encrypted reference.
const Prefix = "encrypted:"

const reservedName = "encrypted"

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Param is one name/value pair of an encrypted reference.
type Param struct {
	Name  string
	Value string
}

// Params keeps parameters in their written order.
type Params []Param

// Get returns the first value stored under name.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Reference is a parsed encrypted value.
type Reference struct {
	Raw    string
	Engine string
	Params Params
}

// IsEncrypted reports whether s is a well-formed encrypted reference.
func IsEncrypted(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Parse splits an encrypted reference of the form
// encrypted:<engine>!<name>:<value>!... into its parts. Values may contain
// ':' but not '!'. It returns false when s does not follow the grammar.
func Parse(s string) (*Reference, bool) {
	if !strings.HasPrefix(s, Prefix) {
		return nil, false
	}
	parts := strings.Split(s[len(Prefix):], "!")
	if len(parts) < 2 || !nameRe.MatchString(parts[0]) {
		return nil, false
	}

	ref := &Reference{Raw: s, Engine: parts[0]}
	for _, part := range parts[1:] {
		name, value, ok := strings.Cut(part, ":")
		if !ok || !nameRe.MatchString(name) || name == reservedName {
			return nil, false
		}
		ref.Params = append(ref.Params, Param{Name: name, Value: value})
	}
	return ref, true
}

// Format builds an encrypted reference. It is the inverse of Parse.
func Format(engine string, params ...Param) string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(engine)
	for _, p := range params {
		b.WriteByte('!')
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(p.Value)
	}
	return b.String()
}
