package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		bindings Bindings
		want     string
	}{
		{"bound string", "host: {%host%}", Bindings{"host": "localhost"}, "host: localhost"},
		{"bound int", "port: {%port%}", Bindings{"port": 8084}, "port: 8084"},
		{"bound bool", "enabled: {%on%}", Bindings{"on": false}, "enabled: false"},
		{"nil renders empty", "token: {%token%}", Bindings{"token": nil}, "token: "},
		{"unbound stays", "x: {%missing%}", Bindings{}, "x: {%missing%}"},
		{"dotted key", "{%a.b%}", Bindings{"a.b": "v"}, "v"},
		{"spaced placeholder stays", "{% a.b %}", Bindings{"a.b": "v"}, "{% a.b %}"},
		{"string slice", "{%list%}", Bindings{"list": []string{"a", "b"}}, "a,b"},
		{"repeated key", "{%k%}-{%k%}", Bindings{"k": "x"}, "x-x"},
		{"no placeholders", "plain text", Bindings{"k": "x"}, "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.bindings))
		})
	}
}

func TestBindingsMerge(t *testing.T) {
	b := Bindings{"a": 1, "b": 2}
	b.Merge(Bindings{"b": 3, "c": 4})
	assert.Equal(t, Bindings{"a": 1, "b": 3, "c": 4}, b)
}
