package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDNSLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid name", input: "valid-name-123"},
		{name: "minimal valid name", input: "n"},
		{name: "empty name", input: "", wantErr: true},
		{name: "too long name", input: "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijklmnop", wantErr: true},
		{name: "starts with hyphen", input: "-invalid", wantErr: true},
		{name: "ends with hyphen", input: "invalid-", wantErr: true},
		{name: "uppercase letters", input: "Invalid", wantErr: true},
		{name: "special characters", input: "invalid@name", wantErr: true},
		{name: "consecutive hyphens", input: "invalid--name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDNSLabel(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}
}
