package login

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy_Check(t *testing.T) {
	strict := PasswordPolicy{MinLength: 8, RequireUppercase: true, RequireLowercase: true, RequireDigit: true}

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		wantErr  string
	}{
		{"default accepts long enough", DefaultPasswordPolicy(), "abcdefgh", ""},
		{"default rejects short", DefaultPasswordPolicy(), "abc", "at least 8 characters"},
		{"rejects over bcrypt limit", DefaultPasswordPolicy(), strings.Repeat("a", 73), "at most 72 bytes"},
		{"strict accepts mixed", strict, "Abcdefg1", ""},
		{"strict needs uppercase", strict, "abcdefg1", "uppercase"},
		{"strict needs lowercase", strict, "ABCDEFG1", "lowercase"},
		{"strict needs digit", strict, "Abcdefgh", "digit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPasswordPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPasswordPolicy().Validate())
	assert.Error(t, PasswordPolicy{MinLength: 0}.Validate())
	assert.Error(t, PasswordPolicy{MinLength: 100}.Validate())
}
