package login

import (
	"fmt"
	"unicode"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxBcryptPasswordBytes = 72

// PasswordPolicy defines the requirements a new password must meet
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
}

// DefaultPasswordPolicy only enforces a minimum length
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

func (p PasswordPolicy) Validate() error {
	if p.MinLength < 1 || p.MinLength > maxBcryptPasswordBytes {
		return fmt.Errorf("password min length must be between 1 and %d, got %d", maxBcryptPasswordBytes, p.MinLength)
	}
	return nil
}

// Check returns a client-safe description of the first unmet requirement
func (p PasswordPolicy) Check(password string) error {
	if len([]rune(password)) < p.MinLength {
		return fmt.Errorf("Password must be at least %d characters long", p.MinLength)
	}
	if len(password) > maxBcryptPasswordBytes {
		return fmt.Errorf("Password must be at most %d bytes long", maxBcryptPasswordBytes)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if p.RequireUppercase && !upper {
		return fmt.Errorf("Password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !lower {
		return fmt.Errorf("Password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !digit {
		return fmt.Errorf("Password must contain at least one digit")
	}
	return nil
}
