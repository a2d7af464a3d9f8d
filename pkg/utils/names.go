package utils

import "fmt"

// ValidateDNSLabel checks name against DNS-1123 label rules: 1 to 63
// lowercase letters, digits and single hyphens, not starting or ending
// with a hyphen.
func ValidateDNSLabel(name string) error {
	if len(name) < 1 || len(name) > 63 {
		return fmt.Errorf("must be between 1 and 63 characters")
	}
	if name[0] == '-' || name[len(name)-1] == '-' {
		return fmt.Errorf("cannot start or end with a hyphen")
	}
	for i, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return fmt.Errorf("can only contain lowercase letters, digits, and hyphens")
		}
		if c == '-' && i > 0 && name[i-1] == '-' {
			return fmt.Errorf("cannot contain consecutive hyphens")
		}
	}
	return nil
}
