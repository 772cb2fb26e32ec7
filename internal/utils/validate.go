package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as any RFC 4122 textual form.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
