package utils

import "strconv"

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ParsePage turns raw skip/limit query values into safe bounds. Anything
// unparseable or out of range falls back rather than erroring, so listing
// endpoints never 400 on pagination noise.
func ParsePage(skipRaw, limitRaw string) (skip, limit int) {
	limit = DefaultLimit

	if v, err := strconv.Atoi(limitRaw); err == nil && v >= 1 {
		limit = v
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	if v, err := strconv.Atoi(skipRaw); err == nil && v > 0 {
		skip = v
	}

	return skip, limit
}
