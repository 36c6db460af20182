package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
)

// NormalizeDimension standardizes a free-form dimension so surface variations
// of the same size ("10 X 16", "10*16", "10x16") collapse to one key.
// Applied on every write and every lookup path; never bypassed. Idempotent.
func NormalizeDimension(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.ReplaceAll(d, "*", "x")
	// Internal whitespace only ever separates tokens of the same dimension.
	d = strings.Join(strings.Fields(d), "")
	if d == "" {
		return "", utils.ErrDimensionRequired
	}
	return d, nil
}
