package rules

import "strings"

// Normalize prepares a merchant name for matching: trim, uppercase, and
// collapse runs of whitespace to single spaces.
func Normalize(merchantName string) string {
	fields := strings.Fields(strings.ToUpper(merchantName))
	return strings.Join(fields, " ")
}
