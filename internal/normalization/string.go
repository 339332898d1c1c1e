package normalization

import (
  "strings"
)

func ParseInputString(input string) string {
  normalized := strings.ToLower(strings.TrimSpace(input))
  return normalized
}

// ParseDisplayString trims without lowercasing, for values that keep their
// casing (course names, term labels, section ids).
func ParseDisplayString(input string) string {
  return strings.TrimSpace(input)
}
