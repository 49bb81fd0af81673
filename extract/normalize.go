package extract

import "regexp"

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Normalize replaces every run of line break characters with a single space.
// No other whitespace is touched.
func Normalize(text string) string {
	return lineBreaks.ReplaceAllString(text, " ")
}
