package dashscope

import "regexp"

var bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.]+`)

// Redact masks bearer tokens in a string. Applied to every error that
// leaves the client, and at the API boundary before error text reaches a
// caller or log sink.
func Redact(s string) string {
	return bearerPattern.ReplaceAllString(s, "Bearer ***")
}
