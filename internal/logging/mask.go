package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenPrefixLen is the number of leading token characters kept in masked output.
const tokenPrefixLen = 20

// jsonString matches a quoted JSON string value, escapes included.
const jsonString = `"(?:[^"\\]|\\.)*"`

var sensitivePatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`("password"\s*:\s*)` + jsonString), `${1}"***"`},
	{regexp.MustCompile(`("email"\s*:\s*)` + jsonString), `${1}"***@***"`},
	{regexp.MustCompile(`("(?:authToken|token|access_token)"\s*:\s*)` + jsonString), `${1}"***"`},
	{regexp.MustCompile(`(?i)(authorization:\s*bearer\s+)\S+`), `${1}***`},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), `${1}***`},
	{regexp.MustCompile(`(?i)((?:^|[?&])(?:authToken|token|access_token|password|email)=)[^&\s]*`), `${1}***`},
}

// MaskSensitive rewrites credential-bearing fields in a log line.
func MaskSensitive(s string) string {
	for _, p := range sensitivePatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// MaskEmail keeps the first two characters of the local part.
// "user@example.com" becomes "us***@example.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// MaskToken keeps a short prefix of long tokens and always reports the length.
func MaskToken(token string) string {
	if len(token) > tokenPrefixLen*2 {
		return fmt.Sprintf("%s*** (length: %d)", token[:tokenPrefixLen], len(token))
	}
	return fmt.Sprintf("*** (length: %d)", len(token))
}

// MaskPassword never reveals any character of the password.
func MaskPassword(password string) string {
	return fmt.Sprintf("*** (length: %d)", len(password))
}

// MaskCoordinates rounds a position to two decimals (~1km).
func MaskCoordinates(lat, lng float64) string {
	return fmt.Sprintf("Lat: %.2f, Lon: %.2f", lat, lng)
}
