package normalize

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reQPHex      = regexp.MustCompile(`=[0-9A-Fa-f]{2}`)
	reBase64Line = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// DecodeQuotedPrintable resolves soft line breaks (=\n) and =XX hex escapes.
// The decoder is lenient: malformed escapes pass through untouched instead of
// failing the whole body, which is what mime/quotedprintable would do.
func DecodeQuotedPrintable(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	hasSoftBreak := strings.Contains(s, "=\r\n") || strings.Contains(s, "=\n")
	if !hasSoftBreak && !reQPHex.MatchString(s) {
		return s
	}

	s = strings.ReplaceAll(s, "=\r\n", "")
	s = strings.ReplaceAll(s, "=\n", "")

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c == '=' && i+2 < len(s) {
			if hi, ok1 := fromHex(s[i+1]); ok1 {
				if lo, ok2 := fromHex(s[i+2]); ok2 {
					b.WriteByte(hi<<4 | lo)
					i += 3
					continue
				}
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// decodeBase64Blocks finds base64 payload segments that leaked through
// structural parsing (a Content-Transfer-Encoding: base64 marker followed by
// base64 lines) and substitutes the decoded text. Blocks that do not decode
// to valid UTF-8 are dropped entirely: undecodable binary is attachment
// spill, not message content.
func decodeBase64Blocks(body string) string {
	lower := strings.ToLower(body)
	if !strings.Contains(lower, "content-transfer-encoding: base64") &&
		!strings.Contains(lower, "content-transfer-encoding:base64") {
		return body
	}

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(strings.ToLower(lines[i]))
		if !strings.HasPrefix(line, "content-transfer-encoding:") || !strings.Contains(line, "base64") {
			out = append(out, lines[i])
			continue
		}

		// Skip the marker plus any remaining header lines, then collect the
		// base64 block up to a blank line or boundary.
		j := i + 1
		for j < len(lines) && strings.Contains(lines[j], ":") && strings.TrimSpace(lines[j]) != "" {
			j++
		}
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		var block []string
		for j < len(lines) {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" || strings.HasPrefix(candidate, "--") || !reBase64Line.MatchString(candidate) {
				break
			}
			block = append(block, candidate)
			j++
		}
		if len(block) > 0 {
			decoded, err := base64.StdEncoding.DecodeString(strings.Join(block, ""))
			if err == nil && utf8.Valid(decoded) {
				out = append(out, string(decoded))
			}
			i = j - 1
			continue
		}
	}
	return strings.Join(out, "\n")
}
