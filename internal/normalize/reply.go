package normalize

import (
	"regexp"
	"strings"
)

var (
	reOnWrote        = regexp.MustCompile(`(?i)^on\b.{0,200}\bwrote\s*:`)
	reOriginalMsg    = regexp.MustCompile(`(?i)^-{2,}\s*original message\s*-{2,}`)
	reForwardedMsg   = regexp.MustCompile(`(?i)^-{2,}\s*forwarded message\s*-{2,}`)
	reHeaderFrom     = regexp.MustCompile(`(?i)^from:\s`)
	reHeaderFollowup = regexp.MustCompile(`(?i)^(sent|to|subject|date):\s`)
)

var signaturePrefixes = []string{
	"sent from ",
	"sent via ",
	"get outlook for ",
}

var signatureLines = []string{
	"--",
	"regards,",
	"kind regards,",
	"best regards,",
	"warm regards,",
	"best,",
	"best wishes,",
	"cheers,",
	"thanks,",
	"thank you,",
	"many thanks,",
}

// TrimReply cuts a body down to the correspondent's own words: everything
// from the first quoted-reply or signature marker onward is dropped. Markers
// seen before any real content are ignored, so a message that opens with
// "On reflection..." or a bare quote still yields something rather than an
// empty result.
func TrimReply(body string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	haveContent := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if haveContent && isReplyMarker(trimmed, lines[i+1:]) {
			break
		}
		if haveContent && isSignatureMarker(trimmed) {
			break
		}

		kept = append(kept, line)
		if trimmed != "" && !strings.HasPrefix(trimmed, ">") {
			haveContent = true
		}
	}

	return strings.TrimRight(strings.Join(kept, "\n"), " \t\r\n")
}

func isReplyMarker(line string, following []string) bool {
	if line == "" {
		return false
	}
	if reOnWrote.MatchString(line) {
		return true
	}
	if reOriginalMsg.MatchString(line) || reForwardedMsg.MatchString(line) {
		return true
	}
	if isBoundaryMarker(line) {
		return true
	}
	// A From: line only counts as a quoted header block when one of the
	// usual companions follows within a couple of lines.
	if reHeaderFrom.MatchString(line) {
		limit := 3
		if len(following) < limit {
			limit = len(following)
		}
		for _, next := range following[:limit] {
			if reHeaderFollowup.MatchString(strings.TrimSpace(next)) {
				return true
			}
		}
	}
	return false
}

// isBoundaryMarker detects MIME part separators: long dashed tokens with no
// spaces, e.g. "--_000_AM0PR04MB5636...".
func isBoundaryMarker(line string) bool {
	if !strings.HasPrefix(line, "--") {
		return false
	}
	if len(line) < 10 || strings.ContainsAny(line, " \t") {
		return false
	}
	return true
}

func isSignatureMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range signaturePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, sig := range signatureLines {
		if lower == sig {
			return true
		}
	}
	return false
}
