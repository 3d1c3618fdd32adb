// Package normalize turns raw provider payloads (MIME mail, HTML, SMS text)
// into clean plain text suitable for display, hashing and deduplication. It
// is pure: no I/O, no clocks except the caller-supplied fallbacks.
package normalize

import (
	"strings"
	"time"

	"inflow/pkg/models"
)

// Sentinel is substituted whenever extraction produces nothing usable.
// Downstream consumers must never see an empty body.
const Sentinel = "(no content available)"

// minBodyLen is the threshold below which an extraction result is considered
// garbage and replaced with the sentinel.
const minBodyLen = 3

// Hints tells the normalizer how to interpret the raw payload.
type Hints struct {
	Channel models.Channel
	// ContentType is the provider's framing hint. "message/rfc822" selects
	// the structured-mail path.
	ContentType string
}

type Result struct {
	Body    string
	Subject string
	// Date is the envelope date recovered during MIME parsing, when any.
	Date time.Time
	// UsedSentinel reports that extraction failed and Body is the sentinel.
	UsedSentinel bool
}

type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize runs the full pipeline: structural parse, encoding decode,
// reply/signature trimming, artifact stripping, whitespace collapse, and
// finally the sentinel guard.
func (n *Normalizer) Normalize(raw string, hints Hints) Result {
	var res Result

	if isMailPayload(hints) {
		text, html, subject, date := parseMail(raw)
		res.Subject = subject
		res.Date = date
		switch {
		case strings.TrimSpace(text) != "":
			res.Body = text
		case strings.TrimSpace(html) != "":
			res.Body = HTMLToText(html)
		default:
			// Structured parse found nothing; fall back to treating the
			// whole payload as text and let the artifact pass clean it up.
			res.Body = raw
		}
	} else {
		res.Body = raw
	}

	res.Body = decodeBase64Blocks(res.Body)
	res.Body = DecodeQuotedPrintable(res.Body)
	res.Body = DecodeEntities(res.Body)
	res.Body = TrimReply(res.Body)
	res.Body = stripArtifactLines(res.Body)
	res.Body = collapseBlankLines(res.Body)
	res.Body = strings.TrimSpace(res.Body)

	if len(res.Body) < minBodyLen {
		res.Body = Sentinel
		res.UsedSentinel = true
	}

	return res
}

func isMailPayload(hints Hints) bool {
	if strings.HasPrefix(hints.ContentType, "message/") || strings.HasPrefix(hints.ContentType, "multipart/") {
		return true
	}
	return hints.Channel == models.ChannelEmail && hints.ContentType != "text/plain"
}

// stripArtifactLines removes MIME/header lines that leak through imperfect
// multipart parsing of malformed mail.
func stripArtifactLines(body string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isArtifactLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

var artifactPrefixes = []string{
	"content-type:",
	"content-transfer-encoding:",
	"content-disposition:",
	"mime-version:",
	"message-id:",
	"return-path:",
	"received:",
	"boundary=",
	"charset=",
	"x-",
}

func isArtifactLine(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if trimmed == "" {
		return false
	}
	for _, prefix := range artifactPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// collapseBlankLines reduces runs of three or more blank lines to two.
func collapseBlankLines(body string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 2 {
				continue
			}
			kept = append(kept, "")
			continue
		}
		blanks = 0
		kept = append(kept, strings.TrimRight(line, " \t\r"))
	}
	return strings.Join(kept, "\n")
}
