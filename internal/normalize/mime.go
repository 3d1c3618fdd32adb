package normalize

import (
	"io"
	"mime"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"
)

// parseMail parses a full RFC 822 payload and returns the best text and HTML
// bodies plus subject and envelope date. Parse failures return zero values;
// the caller falls back to flat-text handling.
func parseMail(raw string) (text, html, subject string, date time.Time) {
	entity, err := message.Read(strings.NewReader(raw))
	if entity == nil {
		return "", "", "", time.Time{}
	}
	if err != nil && !message.IsUnknownCharset(err) {
		return "", "", "", time.Time{}
	}

	subject = decodeHeader(entity.Header.Get("Subject"))
	if d, derr := netmail.ParseDate(entity.Header.Get("Date")); derr == nil {
		date = d
	}

	text, html = extractBodies(entity, 0)
	return text, html, subject, date
}

const maxMultipartDepth = 8

// extractBodies walks the MIME structure and collects the first text/plain
// and text/html inline parts. Attachments are ignored: ingestion cares about
// what the correspondent wrote, not what they attached.
func extractBodies(entity *message.Entity, depth int) (string, string) {
	if depth > maxMultipartDepth {
		return "", ""
	}

	mediaType, _, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		var text, html string
		mr := entity.MultipartReader()
		if mr == nil {
			return "", ""
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				break // skip faulty parts, keep what we have
			}

			disposition, _, _ := part.Header.ContentDisposition()
			if disposition == "attachment" {
				continue
			}

			partText, partHTML := extractBodies(part, depth+1)
			if text == "" {
				text = partText
			}
			if html == "" {
				html = partHTML
			}
		}
		return text, html
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", ""
	}

	switch mediaType {
	case "text/plain", "":
		return string(body), ""
	case "text/html":
		return "", string(body)
	}
	return "", ""
}

// decodeHeader decodes RFC 2047 encoded-words in a header value.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
