package normalize

import (
	"regexp"
	"strings"
)

var (
	reScriptBlock = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	reStyleBlock  = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	reHeadBlock   = regexp.MustCompile(`(?is)<head\b.*?</head\s*>`)
	reComment     = regexp.MustCompile(`(?s)<!--.*?-->`)
	reAnchor      = regexp.MustCompile(`(?is)<a\b[^>]*\bhref\s*=\s*["']?([^"'\s>]+)["']?[^>]*>(.*?)</a\s*>`)
	reBlockBreak  = regexp.MustCompile(`(?i)<(?:br|hr)\s*/?>|</(?:p|div|li|tr|h[1-6]|blockquote|table)\s*>`)
	reListItem    = regexp.MustCompile(`(?i)<li\b[^>]*>`)
	reAnyTag      = regexp.MustCompile(`(?s)<[^>]+>`)
	reSpaces      = regexp.MustCompile(`[ \t]+`)
)

// HTMLToText converts an HTML body to readable plain text: script and style
// blocks are removed wholesale, block elements become newlines, links become
// "text (url)", remaining tags are stripped and whitespace is collapsed.
func HTMLToText(html string) string {
	s := reComment.ReplaceAllString(html, "")
	s = reScriptBlock.ReplaceAllString(s, "")
	s = reStyleBlock.ReplaceAllString(s, "")
	s = reHeadBlock.ReplaceAllString(s, "")

	s = reAnchor.ReplaceAllStringFunc(s, func(m string) string {
		groups := reAnchor.FindStringSubmatch(m)
		if len(groups) != 3 {
			return ""
		}
		url := groups[1]
		label := strings.TrimSpace(reAnyTag.ReplaceAllString(groups[2], ""))
		if label == "" {
			return url
		}
		if label == url {
			return url
		}
		return label + " (" + url + ")"
	})

	s = reListItem.ReplaceAllString(s, "\n- ")
	s = reBlockBreak.ReplaceAllString(s, "\n")
	s = reAnyTag.ReplaceAllString(s, "")

	s = DecodeEntities(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}
