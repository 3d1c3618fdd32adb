package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// namedEntities is the fixed table of entities seen in real provider
// payloads. Deliberately not the full HTML5 set: anything outside this table
// is left alone rather than guessed at.
var namedEntities = map[string]string{
	"&amp;":    "&",
	"&lt;":     "<",
	"&gt;":     ">",
	"&quot;":   `"`,
	"&apos;":   "'",
	"&#39;":    "'",
	"&nbsp;":   " ",
	"&ndash;":  "–",
	"&mdash;":  "—",
	"&lsquo;":  "‘",
	"&rsquo;":  "’",
	"&ldquo;":  "“",
	"&rdquo;":  "”",
	"&hellip;": "…",
	"&copy;":   "©",
	"&reg;":    "®",
	"&trade;":  "™",
	"&pound;":  "£",
	"&euro;":   "€",
	"&middot;": "·",
	"&bull;":   "•",
}

// mojibake maps the UTF-8-read-as-Windows-1252 artifacts that lossy
// transcoding leaves in provider payloads, smart quotes above all. Keys are
// written as escapes because the raw sequences rarely survive editors
// intact.
var mojibake = map[string]string{
	"\u00e2\u20ac\u2122": "\u2019", // smart apostrophe
	"\u00e2\u20ac\u02dc": "\u2018",
	"\u00e2\u20ac\u0153": "\u201c", // left double quote
	"\u00e2\u20ac\ufffd": "\u201d", // right double quote via U+FFFD
	"\u00e2\u20ac\u201c": "\u2013", // en dash
	"\u00e2\u20ac\u201d": "\u2014", // em dash
	"\u00e2\u20ac\u00a6": "\u2026", // ellipsis
	"\u00c2\u00a0":       " ", // non-breaking space
	"\u00c2\u00a3":       "\u00a3",
	"\u00c2\u00a9":       "\u00a9",
	"\u00c3\u00a9":       "\u00e9",
	"\u00c3\u00a8":       "\u00e8",
	"\u00c3\u00a1":       "\u00e1",
}

var reNumericEntity = regexp.MustCompile(`&#(x?[0-9a-fA-F]{1,6});`)

// DecodeEntities resolves the fixed named/numeric entity table and the known
// mojibake sequences.
func DecodeEntities(s string) string {
	if strings.Contains(s, "&") {
		for entity, replacement := range namedEntities {
			s = strings.ReplaceAll(s, entity, replacement)
		}
		s = reNumericEntity.ReplaceAllStringFunc(s, decodeNumericEntity)
	}

	for seq, replacement := range mojibake {
		s = strings.ReplaceAll(s, seq, replacement)
	}

	return s
}

func decodeNumericEntity(m string) string {
	groups := reNumericEntity.FindStringSubmatch(m)
	if len(groups) != 2 {
		return m
	}
	code := groups[1]
	base := 10
	if strings.HasPrefix(code, "x") || strings.HasPrefix(code, "X") {
		base = 16
		code = code[1:]
	}
	n, err := strconv.ParseInt(code, base, 32)
	if err != nil || n <= 0 || n > 0x10FFFF {
		return m
	}
	return string(rune(n))
}
