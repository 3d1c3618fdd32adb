package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inflow/pkg/models"
)

func emailHints() Hints {
	return Hints{Channel: models.ChannelEmail, ContentType: "message/rfc822"}
}

func smsHints() Hints {
	return Hints{Channel: models.ChannelSMS, ContentType: "text/plain"}
}

func TestNormalizeSMSPassthrough(t *testing.T) {
	res := New().Normalize("Running 10 minutes late, sorry!", smsHints())
	assert.Equal(t, "Running 10 minutes late, sorry!", res.Body)
	assert.False(t, res.UsedSentinel)
}

func TestNormalizePlainTextMail(t *testing.T) {
	raw := "From: Jane Doe <jane@example.com>\r\n" +
		"Subject: Re: Booking\r\n" +
		"Date: Thu, 02 Apr 2026 09:15:00 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hello, yes please book me in.\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "Hello, yes please book me in.", res.Body)
	assert.Equal(t, "Re: Booking", res.Subject)
	assert.Equal(t, time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC), res.Date.UTC())
}

func TestNormalizeQuotedReplyTrimmed(t *testing.T) {
	raw := "Subject: Re: Booking\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Hello, yes please book me in.\r\n" +
		"\r\n" +
		"On Tue, Mar 31, 2026 at 2:11 PM Clinic Support <support@clinic.example> wrote:\r\n" +
		"> We have an opening on Thursday at 10am.\r\n" +
		"> Would that work for you?\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "Hello, yes please book me in.", res.Body)
}

func TestNormalizeOriginalMessageMarker(t *testing.T) {
	raw := "Content-Type: text/plain\r\n\r\n" +
		"Yes, that works.\r\n" +
		"\r\n" +
		"-----Original Message-----\r\n" +
		"From: Clinic Support\r\n" +
		"Sent: Tuesday\r\n" +
		"We have an opening.\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "Yes, that works.", res.Body)
}

func TestNormalizeMarkerBeforeContentKept(t *testing.T) {
	// A reply marker before any real content must not truncate to nothing.
	raw := "Content-Type: text/plain\r\n\r\n" +
		"On Tue, Mar 31, 2026 at 2:11 PM Clinic Support wrote:\r\n" +
		"> Are you coming in?\r\n" +
		"Yes I am.\r\n"

	res := New().Normalize(raw, emailHints())
	assert.False(t, res.UsedSentinel)
	assert.Contains(t, res.Body, "Yes I am.")
}

func TestNormalizeSignatureTrimmed(t *testing.T) {
	raw := "Content-Type: text/plain\r\n\r\n" +
		"See you Thursday.\r\n" +
		"\r\n" +
		"Sent from my iPhone\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "See you Thursday.", res.Body)
}

func TestNormalizeHTMLFallback(t *testing.T) {
	raw := "Subject: Hi\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>p{color:red}</style></head>" +
		"<body><p>Hello <b>there</b></p>" +
		"<p>Details: <a href=\"https://example.com/x\">booking page</a></p>" +
		"<script>alert(1)</script></body></html>\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Contains(t, res.Body, "Hello there")
	assert.Contains(t, res.Body, "booking page (https://example.com/x)")
	assert.NotContains(t, res.Body, "alert(1)")
	assert.NotContains(t, res.Body, "color:red")
}

func TestNormalizeMultipartPrefersPlainText(t *testing.T) {
	raw := "Subject: Hi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--b1--\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "plain version", res.Body)
}

func TestNormalizeQuotedPrintable(t *testing.T) {
	raw := "Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9 time =\r\n" +
		"tomorrow\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "café time tomorrow", res.Body)
}

func TestNormalizeEntitiesAndMojibake(t *testing.T) {
	res := New().Normalize("Tom &amp; Jerry &#8212; itâ€™s on", smsHints())
	assert.Equal(t, "Tom & Jerry — it’s on", res.Body)
}

func TestNormalizeSentinelOnEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t \n"},
		{"too short", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New().Normalize(tt.raw, smsHints())
			assert.Equal(t, Sentinel, res.Body)
			assert.True(t, res.UsedSentinel)
		})
	}
}

func TestNormalizeArtifactLinesStripped(t *testing.T) {
	raw := "Content-Type: text/plain\r\n\r\n" +
		"Real content here.\r\n" +
		"X-Mailer: SomeClient 1.2\r\n" +
		"charset=utf-8\r\n"

	res := New().Normalize(raw, emailHints())
	assert.Equal(t, "Real content here.", res.Body)
}

func TestNormalizeCollapseBlankLines(t *testing.T) {
	raw := "line one\n\n\n\n\nline two"
	res := New().Normalize(raw, smsHints())
	assert.Equal(t, "line one\n\n\nline two", res.Body)
}

func TestNormalizeGarbageMailFallsBackToRaw(t *testing.T) {
	// Not parseable as mail at all; must degrade, never error.
	res := New().Normalize("just some text without headers", emailHints())
	require.False(t, res.UsedSentinel)
	assert.Contains(t, res.Body, "just some text without headers")
}
