package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimReplyOnWroteMarker(t *testing.T) {
	in := "Sounds good.\n\nOn Mon, Apr 6, 2026 at 9:00 AM Support wrote:\n> earlier text\n"
	assert.Equal(t, "Sounds good.", TrimReply(in))
}

func TestTrimReplyForwardedMessage(t *testing.T) {
	in := "See below.\n\n---------- Forwarded message ----------\nFrom: someone\n"
	assert.Equal(t, "See below.", TrimReply(in))
}

func TestTrimReplyFromHeaderBlock(t *testing.T) {
	in := "Confirmed for 2pm.\n\nFrom: Clinic Support\nSent: Monday, April 6, 2026\nTo: Jane\nSubject: Booking\nearlier thread\n"
	assert.Equal(t, "Confirmed for 2pm.", TrimReply(in))
}

func TestTrimReplyBareFromLineKept(t *testing.T) {
	// "From:" without the accompanying header block is ordinary prose.
	in := "From: my perspective this works fine.\nSee you then."
	assert.Equal(t, in, TrimReply(in))
}

func TestTrimReplyMarkerFirstIsKept(t *testing.T) {
	// No content captured yet, so the marker must not truncate.
	in := "On Mon, Apr 6, 2026 at 9:00 AM Support wrote:\n> question\nanswer below the quote\n"
	out := TrimReply(in)
	assert.Contains(t, out, "answer below the quote")
}

func TestTrimReplyQuotedLinesAreNotContent(t *testing.T) {
	// Leading quoted lines do not count as content; the later marker still
	// requires real content before it stops the scan.
	in := "> quoted question\nreal answer\n\nSent from my iPhone\n"
	assert.Equal(t, "> quoted question\nreal answer", TrimReply(in))
}

func TestTrimReplySignatureVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sent from", "All set.\nSent from my Android\n", "All set."},
		{"regards", "All set.\n\nRegards,\nJane\n", "All set."},
		{"thanks", "All set.\n\nThanks,\nJane\n", "All set."},
		{"dash dash", "All set.\n--\nJane Doe\n", "All set."},
		{"get outlook", "All set.\nGet Outlook for iOS\n", "All set."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimReply(tt.in))
		})
	}
}

func TestTrimReplyBoundaryMarker(t *testing.T) {
	in := "Here is my answer.\n--0000000000004a7b9c\nContent-Type: text/html\n"
	assert.Equal(t, "Here is my answer.", TrimReply(in))
}
