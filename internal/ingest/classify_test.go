package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inflow/pkg/models"
)

func TestClassifyEmail(t *testing.T) {
	c := NewClassifier(7)
	c.RegisterSelfAddresses("acct-mail", []string{"Support@Clinic.example"})

	tests := []struct {
		name   string
		sender string
		want   bool
	}{
		{"customer", "jane@example.com", true},
		{"self address", "support@clinic.example", false},
		{"self address mixed case", "SUPPORT@CLINIC.EXAMPLE", false},
		{"self address with display name", "Clinic Support <support@clinic.example>", false},
		{"empty sender", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := models.RawMessage{
				Channel:   models.ChannelEmail,
				AccountID: "acct-mail",
				Sender:    tt.sender,
			}
			assert.Equal(t, tt.want, c.IsInbound(msg))
		})
	}
}

func TestClassifySMSExplicitDirection(t *testing.T) {
	c := NewClassifier(7)

	inbound := models.RawMessage{Channel: models.ChannelSMS, Sender: "BRAND", Direction: "inbound"}
	outbound := models.RawMessage{Channel: models.ChannelSMS, Sender: "+15550001111", Direction: "outbound"}

	// An explicit direction field wins over the sender heuristic.
	assert.True(t, c.IsInbound(inbound))
	assert.False(t, c.IsInbound(outbound))
}

func TestClassifySMSSenderHeuristic(t *testing.T) {
	c := NewClassifier(7)

	tests := []struct {
		name   string
		sender string
		want   bool
	}{
		{"e164 number", "+15550001111", true},
		{"formatted number", "(555) 000-1111", true},
		{"alphanumeric brand", "ACMECORP", false},
		{"mixed alphanumeric", "ACME123", false},
		{"short code below threshold", "88281", false},
		{"exactly at threshold", "8828112", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := models.RawMessage{Channel: models.ChannelSMS, Sender: tt.sender}
			assert.Equal(t, tt.want, c.IsInbound(msg))
		})
	}
}

func TestClassifySMSThresholdConfigurable(t *testing.T) {
	c := NewClassifier(5)
	msg := models.RawMessage{Channel: models.ChannelSMS, Sender: "88281"}
	assert.True(t, c.IsInbound(msg))
}
