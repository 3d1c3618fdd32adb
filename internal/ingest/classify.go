package ingest

import (
	"strings"
	"unicode"

	"inflow/pkg/models"
)

// Classifier decides whether a fetched message is genuinely inbound.
// Email accounts see their own sent mail in some provider setups, and SMS
// providers return sent and received messages from the same listing
// endpoint, so both channels need this filter before any other work.
type Classifier struct {
	// selfAddresses maps account ID to the lowercase addresses this system
	// sends from on that account.
	selfAddresses map[string]map[string]bool

	// minNumericSenderDigits is the threshold above which an all-numeric
	// SMS sender is treated as a real phone number. Outbound messages from
	// this system always carry an alphanumeric brand sender, so numeric
	// means inbound. The threshold is configurable because it is a
	// production judgment call, not a provider guarantee.
	minNumericSenderDigits int
}

func NewClassifier(minNumericSenderDigits int) *Classifier {
	return &Classifier{
		selfAddresses:          make(map[string]map[string]bool),
		minNumericSenderDigits: minNumericSenderDigits,
	}
}

// RegisterSelfAddresses records the sending addresses for an email account.
func (c *Classifier) RegisterSelfAddresses(accountID string, addresses []string) {
	set := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	c.selfAddresses[accountID] = set
}

// IsInbound reports whether the message came from a correspondent rather
// than from this system.
func (c *Classifier) IsInbound(msg models.RawMessage) bool {
	switch msg.Channel {
	case models.ChannelEmail:
		return c.isInboundEmail(msg)
	case models.ChannelSMS:
		return c.isInboundSMS(msg)
	default:
		return false
	}
}

func (c *Classifier) isInboundEmail(msg models.RawMessage) bool {
	sender := strings.ToLower(extractAddress(msg.Sender))
	if sender == "" {
		return false
	}
	return !c.selfAddresses[msg.AccountID][sender]
}

func (c *Classifier) isInboundSMS(msg models.RawMessage) bool {
	// Trust an explicit direction hint when the provider supplies one.
	switch strings.ToLower(msg.Direction) {
	case "inbound", "received", "mo":
		return true
	case "outbound", "sent", "mt":
		return false
	}

	digits := 0
	for _, r := range strings.TrimSpace(msg.Sender) {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ' || r == '.':
			// formatting characters, still a numeric sender
		default:
			return false
		}
	}
	return digits >= c.minNumericSenderDigits
}

// extractAddress strips a display-name wrapper from an email sender.
func extractAddress(sender string) string {
	s := strings.TrimSpace(sender)
	if open := strings.LastIndex(s, "<"); open >= 0 {
		if close := strings.Index(s[open:], ">"); close > 0 {
			return strings.TrimSpace(s[open+1 : open+close])
		}
	}
	return s
}
