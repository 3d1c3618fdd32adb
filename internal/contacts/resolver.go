package contacts

import (
	"context"
	"strings"
	"unicode"

	apperrors "inflow/pkg/errors"
	"inflow/pkg/models"
)

// Resolver maps message senders to correspondents via exact identifier
// match. There is deliberately no fuzzy matching: attaching a message to the
// wrong customer is worse than not attaching it at all.
type Resolver struct {
	store              RecordStore
	defaultCountryCode string
}

func NewResolver(store RecordStore, defaultCountryCode string) *Resolver {
	return &Resolver{store: store, defaultCountryCode: defaultCountryCode}
}

// Resolve canonicalizes the sender for the channel and looks it up.
// An unknown sender yields ErrNoCorrespondent.
func (r *Resolver) Resolve(ctx context.Context, channel models.Channel, sender string) (*Correspondent, error) {
	identifier := r.Canonicalize(channel, sender)
	if identifier == "" {
		return nil, apperrors.ErrNoCorrespondent.WithDetail("sender", sender)
	}

	correspondent, err := r.store.FindCorrespondentByIdentifier(ctx, channel, identifier)
	if err != nil {
		return nil, apperrors.ErrPersistence.WithCause(err)
	}
	if correspondent == nil {
		return nil, apperrors.ErrNoCorrespondent.WithDetail("identifier", identifier)
	}
	return correspondent, nil
}

// Canonicalize normalizes a raw sender into the identifier form stored on
// correspondent records.
func (r *Resolver) Canonicalize(channel models.Channel, sender string) string {
	switch channel {
	case models.ChannelEmail:
		return canonicalEmail(sender)
	case models.ChannelSMS:
		return r.canonicalPhone(sender)
	default:
		return strings.TrimSpace(strings.ToLower(sender))
	}
}

// canonicalEmail lowercases and strips a display-name wrapper, e.g.
// `"Jane Doe" <Jane@Example.com>` becomes `jane@example.com`.
func canonicalEmail(sender string) string {
	s := strings.TrimSpace(sender)
	if open := strings.LastIndex(s, "<"); open >= 0 {
		if close := strings.Index(s[open:], ">"); close > 0 {
			s = s[open+1 : open+close]
		}
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// canonicalPhone keeps digits only and prepends the default country code to
// national-format numbers so both forms match the same record.
func (r *Resolver) canonicalPhone(sender string) string {
	var b strings.Builder
	for _, c := range sender {
		if unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	cc := r.defaultCountryCode
	if cc != "" && len(digits) == 10 && !strings.HasPrefix(digits, cc) {
		digits = cc + digits
	}
	return digits
}
