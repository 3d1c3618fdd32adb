package contacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "inflow/pkg/errors"
	"inflow/pkg/models"
)

func TestCanonicalizeEmail(t *testing.T) {
	r := NewResolver(NewMemoryRecordStore(), "1")

	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"plain", "jane@example.com", "jane@example.com"},
		{"mixed case", "Jane@Example.COM", "jane@example.com"},
		{"whitespace", "  jane@example.com\t", "jane@example.com"},
		{"display name", `"Jane Doe" <Jane@Example.com>`, "jane@example.com"},
		{"display name no quotes", "Jane Doe <jane@example.com>", "jane@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Canonicalize(models.ChannelEmail, tt.sender))
		})
	}
}

func TestCanonicalizePhone(t *testing.T) {
	r := NewResolver(NewMemoryRecordStore(), "1")

	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"e164", "+15550001111", "15550001111"},
		{"formatted", "(555) 000-1111", "15550001111"},
		{"national digits", "5550001111", "15550001111"},
		{"already has country code", "15550001111", "15550001111"},
		{"short code untouched", "882811", "882811"},
		{"no digits", "VERIZON", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Canonicalize(models.ChannelSMS, tt.sender))
		})
	}
}

func TestResolveExactMatch(t *testing.T) {
	store := NewMemoryRecordStore(Correspondent{
		ID:     "corr-1",
		Emails: []string{"jane@example.com"},
		Phones: []string{"15550001111"},
	})
	r := NewResolver(store, "1")
	ctx := context.Background()

	c, err := r.Resolve(ctx, models.ChannelEmail, "Jane Doe <Jane@Example.com>")
	require.NoError(t, err)
	assert.Equal(t, "corr-1", c.ID)

	c, err = r.Resolve(ctx, models.ChannelSMS, "(555) 000-1111")
	require.NoError(t, err)
	assert.Equal(t, "corr-1", c.ID)
}

func TestResolveUnknownSender(t *testing.T) {
	r := NewResolver(NewMemoryRecordStore(), "1")

	_, err := r.Resolve(context.Background(), models.ChannelEmail, "stranger@example.com")
	require.Error(t, err)
	assert.True(t, apperrors.IsNoCorrespondent(err))
}

func TestResolveNoFuzzyMatch(t *testing.T) {
	store := NewMemoryRecordStore(Correspondent{
		ID:     "corr-1",
		Emails: []string{"jane@example.com"},
	})
	r := NewResolver(store, "1")

	// A close-but-different address must not match.
	_, err := r.Resolve(context.Background(), models.ChannelEmail, "jane+tag@example.com")
	require.Error(t, err)
	assert.True(t, apperrors.IsNoCorrespondent(err))
}
