package logging

import (
	"context"
)

const (
	AccountIDKey   = "account_id"
	ChannelKey     = "channel"
	MessageRefKey  = "message_ref"
	ServiceNameKey = "service_name"
)

func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, AccountIDKey, accountID)
}

func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, ChannelKey, channel)
}

// WithMessageRef tags the context with whatever identifies the message being
// worked on: a provider ID when the provider supplies one, otherwise the
// constructed dedup key.
func WithMessageRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, MessageRefKey, ref)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetAccountID(ctx context.Context) string {
	if v, ok := ctx.Value(AccountIDKey).(string); ok {
		return v
	}
	return ""
}

func GetChannel(ctx context.Context) string {
	if v, ok := ctx.Value(ChannelKey).(string); ok {
		return v
	}
	return ""
}

func GetMessageRef(ctx context.Context) string {
	if v, ok := ctx.Value(MessageRefKey).(string); ok {
		return v
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if v, ok := ctx.Value(ServiceNameKey).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if accountID := GetAccountID(ctx); accountID != "" {
		fields = append(fields, "account_id", accountID)
	}

	if channel := GetChannel(ctx); channel != "" {
		fields = append(fields, "channel", channel)
	}

	if ref := GetMessageRef(ctx); ref != "" {
		fields = append(fields, "message_ref", ref)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
