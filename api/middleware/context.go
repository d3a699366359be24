package middleware

import "context"

type contextKey string

const (
	ctxHolderID   contextKey = "holder_id"
	ctxPropertyID contextKey = "property_id"
)

func HolderIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxHolderID).(string); ok {
		return v
	}
	return ""
}

func PropertyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPropertyID).(string); ok {
		return v
	}
	return ""
}

// WithHolderID injects the holder identifier into the context.
func WithHolderID(ctx context.Context, holderID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxHolderID, holderID)
}

// WithPropertyID injects the property identifier into the context for downstream handlers.
func WithPropertyID(ctx context.Context, propertyID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPropertyID, propertyID)
}
