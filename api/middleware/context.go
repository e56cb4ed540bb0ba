package middleware

import "context"

type contextKey string

const (
	ctxHolderID      contextKey = "holder_id"
	ctxHolderAddress contextKey = "holder_address"
	ctxRole          contextKey = "actor_role"
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

func HolderAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxHolderAddress).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithHolderAddress injects the holder address into the context. Tests use it
// to simulate an authenticated call.
func WithHolderAddress(ctx context.Context, address string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxHolderAddress, address)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
