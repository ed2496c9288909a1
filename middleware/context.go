package middleware

import "context"

type contextKey string

const userContextKey contextKey = "userID"

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserIDFromContext returns "" for guests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userContextKey).(string)
	return userID
}
