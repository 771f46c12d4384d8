package common

import "context"

type contextKey string

const (
	CorrelationIDKey contextKey = "correlationId"
	RoleKey          contextKey = "role"
)

// Role is the access level granted to a request by its API key.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleReader    Role = "reader"
	RoleWriter    Role = "writer"
)

func GetCorrelationID(ctx context.Context) string {
	if val, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return val
	}
	return ""
}

func GetRole(ctx context.Context) Role {
	if val, ok := ctx.Value(RoleKey).(Role); ok {
		return val
	}
	return RoleAnonymous
}
