package auth

import (
	"context"

	"github.com/google/uuid"
)

type userIDKey struct{}

// ContextWithUserID stores the authenticated staff user's ID; the
// idempotency and logging middleware read it back per request.
func ContextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext reports the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
