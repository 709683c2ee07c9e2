package contextkeys

// contextKey is an unexported type to prevent collisions with context keys
// defined in other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "userdb context key " + string(c)
}

// UserIDKey is the key for the authenticated user ID in context.Context.
const UserIDKey = contextKey("userID")

// UserEmailKey is the key for the authenticated user email in context.Context.
const UserEmailKey = contextKey("userEmail")

// SessionIDKey is the key for the session ID in context.Context.
const SessionIDKey = contextKey("sessionID")

// RequestIDKey is the key for the request ID in context.Context.
const RequestIDKey = contextKey("requestID")

// ComponentKey is the key for the component name in context.Context.
const ComponentKey = contextKey("component")

// OperationKey is the key for the operation name in context.Context.
const OperationKey = contextKey("operation")
