package middlewares

// gin context keys. Untyped string consts so they work with gin's string-keyed
// Set/Get.
const (
	CtxRequestID = "requestID"

	ctxUserKey     = "auth.user"
	ctxUserIDKey   = "auth.userID"
	ctxUsernameKey = "auth.username"
	ctxRoleKey     = "auth.role"
)
