package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// UserIDFromTokenMiddleware extracts the user ID from the JWT claims and
// stores it in the request context.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// AdminOnlyMiddleware ensures the requester has the admin role.
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	if claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}
	ctx.Next()
}

// RequestUserID pulls the authenticated user ID set by
// UserIDFromTokenMiddleware; the bool is false when the middleware did not
// run.
func RequestUserID(ctx iris.Context) (uint, bool) {
	value := ctx.Values().Get("userID")
	if value == nil {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
