package auth

import (
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"

	"github.com/gin-gonic/gin"
)

// RequireRole rejects callers ranked below minRole. It must run after the
// authentication middleware.
func RequireRole(minRole string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := IdentityFrom(ctx)
		if !ok {
			ctx.Error(errors.Unauthorized("Unauthorized", nil))
			ctx.Abort()
			return
		}
		if domain.RoleRank(id.Role) < domain.RoleRank(minRole) {
			ctx.Error(errors.Forbidden("Forbidden", nil))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
