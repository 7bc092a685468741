package middleware

import (
	"context"
	"strings"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"

	"github.com/gin-gonic/gin"
)

type StaffProvider interface {
	GetStaffByID(ctx context.Context, id uint64) (*domain.Staff, error)
}

type Auth struct {
	Tokens *auth.TokenManager
	Staff  StaffProvider
}

// AuthMiddleWare resolves the caller from the bearer token and fails closed
// on anything it cannot verify.
func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			ctx.Error(errors.Unauthorized("Missing or invalid token", nil))
			ctx.Abort()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.Tokens.Verify(token, auth.KindAccess)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid or expired token", err))
			ctx.Abort()
			return
		}

		staffID, err := claims.StaffID()
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token", err))
			ctx.Abort()
			return
		}

		staff, err := m.Staff.GetStaffByID(ctx.Request.Context(), staffID)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid staff ID", err))
			ctx.Abort()
			return
		}

		if staff.IsDeleted() {
			ctx.Error(errors.Unauthorized("Account disabled", nil))
			ctx.Abort()
			return
		}

		// Check token version
		if staff.TokenVersion != claims.TokenVersion {
			ctx.Error(errors.Unauthorized("Invalid token version", nil))
			ctx.Abort()
			return
		}

		// Role comes from the database so demotions apply immediately.
		auth.SetIdentity(ctx, auth.Identity{ID: staff.ID, Role: staff.Role})
		ctx.Next()
	}
}
