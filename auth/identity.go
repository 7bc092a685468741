package auth

import (
	"mcn-dashboard/internal/errors"

	"github.com/gin-gonic/gin"
)

const identityKey = "staff_identity"

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID   uint64
	Role string
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// CurrentIdentity returns the caller, recording a 401 on the context when the
// request was not authenticated.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.Error(errors.Unauthorized("Authentication required", nil))
	}
	return id, ok
}
