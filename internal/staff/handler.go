package staff

import (
	"net/http"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/logging"
	"mcn-dashboard/internal/utils"

	"github.com/gin-gonic/gin"
)

const refreshCookie = "refresh_token"

// Handler handles authentication and staff administration requests
type Handler struct {
	service      Service
	tokens       *auth.TokenManager
	secureCookie bool
}

func NewHandler(service Service, tokens *auth.TokenManager, secureCookie bool) *Handler {
	return &Handler{service: service, tokens: tokens, secureCookie: secureCookie}
}

// FormLogin represents login form data
type FormLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// FormRegister represents registration form data
type FormRegister struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// FormCreate is the admin variant of FormRegister with an explicit role.
type FormCreate struct {
	FormRegister
	Role string `json:"role" binding:"required,oneof=viewer manager admin"`
}

type FormRole struct {
	Role string `json:"role" binding:"required,oneof=viewer manager admin"`
}

// Register handles self sign-up
func (h *Handler) Register(c *gin.Context) {
	var form FormRegister
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	st := &domain.Staff{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	}
	if err := h.service.Register(c.Request.Context(), st); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": st.ToSafeStaff()})
}

// Login handles staff login
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	st, err := h.service.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(st.ID, st.Role, st.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	refreshToken, err := h.tokens.GenerateRefreshToken(st.ID, st.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	// Set refresh token as HttpOnly cookie
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		refreshCookie,
		refreshToken,
		int(h.tokens.RefreshTTL().Seconds()),
		"/api/auth",
		"",
		h.secureCookie, // Secure
		true,           // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"user":         st.ToSafeStaff(),
	})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil {
		c.Error(errors.Unauthorized("Missing refresh token", err))
		return
	}

	claims, err := h.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		c.Error(errors.Unauthorized("Invalid token or expired!", err))
		return
	}

	staffID, err := claims.StaffID()
	if err != nil {
		c.Error(errors.Unauthorized("Invalid token", err))
		return
	}

	st, err := h.service.GetStaffByID(c.Request.Context(), staffID)
	if err != nil {
		c.Error(errors.Unauthorized("Staff not found", err))
		return
	}

	// Check token version
	if st.IsDeleted() || st.TokenVersion != claims.TokenVersion {
		c.Error(errors.Unauthorized("Invalid token!", nil))
		return
	}

	// Issue new access token
	newAccessToken, err := h.tokens.GenerateAccessToken(st.ID, st.Role, st.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": newAccessToken,
	})
}

// Logout revokes the caller's tokens and clears the refresh cookie
func (h *Handler) Logout(c *gin.Context) {
	if id, ok := auth.IdentityFrom(c); ok {
		if err := h.service.Logout(c.Request.Context(), id.ID); err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Uint64("staff_id", id.ID).Msg("failed to revoke tokens on logout")
		}
	}
	// Clear refresh cookie
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

// Me returns the caller's profile
func (h *Handler) Me(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	st, err := h.service.GetStaffByID(c.Request.Context(), id.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, st.ToSafeStaff())
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)

	result, err := h.service.List(c.Request.Context(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	var form FormCreate
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	st := &domain.Staff{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
	}
	if err := h.service.Create(c.Request.Context(), actor.ID, st); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": st.ToSafeStaff()})
}

func (h *Handler) ChangeRole(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form FormRole
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	st, err := h.service.ChangeRole(c.Request.Context(), actor.ID, id, form.Role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": st.ToSafeStaff()})
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor.ID, id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
