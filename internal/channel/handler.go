package channel

import (
	"net/http"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/utils"
	"mcn-dashboard/internal/visibility"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateForm struct {
	Name             string  `json:"name" binding:"required,max=255"`
	YoutubeChannelID string  `json:"youtube_channel_id" binding:"required,max=64"`
	TeamID           *uint64 `json:"team_id" binding:"omitempty,gt=0"`
	NetworkID        *uint64 `json:"network_id" binding:"omitempty,gt=0"`
	ManagerID        *uint64 `json:"manager_id" binding:"omitempty,gt=0"`
}

type UpdateForm struct {
	Name      *string    `json:"name" binding:"omitempty,max=255"`
	Status    *string    `json:"status" binding:"omitempty,oneof=active deleted"`
	TeamID    OptionalID `json:"team_id"`
	NetworkID OptionalID `json:"network_id"`
	ManagerID OptionalID `json:"manager_id"`
}

type AssignForm struct {
	StaffID   uint64 `json:"staff_id" binding:"required,gt=0"`
	ChannelID uint64 `json:"channel_id" binding:"required,gt=0"`
	Role      string `json:"role" binding:"omitempty,oneof=manager editor"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/mine", h.Mine)
	rg.POST("", adminOnly, h.Create)
	rg.PUT("/:id", adminOnly, h.Update)
	rg.DELETE("/:id", adminOnly, h.Delete)
	rg.POST("/assign", adminOnly, h.Assign)
	rg.DELETE("/:id/staff/:staffId", adminOnly, h.Unassign)
}

func (h *Handler) List(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	rows, err := h.service.List(c.Request.Context(), visibility.Caller{ID: id.ID, Role: id.Role})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) Mine(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	rows, err := h.service.Mine(c.Request.Context(), id.ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	var form CreateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	ch, err := h.service.Create(c.Request.Context(), actor.ID, CreateInput{
		Name:             form.Name,
		YoutubeChannelID: form.YoutubeChannelID,
		TeamID:           form.TeamID,
		NetworkID:        form.NetworkID,
		ManagerID:        form.ManagerID,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form UpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	ch, err := h.service.Update(c.Request.Context(), actor.ID, id, UpdateInput{
		Name:      form.Name,
		Status:    form.Status,
		TeamID:    form.TeamID,
		NetworkID: form.NetworkID,
		ManagerID: form.ManagerID,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ch)
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
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Assign(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	var form AssignForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.Assign(c.Request.Context(), actor.ID, form.StaffID, form.ChannelID, form.Role); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Unassign removes one association; ?role= defaults to manager.
func (h *Handler) Unassign(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	channelID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := utils.ParseIDParam(c, "staffId")
	if !ok {
		return
	}

	err := h.service.Unassign(c.Request.Context(), actor.ID, staffID, channelID, c.Query("role"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
