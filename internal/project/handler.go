package project

import (
	"net/http"
	"time"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/utils"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type Form struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	StartDate   *string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

func (f Form) input() Input {
	return Input{
		Name:        f.Name,
		Description: f.Description,
		StartDate:   parseDate(f.StartDate),
		EndDate:     parseDate(f.EndDate),
	}
}

// parseDate expects a value already checked by the binding tag.
func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

type LinkForm struct {
	ChannelID uint64 `json:"channel_id" binding:"required,gt=0"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", adminOnly, h.Create)
	rg.PUT("/:id", adminOnly, h.Update)
	rg.DELETE("/:id", adminOnly, h.Delete)
	rg.POST("/:id/channels", adminOnly, h.LinkChannel)
	rg.DELETE("/:id/channels/:channelId", adminOnly, h.UnlinkChannel)
}

func (h *Handler) List(c *gin.Context) {
	projects, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	p, err := h.service.Create(c.Request.Context(), actor.ID, form.input())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
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

	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	p, err := h.service.Update(c.Request.Context(), actor.ID, id, form.input())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
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

func (h *Handler) LinkChannel(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form LinkForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.LinkChannel(c.Request.Context(), actor.ID, id, form.ChannelID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnlinkChannel(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	channelID, ok := utils.ParseIDParam(c, "channelId")
	if !ok {
		return
	}

	if err := h.service.UnlinkChannel(c.Request.Context(), actor.ID, id, channelID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
