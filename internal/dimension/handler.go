package dimension

import (
	"net/http"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type Form struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type Handler[T any, P Model[T]] struct {
	service *Service[T, P]
}

func NewHandler[T any, P Model[T]](service *Service[T, P]) *Handler[T, P] {
	return &Handler[T, P]{service: service}
}

// RegisterRoutes mounts list for every authenticated caller and the
// mutations behind the admin gate.
func (h *Handler[T, P]) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", adminOnly, h.Create)
	rg.PUT("/:id", adminOnly, h.Update)
	rg.DELETE("/:id", adminOnly, h.Delete)
}

func (h *Handler[T, P]) List(c *gin.Context) {
	rows, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler[T, P]) Create(c *gin.Context) {
	actor, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	row, err := h.service.Create(c.Request.Context(), actor.ID, form.Name, form.Description)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *Handler[T, P]) Update(c *gin.Context) {
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

	row, err := h.service.Update(c.Request.Context(), actor.ID, id, form.Name, form.Description)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler[T, P]) Delete(c *gin.Context) {
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
