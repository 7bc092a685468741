package audit

import (
	"net/http"

	"mcn-dashboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns audit entries newest first, optionally narrowed by
// ?entity_type=.
func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)

	result, err := h.service.List(c.Request.Context(), c.Query("entity_type"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
