package dashboard

import (
	"net/http"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/visibility"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the dashboard views on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.Summary)
	rg.GET("/channels", h.Channels)
	rg.GET("/team-summary", h.TeamSummary)
	rg.GET("/network-summary", h.NetworkSummary)
	rg.GET("/project-summary", h.ProjectSummary)
	rg.GET("/timeseries", h.Timeseries)
	rg.GET("/overview", h.Overview)
}

func callerAndFilter(c *gin.Context) (visibility.Caller, Filter, bool) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return visibility.Caller{}, Filter{}, false
	}
	return visibility.Caller{ID: id.ID, Role: id.Role}, ParseFilter(c.Request.URL.Query()), true
}

func (h *Handler) Summary(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentSummary(summary))
}

func (h *Handler) Channels(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.Channels(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentChannels(rows))
}

func (h *Handler) TeamSummary(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.Teams(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentTeams(rows))
}

func (h *Handler) NetworkSummary(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.Networks(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentNetworks(rows))
}

func (h *Handler) ProjectSummary(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.Projects(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentProjects(rows))
}

func (h *Handler) Timeseries(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.Timeseries(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentTimeseries(rows))
}

func (h *Handler) Overview(c *gin.Context) {
	caller, filter, ok := callerAndFilter(c)
	if !ok {
		return
	}

	overview, err := h.service.Overview(c.Request.Context(), caller, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PresentOverview(overview))
}
