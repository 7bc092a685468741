package task

import (
	"net/http"
	"time"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/utils"
	"mcn-dashboard/internal/visibility"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type FilterForm struct {
	Status     *string `form:"status" binding:"omitempty,oneof=idea script shooting editing review scheduled published cancelled"`
	ChannelID  *uint64 `form:"channelId" binding:"omitempty,gt=0"`
	ProjectID  *uint64 `form:"projectId" binding:"omitempty,gt=0"`
	AssigneeID *uint64 `form:"assigneeId" binding:"omitempty,gt=0"`
}

func (f FilterForm) filter() Filter {
	return Filter{Status: f.Status, ChannelID: f.ChannelID, ProjectID: f.ProjectID, AssigneeID: f.AssigneeID}
}

type ChecklistForm struct {
	ID    string `json:"id" binding:"max=64"`
	Label string `json:"label" binding:"required,max=500"`
	Done  bool   `json:"done"`
}

type CreateForm struct {
	Title          string          `json:"title" binding:"required,max=255"`
	ChannelID      *uint64         `json:"channel_id" binding:"omitempty,gt=0"`
	ProjectID      *uint64         `json:"project_id" binding:"omitempty,gt=0"`
	YoutubeVideoID *string         `json:"youtube_video_id" binding:"omitempty,max=64"`
	Status         string          `json:"status" binding:"omitempty,oneof=idea script shooting editing review scheduled published cancelled"`
	PipelineStage  string          `json:"pipeline_stage" binding:"omitempty,oneof=Idea Script Shooting Editing Review Scheduled Published"`
	AssigneeID     *uint64         `json:"assignee_id" binding:"omitempty,gt=0"`
	DueDate        *string         `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Checklist      []ChecklistForm `json:"checklist" binding:"omitempty,max=100,dive"`
}

type UpdateForm struct {
	Title          *string          `json:"title" binding:"omitempty,min=1,max=255"`
	ChannelID      *uint64          `json:"channel_id" binding:"omitempty,gt=0"`
	ProjectID      *uint64          `json:"project_id" binding:"omitempty,gt=0"`
	YoutubeVideoID *string          `json:"youtube_video_id" binding:"omitempty,max=64"`
	Status         *string          `json:"status" binding:"omitempty,oneof=idea script shooting editing review scheduled published cancelled"`
	PipelineStage  *string          `json:"pipeline_stage" binding:"omitempty,oneof=Idea Script Shooting Editing Review Scheduled Published"`
	AssigneeID     *uint64          `json:"assignee_id" binding:"omitempty,gt=0"`
	DueDate        *string          `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Checklist      *[]ChecklistForm `json:"checklist" binding:"omitempty,max=100,dive"`
}

func (f CreateForm) input() CreateInput {
	return CreateInput{
		Title:          f.Title,
		ChannelID:      f.ChannelID,
		ProjectID:      f.ProjectID,
		YoutubeVideoID: f.YoutubeVideoID,
		Status:         f.Status,
		PipelineStage:  f.PipelineStage,
		AssigneeID:     f.AssigneeID,
		DueDate:        parseDate(f.DueDate),
		Checklist:      checklist(f.Checklist),
	}
}

func (f UpdateForm) input() UpdateInput {
	in := UpdateInput{
		Title:          f.Title,
		ChannelID:      f.ChannelID,
		ProjectID:      f.ProjectID,
		YoutubeVideoID: f.YoutubeVideoID,
		Status:         f.Status,
		PipelineStage:  f.PipelineStage,
		AssigneeID:     f.AssigneeID,
		DueDate:        parseDate(f.DueDate),
	}
	if f.Checklist != nil {
		items := checklist(*f.Checklist)
		in.Checklist = &items
	}
	return in
}

func checklist(forms []ChecklistForm) []domain.ChecklistItem {
	items := make([]domain.ChecklistItem, len(forms))
	for i, f := range forms {
		items[i] = domain.ChecklistItem{ID: f.ID, Label: f.Label, Done: f.Done}
	}
	return items
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/board", h.Board)
	rg.POST("", h.Create)
	rg.PATCH("/:id", h.Update)
}

func callerAndFilter(c *gin.Context) (visibility.Caller, Filter, bool) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return visibility.Caller{}, Filter{}, false
	}
	var form FilterForm
	if err := c.ShouldBindQuery(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return visibility.Caller{}, Filter{}, false
	}
	return visibility.Caller{ID: id.ID, Role: id.Role}, form.filter(), true
}

func (h *Handler) List(c *gin.Context) {
	caller, f, ok := callerAndFilter(c)
	if !ok {
		return
	}

	tasks, err := h.service.List(c.Request.Context(), caller, f)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (h *Handler) Board(c *gin.Context) {
	caller, f, ok := callerAndFilter(c)
	if !ok {
		return
	}

	columns, err := h.service.Board(c.Request.Context(), caller, f)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *Handler) Create(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	var form CreateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	t, err := h.service.Create(c.Request.Context(), visibility.Caller{ID: id.ID, Role: id.Role}, form.input())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": t})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form UpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	t, err := h.service.Update(c.Request.Context(), visibility.Caller{ID: id.ID, Role: id.Role}, taskID, form.input())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}
