package task

import (
	"context"
	stdErrors "errors"
	"slices"
	"strings"
	"time"

	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/visibility"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// boardFallback collects tasks whose stage is not a known pipeline column.
const boardFallback = "Other"

type ScopeResolver interface {
	Resolve(ctx context.Context, caller visibility.Caller) (visibility.Scope, error)
}

type CreateInput struct {
	Title          string
	ChannelID      *uint64
	ProjectID      *uint64
	YoutubeVideoID *string
	Status         string
	PipelineStage  string
	AssigneeID     *uint64
	DueDate        *time.Time
	Checklist      []domain.ChecklistItem
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Title          *string
	ChannelID      *uint64
	ProjectID      *uint64
	YoutubeVideoID *string
	Status         *string
	PipelineStage  *string
	AssigneeID     *uint64
	DueDate        *time.Time
	Checklist      *[]domain.ChecklistItem
}

type Service interface {
	List(ctx context.Context, caller visibility.Caller, f Filter) ([]domain.Task, error)
	Board(ctx context.Context, caller visibility.Caller, f Filter) (map[string][]domain.Task, error)
	Create(ctx context.Context, caller visibility.Caller, in CreateInput) (*domain.Task, error)
	Update(ctx context.Context, caller visibility.Caller, id uint64, in UpdateInput) (*domain.Task, error)
}

type DefaultService struct {
	repository Repository
	resolver   ScopeResolver
	audit      audit.Recorder
}

func NewService(repository Repository, resolver ScopeResolver, recorder audit.Recorder) Service {
	return &DefaultService{repository: repository, resolver: resolver, audit: recorder}
}

func (s *DefaultService) List(ctx context.Context, caller visibility.Caller, f Filter) ([]domain.Task, error) {
	return s.list(ctx, caller, f, OrderByDueDate)
}

// Board groups the visible tasks by pipeline stage. Every stage has a column,
// possibly empty.
func (s *DefaultService) Board(ctx context.Context, caller visibility.Caller, f Filter) (map[string][]domain.Task, error) {
	tasks, err := s.list(ctx, caller, f, OrderByNewest)
	if err != nil {
		return nil, err
	}

	columns := make(map[string][]domain.Task, len(domain.PipelineStages)+1)
	for _, stage := range domain.PipelineStages {
		columns[stage] = []domain.Task{}
	}
	for _, t := range tasks {
		col := t.PipelineStage
		if _, ok := columns[col]; !ok {
			col = boardFallback
		}
		columns[col] = append(columns[col], t)
	}
	return columns, nil
}

func (s *DefaultService) list(ctx context.Context, caller visibility.Caller, f Filter, order string) ([]domain.Task, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, errors.Internal(err)
	}
	tasks, err := s.repository.List(ctx, Query{Filter: f, Scope: scope, StaffID: caller.ID}, order)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return tasks, nil
}

func (s *DefaultService) Create(ctx context.Context, caller visibility.Caller, in CreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.BadRequest("title is required", nil)
	}

	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !canUseChannel(scope, in.ChannelID) {
		return nil, errors.Forbidden("Cannot create task for this channel", nil)
	}

	t := &domain.Task{
		Title:          title,
		ChannelID:      in.ChannelID,
		ProjectID:      in.ProjectID,
		YoutubeVideoID: in.YoutubeVideoID,
		Status:         in.Status,
		PipelineStage:  in.PipelineStage,
		AssigneeID:     in.AssigneeID,
		DueDate:        in.DueDate,
		Checklist:      withIDs(in.Checklist),
	}
	if t.Status == "" {
		t.Status = domain.TaskIdea
	}
	if t.PipelineStage == "" {
		t.PipelineStage = domain.PipelineStages[0]
	}
	// keep the task visible to a scoped author
	if t.AssigneeID == nil && !scope.All {
		t.AssigneeID = &caller.ID
	}

	if err := s.repository.Create(ctx, t); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, caller.ID, "task.create", t.ID, map[string]any{"title": t.Title})
	return t, nil
}

func (s *DefaultService) Update(ctx context.Context, caller visibility.Caller, id uint64, in UpdateInput) (*domain.Task, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, errors.Internal(err)
	}

	t, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !visible(scope, caller.ID, t) {
		return nil, errors.NotFound("Task not found", nil)
	}
	if in.ChannelID != nil && !canUseChannel(scope, in.ChannelID) {
		return nil, errors.Forbidden("Cannot move task to this channel", nil)
	}

	changed := in.apply(t)
	if len(changed) == 0 {
		return t, nil
	}
	if t.Title == "" {
		return nil, errors.BadRequest("title is required", nil)
	}
	if err := s.repository.Save(ctx, t); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, caller.ID, "task.update", id, map[string]any{"fields": changed})
	return t, nil
}

// apply copies the set fields onto t and returns their names.
func (in UpdateInput) apply(t *domain.Task) []string {
	var changed []string
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
		changed = append(changed, "title")
	}
	if in.ChannelID != nil {
		t.ChannelID = in.ChannelID
		changed = append(changed, "channel_id")
	}
	if in.ProjectID != nil {
		t.ProjectID = in.ProjectID
		changed = append(changed, "project_id")
	}
	if in.YoutubeVideoID != nil {
		t.YoutubeVideoID = in.YoutubeVideoID
		changed = append(changed, "youtube_video_id")
	}
	if in.Status != nil {
		t.Status = *in.Status
		changed = append(changed, "status")
	}
	if in.PipelineStage != nil {
		t.PipelineStage = *in.PipelineStage
		changed = append(changed, "pipeline_stage")
	}
	if in.AssigneeID != nil {
		t.AssigneeID = in.AssigneeID
		changed = append(changed, "assignee_id")
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
		changed = append(changed, "due_date")
	}
	if in.Checklist != nil {
		t.Checklist = withIDs(*in.Checklist)
		changed = append(changed, "checklist")
	}
	return changed
}

func visible(scope visibility.Scope, staffID uint64, t *domain.Task) bool {
	if scope.All {
		return true
	}
	if t.AssigneeID != nil && *t.AssigneeID == staffID {
		return true
	}
	return t.ChannelID != nil && slices.Contains(scope.ChannelIDs, *t.ChannelID)
}

func canUseChannel(scope visibility.Scope, channelID *uint64) bool {
	return channelID == nil || scope.All || slices.Contains(scope.ChannelIDs, *channelID)
}

// withIDs returns a copy of items where every item has an id.
func withIDs(items []domain.ChecklistItem) []domain.ChecklistItem {
	out := make([]domain.ChecklistItem, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		out[i] = item
	}
	return out
}

func (s *DefaultService) record(ctx context.Context, actorID uint64, action string, id uint64, meta map[string]any) {
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: audit.EntityTask,
		EntityID:   id,
		Metadata:   meta,
	})
}

func translate(err error) error {
	switch {
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound("Task not found", err)
	case stdErrors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.BadRequest("Unknown channel, project or assignee", err)
	default:
		return errors.Internal(err)
	}
}
