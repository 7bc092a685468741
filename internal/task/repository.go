package task

import (
	"context"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/visibility"

	"gorm.io/gorm"
)

// Orderings for List.
const (
	OrderByDueDate = "due_date ASC NULLS LAST, created_at DESC, id DESC"
	OrderByNewest  = "created_at DESC, id DESC"
)

// Filter narrows a task listing. Nil fields are ignored.
type Filter struct {
	Status     *string
	ChannelID  *uint64
	ProjectID  *uint64
	AssigneeID *uint64
}

// Query is a filtered listing as seen by one staff member.
type Query struct {
	Filter
	Scope   visibility.Scope
	StaffID uint64
}

type Repository interface {
	List(ctx context.Context, q Query, order string) ([]domain.Task, error)
	FindByID(ctx context.Context, id uint64) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Save(ctx context.Context, t *domain.Task) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// List returns the tasks matching q. Without a full scope a caller sees tasks
// on its visible channels plus tasks assigned to it.
func (r *RepositoryImpl) List(ctx context.Context, q Query, order string) ([]domain.Task, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Task{})

	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.ChannelID != nil {
		tx = tx.Where("channel_id = ?", *q.ChannelID)
	}
	if q.ProjectID != nil {
		tx = tx.Where("project_id = ?", *q.ProjectID)
	}
	if q.AssigneeID != nil {
		tx = tx.Where("assignee_id = ?", *q.AssigneeID)
	}

	if !q.Scope.All {
		if len(q.Scope.ChannelIDs) > 0 {
			tx = tx.Where("(channel_id IN ? OR assignee_id = ?)", q.Scope.ChannelIDs, q.StaffID)
		} else {
			tx = tx.Where("assignee_id = ?", q.StaffID)
		}
	}

	tasks := []domain.Task{}
	err := tx.Order(order).Find(&tasks).Error
	return tasks, err
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Omit("Channel", "Project", "Assignee").Create(t).Error
}

func (r *RepositoryImpl) Save(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Omit("Channel", "Project", "Assignee").Save(t).Error
}
