// Package audit records who changed what. Writes are best effort: a failed
// audit insert is logged and never fails the mutation that caused it.
package audit

import (
	"context"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/logging"
	"mcn-dashboard/internal/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entity types.
const (
	EntityStaff   = "staff_user"
	EntityChannel = "channel"
	EntityTeam    = "team"
	EntityNetwork = "network"
	EntityProject = "project"
	EntityTask    = "task"
)

type Entry struct {
	ActorID    uint64
	Action     string
	EntityType string
	EntityID   uint64
	Metadata   map[string]any
}

// Recorder is what mutating services depend on.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type Repository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, entityType string, page, pageSize int) ([]domain.AuditLog, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) List(ctx context.Context, entityType string, page, pageSize int) ([]domain.AuditLog, int64, error) {
	logs := []domain.AuditLog{}
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.AuditLog{})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if err := q.Count(&total).Error; err != nil {
		return logs, 0, err
	}

	err := q.Order("created_at DESC, id DESC").
		Offset(utils.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Record(ctx context.Context, e Entry) {
	log := &domain.AuditLog{
		Action:     e.Action,
		EntityType: e.EntityType,
		Metadata:   datatypes.JSONMap(e.Metadata),
	}
	if log.Metadata == nil {
		log.Metadata = datatypes.JSONMap{}
	}
	if e.ActorID != 0 {
		actor := e.ActorID
		log.ActorUserID = &actor
	}
	if e.EntityID != 0 {
		entity := e.EntityID
		log.EntityID = &entity
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), log); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("action", e.Action).
			Str("entity_type", e.EntityType).
			Msg("failed to write audit log")
	}
}

type Page struct {
	Data []domain.AuditLog `json:"data"`
	Meta utils.PageMeta    `json:"meta"`
}

func (s *Service) List(ctx context.Context, entityType string, page, pageSize int) (*Page, error) {
	logs, total, err := s.repo.List(ctx, entityType, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &Page{Data: logs, Meta: utils.NewPageMeta(total, page, pageSize)}, nil
}
