package project

import (
	"context"

	"mcn-dashboard/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Project, error)
	FindByID(ctx context.Context, id uint64) (*domain.Project, error)
	Create(ctx context.Context, p *domain.Project) error
	Save(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id uint64) error
	ChannelIDs(ctx context.Context, projectID uint64) ([]uint64, error)
	// LinkChannel is idempotent: linking an already linked channel is a no-op.
	LinkChannel(ctx context.Context, projectID, channelID uint64) error
	UnlinkChannel(ctx context.Context, projectID, channelID uint64) (bool, error)
	ChannelExists(ctx context.Context, channelID uint64) (bool, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) List(ctx context.Context) ([]domain.Project, error) {
	projects := []domain.Project{}
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&projects).Error
	return projects, err
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Project, error) {
	var p domain.Project
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, p *domain.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *RepositoryImpl) Save(ctx context.Context, p *domain.Project) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Delete removes the project; its channel links cascade.
func (r *RepositoryImpl) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Project{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) ChannelIDs(ctx context.Context, projectID uint64) ([]uint64, error) {
	ids := []uint64{}
	err := r.db.WithContext(ctx).Model(&domain.ProjectChannel{}).
		Where("project_id = ?", projectID).
		Order("channel_id").
		Pluck("channel_id", &ids).Error
	return ids, err
}

func (r *RepositoryImpl) LinkChannel(ctx context.Context, projectID, channelID uint64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ProjectChannel{ProjectID: projectID, ChannelID: channelID}).Error
}

func (r *RepositoryImpl) UnlinkChannel(ctx context.Context, projectID, channelID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND channel_id = ?", projectID, channelID).
		Delete(&domain.ProjectChannel{})
	return res.RowsAffected > 0, res.Error
}

func (r *RepositoryImpl) ChannelExists(ctx context.Context, channelID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Channel{}).
		Where("id = ? AND status = ?", channelID, domain.ChannelActive).
		Count(&count).Error
	return count > 0, err
}
