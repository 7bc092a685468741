package staff

import (
	"context"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/utils"

	"gorm.io/gorm"
)

// Repository defines the interface for staff data access
type Repository interface {
	// CreateBootstrapping inserts s, promoting it to admin when no staff
	// account exists yet.
	CreateBootstrapping(ctx context.Context, s *domain.Staff) error
	Create(ctx context.Context, s *domain.Staff) error
	FindByEmail(ctx context.Context, email string) (*domain.Staff, error)
	FindByID(ctx context.Context, id uint64) (*domain.Staff, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Staff, int64, error)
	UpdateRole(ctx context.Context, id uint64, role string) error
	IncrementTokenVersion(ctx context.Context, id uint64) error
	SoftDelete(ctx context.Context, id uint64) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateBootstrapping(ctx context.Context, s *domain.Staff) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialises concurrent first registrations so only one becomes admin.
		if err := tx.Exec("LOCK TABLE staff_users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.Staff{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			s.Role = domain.RoleAdmin
		}
		return tx.Create(s).Error
	})
}

func (r *RepositoryImpl) Create(ctx context.Context, s *domain.Staff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *RepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	var s domain.Staff
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Staff, error) {
	var s domain.Staff
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns active staff ordered by name.
func (r *RepositoryImpl) List(ctx context.Context, page, pageSize int) ([]domain.Staff, int64, error) {
	staff := []domain.Staff{}
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.Staff{}).Where("role <> ?", domain.RoleDeleted)
	if err := q.Count(&total).Error; err != nil {
		return staff, 0, err
	}
	err := q.Order("name ASC, id ASC").
		Offset(utils.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&staff).Error
	return staff, total, err
}

func (r *RepositoryImpl) UpdateRole(ctx context.Context, id uint64, role string) error {
	res := r.db.WithContext(ctx).Model(&domain.Staff{}).Where("id = ?", id).
		Updates(map[string]any{
			"role":          role,
			"token_version": gorm.Expr("token_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) IncrementTokenVersion(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&domain.Staff{}).Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

// SoftDelete marks the account deleted, revokes its tokens and removes every
// channel association in one transaction.
func (r *RepositoryImpl) SoftDelete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Staff{}).Where("id = ?", id).
			Updates(map[string]any{
				"role":          domain.RoleDeleted,
				"token_version": gorm.Expr("token_version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("staff_id = ?", id).Delete(&domain.StaffChannel{}).Error
	})
}
