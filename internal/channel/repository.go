package channel

import (
	"context"
	"time"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/visibility"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// View is a channel with its dimension and manager names resolved.
type View struct {
	ID               uint64    `gorm:"column:id" json:"id"`
	Name             string    `gorm:"column:name" json:"name"`
	YoutubeChannelID string    `gorm:"column:youtube_channel_id" json:"youtube_channel_id"`
	Status           string    `gorm:"column:status" json:"status"`
	NetworkID        *uint64   `gorm:"column:network_id" json:"network_id"`
	TeamID           *uint64   `gorm:"column:team_id" json:"team_id"`
	NetworkName      *string   `gorm:"column:network_name" json:"network_name"`
	TeamName         *string   `gorm:"column:team_name" json:"team_name"`
	ManagerID        *uint64   `gorm:"column:manager_id" json:"manager_id"`
	ManagerName      *string   `gorm:"column:manager_name" json:"manager_name"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
}

type Repository interface {
	// List returns the active channels inside scope, newest first.
	List(ctx context.Context, scope visibility.Scope) ([]View, error)
	// ListForStaff returns the active channels staffID is associated with
	// under any role.
	ListForStaff(ctx context.Context, staffID uint64) ([]View, error)
	FindByID(ctx context.Context, id uint64) (*domain.Channel, error)
	Create(ctx context.Context, ch *domain.Channel, managerID *uint64) error
	// Update writes the editable columns of ch. When replaceManager is set
	// the channel's manager association is replaced by managerID (or
	// removed when managerID is nil) in the same transaction.
	Update(ctx context.Context, ch *domain.Channel, replaceManager bool, managerID *uint64) error
	Assign(ctx context.Context, staffID, channelID uint64, role string) error
	Unassign(ctx context.Context, staffID, channelID uint64, role string) (bool, error)
	SoftDelete(ctx context.Context, id uint64) error
	StaffActive(ctx context.Context, staffID uint64) (bool, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

const listSQL = `
SELECT
	c.id, c.name, c.youtube_channel_id, c.status, c.network_id, c.team_id, c.created_at,
	n.name AS network_name,
	t.name AS team_name,
	m.id   AS manager_id,
	m.name AS manager_name
FROM channels c
LEFT JOIN networks n ON n.id = c.network_id
LEFT JOIN teams t ON t.id = c.team_id
LEFT JOIN (
	SELECT DISTINCT ON (channel_id) channel_id, staff_id
	FROM staff_channels
	WHERE role = 'manager'
	ORDER BY channel_id, staff_id
) mc ON mc.channel_id = c.id
LEFT JOIN staff_users m ON m.id = mc.staff_id
WHERE c.status = 'active' AND ?
ORDER BY c.created_at DESC, c.id DESC`

func (r *RepositoryImpl) List(ctx context.Context, scope visibility.Scope) ([]View, error) {
	rows := []View{}
	if scope.Empty() {
		return rows, nil
	}

	cond := gorm.Expr("TRUE")
	if !scope.All {
		cond = gorm.Expr("c.id IN ?", scope.ChannelIDs)
	}
	err := r.db.WithContext(ctx).Raw(listSQL, cond).Scan(&rows).Error
	return rows, err
}

func (r *RepositoryImpl) ListForStaff(ctx context.Context, staffID uint64) ([]View, error) {
	rows := []View{}
	cond := gorm.Expr("EXISTS (SELECT 1 FROM staff_channels sc WHERE sc.channel_id = c.id AND sc.staff_id = ?)", staffID)
	err := r.db.WithContext(ctx).Raw(listSQL, cond).Scan(&rows).Error
	return rows, err
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Channel, error) {
	var ch domain.Channel
	if err := r.db.WithContext(ctx).First(&ch, id).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, ch *domain.Channel, managerID *uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(ch).Error; err != nil {
			return err
		}
		if managerID == nil {
			return nil
		}
		return tx.Create(&domain.StaffChannel{
			StaffID:   *managerID,
			ChannelID: ch.ID,
			Role:      domain.AssignmentManager,
		}).Error
	})
}

func (r *RepositoryImpl) Update(ctx context.Context, ch *domain.Channel, replaceManager bool, managerID *uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(ch).
			Select("name", "team_id", "network_id", "status").
			Updates(map[string]any{
				"name":       ch.Name,
				"team_id":    ch.TeamID,
				"network_id": ch.NetworkID,
				"status":     ch.Status,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if !replaceManager {
			return nil
		}
		return SetManager(tx, ch.ID, managerID)
	})
}

// SetManager leaves managerID (if any) as the only manager of channelID.
func SetManager(tx *gorm.DB, channelID uint64, managerID *uint64) error {
	q := tx.Where("channel_id = ? AND role = ?", channelID, domain.AssignmentManager)
	if managerID != nil {
		q = q.Where("staff_id <> ?", *managerID)
	}
	if err := q.Delete(&domain.StaffChannel{}).Error; err != nil {
		return err
	}
	if managerID == nil {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.StaffChannel{
		StaffID:   *managerID,
		ChannelID: channelID,
		Role:      domain.AssignmentManager,
	}).Error
}

// Assign is idempotent. Assigning a manager replaces the previous one.
func (r *RepositoryImpl) Assign(ctx context.Context, staffID, channelID uint64, role string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if role == domain.AssignmentManager {
			return SetManager(tx, channelID, &staffID)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.StaffChannel{
			StaffID:   staffID,
			ChannelID: channelID,
			Role:      role,
		}).Error
	})
}

func (r *RepositoryImpl) Unassign(ctx context.Context, staffID, channelID uint64, role string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("staff_id = ? AND channel_id = ? AND role = ?", staffID, channelID, role).
		Delete(&domain.StaffChannel{})
	return res.RowsAffected > 0, res.Error
}

// SoftDelete marks the channel deleted. Its metrics and associations stay.
func (r *RepositoryImpl) SoftDelete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Model(&domain.Channel{}).
		Where("id = ? AND status <> ?", id, domain.ChannelDeleted).
		Update("status", domain.ChannelDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) StaffActive(ctx context.Context, staffID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Staff{}).
		Where("id = ? AND role <> ?", staffID, domain.RoleDeleted).
		Count(&count).Error
	return count > 0, err
}
