package youtube

import (
	"context"

	"mcn-dashboard/internal/channel"
	"mcn-dashboard/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Target is one active channel reachable through a stored connection.
type Target struct {
	ConnectionID     uint64 `gorm:"column:connection_id"`
	RefreshToken     string `gorm:"column:refresh_token"`
	ChannelID        uint64 `gorm:"column:channel_id"`
	YoutubeChannelID string `gorm:"column:youtube_channel_id"`
}

type Repository interface {
	// SaveConnection stores the account's tokens, upserts its channels and
	// makes staffID their manager, all in one transaction. It returns the
	// local ids of the channels.
	SaveConnection(ctx context.Context, staffID uint64, acct *Account) ([]uint64, error)
	SyncTargets(ctx context.Context) ([]Target, error)
	UpsertMetrics(ctx context.Context, channelID uint64, days []DayMetrics) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) SaveConnection(ctx context.Context, staffID uint64, acct *Account) ([]uint64, error) {
	ids := make([]uint64, 0, len(acct.Channels))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conn := domain.YoutubeConnection{
			StaffID:          staffID,
			GoogleEmail:      acct.Email,
			ChannelOwnerName: acct.Name,
		}
		if acct.Token != nil {
			conn.AccessToken = nonEmpty(acct.Token.AccessToken)
			conn.RefreshToken = nonEmpty(acct.Token.RefreshToken)
			if !acct.Token.Expiry.IsZero() {
				expiry := acct.Token.Expiry
				conn.TokenExpiry = &expiry
			}
		}
		if err := tx.Omit(clause.Associations).Create(&conn).Error; err != nil {
			return err
		}

		for _, remote := range acct.Channels {
			ch := domain.Channel{
				Name:              remote.Title,
				YoutubeChannelID:  remote.ID,
				OwnerConnectionID: &conn.ID,
				Status:            domain.ChannelActive,
			}
			err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "youtube_channel_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"owner_connection_id", "status"}),
			}).Create(&ch).Error
			if err != nil {
				return err
			}

			var id uint64
			err = tx.Model(&domain.Channel{}).
				Select("id").
				Where("youtube_channel_id = ?", remote.ID).
				Scan(&id).Error
			if err != nil {
				return err
			}
			if err := channel.SetManager(tx, id, &staffID); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (r *RepositoryImpl) SyncTargets(ctx context.Context) ([]Target, error) {
	targets := []Target{}
	err := r.db.WithContext(ctx).
		Table("youtube_connections AS yc").
		Select("yc.id AS connection_id, yc.refresh_token, c.id AS channel_id, c.youtube_channel_id").
		Joins("JOIN channels c ON c.owner_connection_id = yc.id").
		Where("c.status = ? AND yc.refresh_token IS NOT NULL AND yc.refresh_token <> ''", domain.ChannelActive).
		Order("yc.id, c.id").
		Scan(&targets).Error
	return targets, err
}

// UpsertMetrics writes the days for channelID, replacing rows already stored
// for the same dates.
func (r *RepositoryImpl) UpsertMetrics(ctx context.Context, channelID uint64, days []DayMetrics) error {
	if len(days) == 0 {
		return nil
	}
	rows := make([]domain.MetricDay, 0, len(days))
	for _, d := range days {
		rows = append(rows, domain.MetricDay{
			ChannelID:        channelID,
			Date:             d.Date,
			Views:            d.Views,
			WatchTimeMinutes: d.WatchTimeMinutes,
			Revenue:          d.Revenue,
			SubsGained:       d.SubsGained,
			SubsLost:         d.SubsLost,
		})
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"views", "watch_time_minutes", "revenue", "subs_gained", "subs_lost"}),
		}).
		CreateInBatches(rows, 500).Error
}
