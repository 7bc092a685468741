package db

import (
	"errors"
	"fmt"
	"time"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/logging"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Staff{},
		&domain.Team{},
		&domain.Network{},
		&domain.Project{},
		&domain.YoutubeConnection{},
		&domain.Channel{},
		&domain.StaffChannel{},
		&domain.ProjectChannel{},
		&domain.MetricDay{},
		&domain.Task{},
		&domain.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logging.Info().Msg("database schema migrated successfully")
	return nil
}

// SeedData seeds a development dataset: one admin and a demo channel with two
// days of metrics. Existing rows are left untouched.
func SeedData(db *gorm.DB) error {
	var admin domain.Staff
	err := db.Where("email = ?", "admin@example.com").First(&admin).Error
	if err == nil {
		logging.Info().Str("email", admin.Email).Msg("seed admin already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin = domain.Staff{
			Name:         "Admin",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		team := domain.Team{Name: "Gaming"}
		network := domain.Network{Name: "Main Network"}
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		if err := tx.Create(&network).Error; err != nil {
			return err
		}

		channel := domain.Channel{
			Name:             "Demo Channel",
			YoutubeChannelID: "UCdemo000000000000000000",
			TeamID:           &team.ID,
			NetworkID:        &network.ID,
			Status:           domain.ChannelActive,
		}
		if err := tx.Create(&channel).Error; err != nil {
			return err
		}

		today := time.Now().UTC().Truncate(24 * time.Hour)
		days := []domain.MetricDay{
			{ChannelID: channel.ID, Date: today.AddDate(0, 0, -2), Views: 1000, WatchTimeMinutes: 3200, Revenue: decimal.RequireFromString("5.00")},
			{ChannelID: channel.ID, Date: today.AddDate(0, 0, -1), Views: 500, WatchTimeMinutes: 1400, Revenue: decimal.RequireFromString("1.00")},
		}
		if err := tx.Create(&days).Error; err != nil {
			return err
		}

		logging.Info().Str("email", admin.Email).Msg("created seed admin")
		return tx.Create(&domain.StaffChannel{
			StaffID:   admin.ID,
			ChannelID: channel.ID,
			Role:      domain.AssignmentManager,
		}).Error
	})
}
