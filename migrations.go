package main

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Each migration works on its own snapshot of the tables so later changes to
// models.go do not rewrite history.

type userV1 struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex"`
	Email        string `gorm:"size:120;uniqueIndex"`
	PasswordHash string `gorm:"size:128"`
}

func (userV1) TableName() string { return "users" }

type postV1 struct {
	ID        uint      `gorm:"primaryKey"`
	Body      string    `gorm:"size:140"`
	Timestamp time.Time `gorm:"index"`
	UserID    uint      `gorm:"index"`
	Author    userV1    `gorm:"foreignKey:UserID"`
}

func (postV1) TableName() string { return "posts" }

type userV2 struct {
	userV1
	AboutMe  *string `gorm:"size:140"`
	LastSeen *time.Time
}

func (userV2) TableName() string { return "users" }

type followV3 struct {
	FollowerID *uint
	Follower   *userV1 `gorm:"foreignKey:FollowerID"`
	FollowedID *uint
	Followed   *userV1 `gorm:"foreignKey:FollowedID"`
}

func (followV3) TableName() string { return "followers" }

type postV4 struct {
	postV1
	Language string `gorm:"size:5"`
}

func (postV4) TableName() string { return "posts" }

type migration struct {
	version string
	up      func(m gorm.Migrator) error
	down    func(m gorm.Migrator) error
}

var migrations = []migration{
	{
		version: "0001_users_posts",
		up: func(m gorm.Migrator) error {
			return m.CreateTable(&userV1{}, &postV1{})
		},
		down: func(m gorm.Migrator) error {
			return m.DropTable(&postV1{}, &userV1{})
		},
	},
	{
		version: "0002_new_fields_in_user_model",
		up: func(m gorm.Migrator) error {
			if err := m.AddColumn(&userV2{}, "AboutMe"); err != nil {
				return err
			}
			return m.AddColumn(&userV2{}, "LastSeen")
		},
		down: func(m gorm.Migrator) error {
			if err := m.DropColumn(&userV2{}, "LastSeen"); err != nil {
				return err
			}
			return m.DropColumn(&userV2{}, "AboutMe")
		},
	},
	{
		version: "0003_followers",
		up: func(m gorm.Migrator) error {
			return m.CreateTable(&followV3{})
		},
		down: func(m gorm.Migrator) error {
			return m.DropTable(&followV3{})
		},
	},
	{
		version: "0004_post_language",
		up: func(m gorm.Migrator) error {
			return m.AddColumn(&postV4{}, "Language")
		},
		down: func(m gorm.Migrator) error {
			return m.DropColumn(&postV4{}, "Language")
		},
	},
}

type schemaMigration struct {
	Version   string `gorm:"primaryKey;size:64"`
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

func appliedVersions(db *gorm.DB) (map[string]bool, error) {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return nil, fmt.Errorf("prepare schema_migrations: %w", err)
	}
	var rows []schemaMigration
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(rows))
	for _, r := range rows {
		applied[r.Version] = true
	}
	return applied, nil
}

// upgrade applies every pending migration in order and returns how many ran.
func upgrade(db *gorm.DB, logger *zap.Logger) (int, error) {
	applied, err := appliedVersions(db)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, mg := range migrations {
		if applied[mg.version] {
			continue
		}
		if err := mg.up(db.Migrator()); err != nil {
			return n, fmt.Errorf("upgrade %s: %w", mg.version, err)
		}
		if err := db.Create(&schemaMigration{Version: mg.version, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return n, fmt.Errorf("record %s: %w", mg.version, err)
		}
		logger.Info("migration applied", zap.String("version", mg.version))
		n++
	}
	return n, nil
}

var errNothingToDowngrade = errors.New("no migration to downgrade")

// downgrade reverts the most recently applied migration.
func downgrade(db *gorm.DB, logger *zap.Logger) (string, error) {
	applied, err := appliedVersions(db)
	if err != nil {
		return "", err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		mg := migrations[i]
		if !applied[mg.version] {
			continue
		}
		if err := mg.down(db.Migrator()); err != nil {
			return "", fmt.Errorf("downgrade %s: %w", mg.version, err)
		}
		if err := db.Delete(&schemaMigration{Version: mg.version}).Error; err != nil {
			return "", fmt.Errorf("forget %s: %w", mg.version, err)
		}
		logger.Info("migration reverted", zap.String("version", mg.version))
		return mg.version, nil
	}
	return "", errNothingToDowngrade
}
