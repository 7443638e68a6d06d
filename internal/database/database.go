package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dreamingdragons/roostbot/internal/models"
)

var DB *gorm.DB

// Init opens the configured database and migrates the schema. dbType selects
// the driver: "sqlite" (pure Go, default), "sqlite3" (cgo) or "postgres".
func Init(dbType, dsn string) error {
	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite3":
		dialector = cgosqlite.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	DB = db

	return DB.AutoMigrate(
		&models.LevelSettings{},
		&models.UserLevel{},
		&models.LevelReward{},
		&models.ReactionRole{},
		&models.DeviantArtFeed{},
		&models.ServiceStatus{},
		&models.SystemStat{},
	)
}

func Close() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err == nil {
		sqlDB.Close()
	}
}

// WithRetry runs op up to three times, backing off briefly between attempts.
// Not-found is returned immediately; it never resolves by retrying.
func WithRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = op()
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return err
}
