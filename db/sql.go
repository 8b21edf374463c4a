package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"xinji/config"
	"xinji/models"
)

// OpenSQL 은 users/diaries/orders/payment_records 를 담는 관계형 DB 를 연다.
// SQL_DSN 환경변수가 있으면 sql.dsn 보다 우선한다.
func OpenSQL(cfg config.SQLConfig) (*gorm.DB, error) {
	dsn := os.Getenv("SQL_DSN")
	if dsn == "" {
		dsn = cfg.DSN
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if err := AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	config.Logger.Infof("SQL store connected (driver=%s)", cfg.Driver)
	return gdb, nil
}

func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.User{}, &models.Diary{}, &models.Order{}, &models.PaymentRecord{})
}
