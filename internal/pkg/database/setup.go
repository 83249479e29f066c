package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/internal/pkg/env"
)

const maxConnectRetries = 5
const connectRetryDelay = 5 * time.Second

var DB *gorm.DB

func SetupDatabase() {
	var err error
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxConnectRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			configurePool(DB)
			DB.AutoMigrate(
				&models.User{},
				&models.GallerySession{},
				&models.Photo{},
				&models.PricingPolicy{},
				&models.Entitlement{},
				&models.Order{},
				&models.OrderItem{},
				&models.DownloadToken{},
				&models.WebhookEvent{},
				&models.DownloadHistory{},
				&models.SuspiciousActivity{},
				&models.RevenueAggregate{},
			)
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxConnectRetries, err)
		if i < maxConnectRetries-1 {
			log.Printf("Retrying in %v...", connectRetryDelay)
			time.Sleep(connectRetryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// configurePool applies pool sizing from the environment. The transaction
// runtime samples these limits when classifying pool exhaustion.
func configurePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Could not access sql.DB for pool configuration: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(intEnv("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(intEnv("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(time.Duration(intEnv("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute)
}

func intEnv(key string, def int) int {
	var v int
	if _, err := fmt.Sscanf(env.GetEnv(key, ""), "%d", &v); err != nil || v <= 0 {
		return def
	}
	return v
}

// GetDB returns the global GORM handle.
func GetDB() *gorm.DB {
	return DB
}

// SetDB swaps the global handle; used by tests.
func SetDB(db *gorm.DB) {
	DB = db
}
