package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const SearchLimit = 10

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// DatabasePath resolves the live database location. INVENTORY_DB overrides
// the default file in the working directory.
func DatabasePath() string {
	if p := os.Getenv("INVENTORY_DB"); p != "" {
		return p
	}
	return "inventory.db"
}

// BackupDir resolves where backup artifacts are written.
func BackupDir() string {
	if p := os.Getenv("INVENTORY_BACKUP_DIR"); p != "" {
		return p
	}
	return "backups"
}

// ConfigPath resolves the JSON config file location.
func ConfigPath() string {
	if p := os.Getenv("INVENTORY_CONFIG"); p != "" {
		return p
	}
	return "config.json"
}

// ConnectDatabase opens the SQLite database and sets the global DB.
//
// journal_mode=DELETE keeps the whole store inside a single file, which is
// what lets the backup manager snapshot it with a plain file copy.
func ConnectDatabase(path string) error {
	dsn := fmt.Sprintf("file:%s?_journal_mode=DELETE&_busy_timeout=5000", path)

	var err error
	db, err = gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		return fmt.Errorf("open sqlite at %s: %w", path, err)
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		// Single-writer model: one connection avoids SQLITE_BUSY races
		// between pooled connections.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxIdleTime(time.Minute)
	}

	log.Printf("connected to database (path=%s)", path)
	return nil
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
