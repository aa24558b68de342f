package database

import (
	"database/sql/driver"
	"fmt"
	"log"
	"strings"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/uniresearch/research-portal-backend/config"
)

// UnicodeLower is a SQLite function lowering its argument with Go's Unicode
// tables. SQLite's own lower() and LIKE only fold ASCII letters.
const UnicodeLower = "unicode_lower"

func init() {
	gosqlite.MustRegisterDeterministicScalarFunction(UnicodeLower, 1, unicodeLower)
}

func unicodeLower(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Connect opens the configured database or exits the process.
func Connect(cfg *config.Config) *gorm.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Printf("✅ Connected to %s database", db.Dialector.Name())
	return db
}

// Open returns a gorm handle for cfg.DBDriver (postgres or sqlite).
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.DBDriver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, gcfg)
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		db, err := gorm.Open(postgres.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenSQLite opens a pure-Go SQLite database with foreign keys enforced.
func OpenSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}
	db, err := gorm.Open(sqlite.Open(withForeignKeys(path)), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=foreign_keys(1)"
	}
	return dsn + "?_pragma=foreign_keys(1)"
}

// MonthOf returns a SQL expression yielding the calendar month (1-12) of column.
func MonthOf(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return "CAST(EXTRACT(MONTH FROM " + column + ") AS INTEGER)"
	}
	return "CAST(strftime('%m', " + column + ") AS INTEGER)"
}

// YearOf returns a SQL expression yielding the calendar year of column.
func YearOf(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return "CAST(EXTRACT(YEAR FROM " + column + ") AS INTEGER)"
	}
	return "CAST(strftime('%Y', " + column + ") AS INTEGER)"
}
