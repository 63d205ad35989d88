package db

import (
	"fmt"
	"strings"

	"github.com/duskwallet/duskwallet-api/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, DialectMySQL:
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Analysis{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return ensureIndexes(conn)
}

// index defines a composite index to create after AutoMigrate.
type index struct {
	name    string // Index name, also used for error reporting.
	table   string // Target table.
	columns string // Column list, including ordering.
}

var indexes = []index{
	{name: "idx_transactions_user_id_date", table: "transactions", columns: "user_id, date DESC"},
	{name: "idx_transactions_user_id_type", table: "transactions", columns: "user_id, type"},
	{name: "idx_transactions_user_id_category", table: "transactions", columns: "user_id, category"},
	{name: "idx_analyses_user_id_created_at", table: "analyses", columns: "user_id, created_at DESC"},
}

// ensureIndexes creates the query-path indexes that struct tags cannot express.
func ensureIndexes(conn *gorm.DB) error {
	mysqlDialect := DialectName(conn) == DialectMySQL
	for _, idx := range indexes {
		if mysqlDialect {
			// MySQL has no CREATE INDEX IF NOT EXISTS.
			if conn.Migrator().HasIndex(idx.table, idx.name) {
				continue
			}
			stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
			if errExec := conn.Exec(stmt).Error; errExec != nil {
				return fmt.Errorf("db: create index %s: %w", idx.name, errExec)
			}
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if errExec := conn.Exec(strings.TrimSpace(stmt)).Error; errExec != nil {
			return fmt.Errorf("db: create index %s: %w", idx.name, errExec)
		}
	}
	return nil
}
