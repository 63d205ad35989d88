package db

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueConflict = "UNIQUE constraint failed"
)

// IsUniqueViolation reports whether err came from a unique constraint on any supported dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), sqliteUniqueConflict)
}

// UniqueViolationField extracts the column behind a unique violation, or "" when unknown.
func UniqueViolationField(err error) string {
	if !IsUniqueViolation(err) {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.ColumnName != "" {
			return pgErr.ColumnName
		}
		return fieldFromIndexName(pgErr.ConstraintName)
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		// Duplicate entry 'x' for key 'users.idx_users_email'
		msg := strings.TrimSuffix(myErr.Message, "'")
		if idx := strings.LastIndex(msg, "'"); idx >= 0 {
			key := msg[idx+1:]
			if dot := strings.LastIndex(key, "."); dot >= 0 {
				key = key[dot+1:]
			}
			return fieldFromIndexName(key)
		}
		return ""
	}
	// UNIQUE constraint failed: users.email
	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniqueConflict); idx >= 0 {
		target := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(sqliteUniqueConflict):], ":"))
		if comma := strings.IndexByte(target, ','); comma >= 0 {
			target = target[:comma]
		}
		target = strings.Fields(target + " ")[0]
		if dot := strings.LastIndex(target, "."); dot >= 0 {
			target = target[dot+1:]
		}
		return target
	}
	return ""
}

// fieldFromIndexName maps idx_<table>_<column> style names to the column.
func fieldFromIndexName(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
