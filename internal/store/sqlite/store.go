package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/shrimpsizemoose/kamrat/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
	migrationsDir string
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{
		BaseStore: store.BaseStore{
			DB: db,
			Converter: func(query string) string {
				return query
			},
			InsertID: func(db *sqlx.DB, query string, args ...interface{}) (int64, error) {
				res, err := db.Exec(query, args...)
				if err != nil {
					return 0, err
				}
				return res.LastInsertId()
			},
			IsDuplicate: func(err error) bool {
				var sqliteErr sqlite3.Error
				return errors.As(err, &sqliteErr) &&
					sqliteErr.Code == sqlite3.ErrConstraint
			},
		},
		migrationsDir: migrationsDir,
	}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect
func translateToSQLite(sql string) string {
	replacements := map[string]string{
		"BIGSERIAL PRIMARY KEY": "INTEGER PRIMARY KEY AUTOINCREMENT",
		"SERIAL PRIMARY KEY":    "INTEGER PRIMARY KEY AUTOINCREMENT",
		"BIGINT":                "INTEGER",
		"TIMESTAMPTZ":           "TIMESTAMP",
		"now()":                 "CURRENT_TIMESTAMP",
		"TRUE":                  "1",
		"FALSE":                 "0",
		"::text":                "",
	}
	result := sql
	for from, to := range replacements {
		result = strings.ReplaceAll(result, from, to)
	}
	return result
}
