package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/subtrackr/currency"
)

type MySQLSettings struct {
	db        *sql.DB
	tableName string
}

func NewMySQLSettings(db *sql.DB, tableName string) *MySQLSettings {
	return &MySQLSettings{
		db:        db,
		tableName: tableName,
	}
}

func (m *MySQLSettings) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s(
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(191) NOT NULL UNIQUE,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`,
		m.tableName,
	)

	_, err := m.db.ExecContext(ctx, query)

	return err
}

func (m *MySQLSettings) Get(ctx context.Context, name string) (string, error) {
	var value string

	query := fmt.Sprintf("SELECT value FROM %s WHERE name = ? LIMIT 1;", m.tableName)
	row := m.db.QueryRowContext(ctx, query, name)

	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", currency.ErrSettingNotFound
		}

		return "", err
	}

	return value, nil
}

func (m *MySQLSettings) Set(ctx context.Context, name, value string) error {
	query := fmt.Sprintf(
		"INSERT INTO %s(id, name, value) VALUES(?,?,?) ON DUPLICATE KEY UPDATE value = VALUES(value);",
		m.tableName,
	)

	_, err := m.db.ExecContext(ctx, query, uuid.New().String(), name, value)

	return err
}
