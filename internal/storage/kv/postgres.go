// postgres.go — хранилище в таблице kv_entries PostgreSQL.
// Схема создаётся миграциями пакета database. Чистый SQL через pgx.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX — интерфейс выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore — хранилище в PostgreSQL. Пул соединений принадлежит
// вызывающему коду и Close его не закрывает.
type PostgresStore struct {
	db DBTX
}

// NewPostgres создаёт хранилище поверх пула или транзакции.
func NewPostgres(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := p.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("ошибка удаления %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.db.Query(ctx,
		`SELECT key FROM kv_entries WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка ключей: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования ключей: %w", err)
	}
	return keys, nil
}

func (p *PostgresStore) Close() error { return nil }
