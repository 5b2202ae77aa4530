package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository базовая структура для всех репозиториев PostgreSQL
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// NewBaseRepository создает новый экземпляр базового репозитория
func NewBaseRepository(pool *pgxpool.Pool) *BaseRepository {
	return &BaseRepository{Pool: pool}
}

// QueryRowContext выполняет запрос и возвращает одну строку
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) pgx.Row {
	return r.Pool.QueryRow(ctx, query, args...)
}

// QueryContext выполняет запрос и возвращает несколько строк
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	return r.Pool.Query(ctx, query, args...)
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности (SQLSTATE 23505)
// Используется сервисом provisioning для деградации create в find при конкурентном создании
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
