// Package settings управляет оперативной конфигурацией бота (таблица bot_config).
// repository.go выполняет операции с таблицей bot_config.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с таблицей bot_config.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий настроек.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает значение настройки по ключу.
// Второе значение false, если ключ отсутствует.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx,
		"SELECT value FROM bot_config WHERE key = $1", key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка чтения настройки %s: %w", key, err)
	}
	return value, true, nil
}

// Set записывает значение настройки (вставка или замена).
func (r *Repository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("ошибка записи настройки %s: %w", key, err)
	}
	return nil
}

// SeedDefaults записывает значения по умолчанию, НЕ трогая уже существующие.
// Вызывается один раз при старте.
func (r *Repository) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	for key, value := range defaults {
		_, err := r.db.Exec(ctx, `
			INSERT INTO bot_config (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING
		`, key, value)
		if err != nil {
			return fmt.Errorf("ошибка записи дефолта %s: %w", key, err)
		}
	}
	return nil
}
