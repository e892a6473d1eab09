// Package invites — repository.go выполняет операции с таблицей invites.
package invites

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с таблицей invites.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий инвайтов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert сохраняет новый код. Возвращает true при успехе и false,
// если такой код уже существует (коллизия — вызывающая сторона
// сгенерирует другой).
func (r *Repository) Insert(ctx context.Context, inv *Invite) (bool, error) {
	_, err := r.db.Exec(ctx,
		"INSERT INTO invites (code, kind) VALUES ($1, $2)",
		inv.Code, string(inv.Kind),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil // код уже занят
		}
		return false, fmt.Errorf("ошибка сохранения инвайта: %w", err)
	}
	return true, nil
}

// Get возвращает код по телу. nil без ошибки — код не существует.
func (r *Repository) Get(ctx context.Context, code string) (*Invite, error) {
	var inv Invite
	var kind string
	err := r.db.QueryRow(ctx,
		"SELECT code, kind, created_at FROM invites WHERE code = $1", code,
	).Scan(&inv.Code, &kind, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения инвайта: %w", err)
	}
	inv.Kind = Kind(kind)
	return &inv, nil
}

// Redeem гасит код: условное удаление строки.
// Возвращает true, если строка была удалена именно ЭТИМ вызовом.
// Существование строки — единственный арбитр конкуренции: из двух
// одновременных регистраций по одному коду удаление пройдёт ровно у одной.
func (r *Repository) Redeem(ctx context.Context, code string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM invites WHERE code = $1", code)
	if err != nil {
		return false, fmt.Errorf("ошибка гашения инвайта: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
