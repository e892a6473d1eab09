// Package accounts — repository.go выполняет операции с таблицей users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jellyfin-bot/internal/common"
)

// Repository предоставляет методы для работы с таблицей users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий аккаунтов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const accountColumns = "username, password, registered_at, tg_id, expires_at, whitelisted"

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.Username, &a.Password, &a.RegisteredAt, &a.TelegramID, &a.ExpiresAt, &a.Whitelisted)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Insert сохраняет новый аккаунт. Уникальный индекс на tg_id превращает
// гонку двух одновременных регистраций одного человека в ошибку вставки:
// вторая регистрация получает ErrAlreadyRegistered, а не молча
// перезаписывает первую.
func (r *Repository) Insert(ctx context.Context, a *Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (username, password, tg_id, expires_at, whitelisted)
		VALUES ($1, $2, $3, $4, $5)
	`, a.Username, a.Password, a.TelegramID, a.ExpiresAt, a.Whitelisted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrAlreadyRegistered
		}
		return fmt.Errorf("ошибка сохранения аккаунта: %w", err)
	}
	return nil
}

// GetByTelegramID возвращает аккаунт владельца. nil без ошибки — аккаунта нет.
func (r *Repository) GetByTelegramID(ctx context.Context, tgID int64) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM users WHERE tg_id = $1", tgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения аккаунта: %w", err)
	}
	return a, nil
}

// GetByUsername возвращает аккаунт по имени. nil без ошибки — аккаунта нет.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM users WHERE username = $1", username,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения аккаунта: %w", err)
	}
	return a, nil
}

// ListAll возвращает все аккаунты (админская команда и сверка).
func (r *Repository) ListAll(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+accountColumns+" FROM users ORDER BY registered_at",
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения аккаунтов: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования аккаунта: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListExpired возвращает аккаунты, подлежащие чистке: срок истёк
// и аккаунт не в белом списке. Бессрочные (expires_at IS NULL)
// не попадают сюда никогда.
func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND NOT whitelisted
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска просроченных аккаунтов: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования аккаунта: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Delete удаляет аккаунт и его валютный счёт одной транзакцией.
// tg_id берём из самой строки аккаунта ДО удаления, поэтому счёт
// не осиротеет.
func (r *Repository) Delete(ctx context.Context, username string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var tgID int64
	err = tx.QueryRow(ctx,
		"DELETE FROM users WHERE username = $1 RETURNING tg_id", username,
	).Scan(&tgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления аккаунта: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM user_currency WHERE tg_id = $1", tgID,
	); err != nil {
		return fmt.Errorf("ошибка удаления счёта: %w", err)
	}

	return tx.Commit(ctx)
}

// SetWhitelisted выставляет флаг белого списка.
func (r *Repository) SetWhitelisted(ctx context.Context, tgID int64, whitelisted bool) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET whitelisted = $2 WHERE tg_id = $1", tgID, whitelisted,
	)
	if err != nil {
		return fmt.Errorf("ошибка изменения белого списка: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// SetExpiry меняет срок действия аккаунта. nil — сделать бессрочным.
func (r *Repository) SetExpiry(ctx context.Context, username string, expiresAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET expires_at = $2 WHERE username = $1", username, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка изменения срока: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}
