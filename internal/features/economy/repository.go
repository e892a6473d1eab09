// Package economy — repository.go выполняет операции с таблицами
// user_currency, exchange_items и user_purchases.
// Все денежные операции выполняются в транзакциях БД для целостности данных:
// приложение не держит своих замков, арбитром конкуренции служит сама база.
package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jellyfin-bot/internal/common"
)

// Repository предоставляет методы для работы со счетами и покупками.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetOrCreate возвращает счёт пользователя, создавая его при первом
// обращении с нулевым балансом.
func (r *Repository) GetOrCreate(ctx context.Context, tgID int64) (*Currency, error) {
	// ON CONFLICT DO NOTHING делает создание идемпотентным:
	// две конкурентные первые команды не создадут два счёта
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_currency (tg_id, coins, last_daily)
		VALUES ($1, 0, NULL)
		ON CONFLICT (tg_id) DO NOTHING
	`, tgID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}

	var c Currency
	err = r.db.QueryRow(ctx,
		"SELECT tg_id, coins, last_daily, invited_by FROM user_currency WHERE tg_id = $1", tgID,
	).Scan(&c.TelegramID, &c.Coins, &c.LastDaily, &c.InvitedBy)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения счёта: %w", err)
	}
	return &c, nil
}

// ClaimDaily атомарно начисляет ежедневную награду.
//
// Вся проверка «сегодня уже получал?» выражена ОДНИМ условным UPDATE:
// сравнение календарных дат по UTC происходит внутри базы, поэтому из
// двух конкурентных запросов (двойной тап по кнопке) пройдёт ровно один.
// Возвращает (новый баланс, true) при успехе и (0, false), если награда
// за сегодня уже была получена.
func (r *Repository) ClaimDaily(ctx context.Context, tgID int64, amount int64, now time.Time) (int64, bool, error) {
	var newBalance int64
	err := r.db.QueryRow(ctx, `
		UPDATE user_currency
		SET coins = coins + $2, last_daily = $3
		WHERE tg_id = $1
		  AND (last_daily IS NULL
		       OR (last_daily AT TIME ZONE 'UTC')::date < ($3::timestamptz AT TIME ZONE 'UTC')::date)
		RETURNING coins
	`, tgID, amount, now.UTC()).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Ни одной строки не обновлено — награда уже получена сегодня
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("ошибка начисления награды: %w", err)
	}
	return newBalance, true, nil
}

// GetItem возвращает товар по ID. nil без ошибки — товара нет
// или он снят с продажи.
func (r *Repository) GetItem(ctx context.Context, itemID int64) (*ShopItem, error) {
	var item ShopItem
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price, description, enabled
		FROM exchange_items
		WHERE id = $1 AND enabled
	`, itemID).Scan(&item.ID, &item.Name, &item.Price, &item.Description, &item.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения товара: %w", err)
	}
	return &item, nil
}

// ListItems возвращает доступные товары по возрастанию цены.
func (r *Repository) ListItems(ctx context.Context) ([]ShopItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, price, description, enabled
		FROM exchange_items
		WHERE enabled
		ORDER BY price
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	defer rows.Close()

	var items []ShopItem
	for rows.Next() {
		var item ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Description, &item.Enabled); err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Purchase списывает цену товара и записывает покупку ОДНОЙ транзакцией:
// либо происходит и списание, и запись, либо ничего.
// Баланс блокируется FOR UPDATE, поэтому два конкурентных списания
// не уведут счёт в минус.
func (r *Repository) Purchase(ctx context.Context, tgID int64, item *ShopItem) (*Purchase, int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Проверяем баланс с блокировкой строки
	var balance int64
	err = tx.QueryRow(ctx,
		"SELECT coins FROM user_currency WHERE tg_id = $1 FOR UPDATE", tgID,
	).Scan(&balance)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения баланса: %w", err)
	}

	if balance < item.Price {
		return nil, balance, common.ErrInsufficientCoins
	}

	// Списываем
	newBalance := balance - item.Price
	_, err = tx.Exec(ctx,
		"UPDATE user_currency SET coins = coins - $2 WHERE tg_id = $1",
		tgID, item.Price,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка списания: %w", err)
	}

	// Записываем покупку
	p := Purchase{TelegramID: tgID, ItemID: item.ID}
	err = tx.QueryRow(ctx, `
		INSERT INTO user_purchases (tg_id, item_id)
		VALUES ($1, $2)
		RETURNING id, purchase_date, used
	`, tgID, item.ID).Scan(&p.ID, &p.PurchaseDate, &p.Used)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка записи покупки: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("ошибка фиксации покупки: %w", err)
	}
	return &p, newBalance, nil
}

// AddCoins начисляет монеты (админская выдача, награда за приглашение).
// Счёт создаётся при необходимости. Возвращает новый баланс.
func (r *Repository) AddCoins(ctx context.Context, tgID int64, amount int64) (int64, error) {
	var newBalance int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_currency (tg_id, coins, last_daily)
		VALUES ($1, $2, NULL)
		ON CONFLICT (tg_id) DO UPDATE SET coins = user_currency.coins + EXCLUDED.coins
		RETURNING coins
	`, tgID, amount).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления монет: %w", err)
	}
	return newBalance, nil
}
