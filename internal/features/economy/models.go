// Package economy управляет внутренней валютой бота — монетами.
// models.go описывает структуры для счетов, товаров и покупок.
package economy

import "time"

// Currency представляет счёт пользователя.
// Создаётся лениво при первом обращении с нулевым балансом.
type Currency struct {
	TelegramID int64      `db:"tg_id"`      // Telegram user ID владельца
	Coins      int64      `db:"coins"`      // Текущий баланс (никогда не отрицательный)
	LastDaily  *time.Time `db:"last_daily"` // Время последней ежедневной награды (nil — ни разу)
	InvitedBy  *int64     `db:"invited_by"` // Кто пригласил (nil — никто)
}

// ShopItem — товар в магазине обмена.
// Каталогом управляет админ, бот только читает.
type ShopItem struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Price       int64  `db:"price"` // всегда положительная
	Description string `db:"description"`
	Enabled     bool   `db:"enabled"` // снятый с продажи товар купить нельзя
}

// Purchase — запись об одной покупке. Только добавляется, никогда не меняется
// (кроме флага used, которым управляет админский инструментарий).
type Purchase struct {
	ID           int64     `db:"id"`
	TelegramID   int64     `db:"tg_id"`
	ItemID       int64     `db:"item_id"`
	PurchaseDate time.Time `db:"purchase_date"`
	Used         bool      `db:"used"`
}

// DailyClaim — результат успешного получения ежедневной награды.
type DailyClaim struct {
	Awarded    int64 // сколько монет выпало
	NewBalance int64 // баланс после начисления
}

// Receipt — результат успешной покупки.
type Receipt struct {
	Item       ShopItem
	Purchase   Purchase
	NewBalance int64
}

// BalanceInfo — данные для ответа на команду /balance:
// баланс плюс актуальные настройки наград.
type BalanceInfo struct {
	Coins        int64
	DailyMin     int
	DailyMax     int
	InviteReward int
	KeepAlive    int
}
