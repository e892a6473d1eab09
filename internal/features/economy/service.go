// Package economy — service.go содержит бизнес-логику валюты:
// ежедневная награда, баланс, магазин, покупки.
//
// Настройки наград читаются из bot_config при каждой операции —
// админ меняет диапазон награды, и следующая команда уже видит новое значение.
package economy

import (
	"context"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/common"
)

// Store — интерфейс хранилища экономики (для тестов без БД).
type Store interface {
	GetOrCreate(ctx context.Context, tgID int64) (*Currency, error)
	ClaimDaily(ctx context.Context, tgID int64, amount int64, now time.Time) (int64, bool, error)
	GetItem(ctx context.Context, itemID int64) (*ShopItem, error)
	ListItems(ctx context.Context) ([]ShopItem, error)
	Purchase(ctx context.Context, tgID int64, item *ShopItem) (*Purchase, int64, error)
	AddCoins(ctx context.Context, tgID int64, amount int64) (int64, error)
}

// Settings — оперативные настройки, нужные экономике.
type Settings interface {
	DailyRange(ctx context.Context) (int, int, error)
	InviteReward(ctx context.Context) (int, error)
	KeepAliveCoins(ctx context.Context) (int, error)
}

// Gate — проверка членства в группе. Монеты — привилегия участников:
// покинувший группу не копит награды и не покупает.
type Gate interface {
	IsMember(ctx context.Context, userID int64) bool
}

// Service управляет валютой.
type Service struct {
	store    Store
	settings Settings
	gate     Gate
	// now подменяется в тестах; в бою — time.Now
	now func() time.Time
}

// NewService создаёт новый сервис экономики.
func NewService(store Store, settings Settings, gate Gate) *Service {
	return &Service{store: store, settings: settings, gate: gate, now: time.Now}
}

// Balance возвращает баланс пользователя вместе с актуальными
// настройками наград (для текста ответа).
func (s *Service) Balance(ctx context.Context, tgID int64) (*BalanceInfo, error) {
	if !s.gate.IsMember(ctx, tgID) {
		return nil, common.ErrNotInGroup
	}
	c, err := s.store.GetOrCreate(ctx, tgID)
	if err != nil {
		return nil, err
	}
	min, max, err := s.settings.DailyRange(ctx)
	if err != nil {
		return nil, err
	}
	reward, err := s.settings.InviteReward(ctx)
	if err != nil {
		return nil, err
	}
	keepAlive, err := s.settings.KeepAliveCoins(ctx)
	if err != nil {
		return nil, err
	}
	return &BalanceInfo{
		Coins:        c.Coins,
		DailyMin:     min,
		DailyMax:     max,
		InviteReward: reward,
		KeepAlive:    keepAlive,
	}, nil
}

// ClaimDaily выдаёт ежедневную награду: случайное число монет из
// настроенного диапазона, не чаще раза в UTC-сутки.
//
// При повторной попытке в тот же день возвращает ErrAlreadyClaimedToday
// и время ожидания до следующей UTC-полуночи.
func (s *Service) ClaimDaily(ctx context.Context, tgID int64) (*DailyClaim, time.Duration, error) {
	if !s.gate.IsMember(ctx, tgID) {
		return nil, 0, common.ErrNotInGroup
	}

	// Счёт должен существовать до условного UPDATE
	if _, err := s.store.GetOrCreate(ctx, tgID); err != nil {
		return nil, 0, err
	}

	min, max, err := s.settings.DailyRange(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	amount := int64(min + rand.Intn(max-min+1))

	newBalance, claimed, err := s.store.ClaimDaily(ctx, tgID, amount, now)
	if err != nil {
		return nil, 0, err
	}
	if !claimed {
		wait := common.NextUTCMidnight(now).Sub(now)
		return nil, wait, common.ErrAlreadyClaimedToday
	}

	log.WithFields(log.Fields{
		"tg_id":  tgID,
		"amount": amount,
	}).Debug("Ежедневная награда начислена")

	return &DailyClaim{Awarded: amount, NewBalance: newBalance}, 0, nil
}

// Shop возвращает доступные товары (по возрастанию цены) и текущий баланс.
func (s *Service) Shop(ctx context.Context, tgID int64) ([]ShopItem, int64, error) {
	if !s.gate.IsMember(ctx, tgID) {
		return nil, 0, common.ErrNotInGroup
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, 0, err
	}
	c, err := s.store.GetOrCreate(ctx, tgID)
	if err != nil {
		return nil, 0, err
	}
	return items, c.Coins, nil
}

// Buy покупает товар: проверяет каталог и баланс, атомарно списывает
// цену и записывает покупку.
func (s *Service) Buy(ctx context.Context, tgID int64, itemID int64) (*Receipt, error) {
	if !s.gate.IsMember(ctx, tgID) {
		return nil, common.ErrNotInGroup
	}
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, common.ErrItemNotFound
	}

	// Счёт должен существовать, иначе списывать не из чего
	if _, err := s.store.GetOrCreate(ctx, tgID); err != nil {
		return nil, err
	}

	purchase, newBalance, err := s.store.Purchase(ctx, tgID, item)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"tg_id":   tgID,
		"item_id": item.ID,
		"price":   item.Price,
	}).Info("Покупка совершена")

	return &Receipt{Item: *item, Purchase: *purchase, NewBalance: newBalance}, nil
}

// Grant начисляет монеты от имени администратора. Допуск не проверяется:
// это админская операция, а не пользовательская команда.
// Возвращает новый баланс.
func (s *Service) Grant(ctx context.Context, tgID int64, amount int64) (int64, error) {
	return s.store.AddCoins(ctx, tgID, amount)
}
