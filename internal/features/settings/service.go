// Package settings — service.go даёт типизированный доступ к настройкам.
//
// Важно: значения читаются из базы при КАЖДОМ обращении, без кэша.
// Админ меняет настройку командой — и она действует сразу,
// без перезапуска процесса.
package settings

import (
	"context"
	"fmt"
	"strconv"
)

// Ключи таблицы bot_config.
const (
	KeyDailyCoinMin       = "daily_coin_min"
	KeyDailyCoinMax       = "daily_coin_max"
	KeyInviteCoinReward   = "invite_coin_reward"
	KeyKeepAliveCoins     = "keep_alive_coins"
	KeyGroupID            = "group_id"
	KeySelfRegistration   = "self_registration"
	KeyRegistrationNotice = "registration_notice"
)

// Store — минимальный интерфейс хранилища настроек.
// Нужен, чтобы сервис можно было тестировать без БД.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Service даёт типизированный доступ к оперативным настройкам.
type Service struct {
	store Store
}

// NewService создаёт новый сервис настроек.
func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) getInt(ctx context.Context, key string, def int) (int, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("настройка %s повреждена (%q): %w", key, raw, err)
	}
	return v, nil
}

func (s *Service) getBool(ctx context.Context, key string, def bool) (bool, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	return raw == "1", nil
}

// DailyRange возвращает границы ежедневной награды [min, max].
func (s *Service) DailyRange(ctx context.Context) (int, int, error) {
	min, err := s.getInt(ctx, KeyDailyCoinMin, 10)
	if err != nil {
		return 0, 0, err
	}
	max, err := s.getInt(ctx, KeyDailyCoinMax, 50)
	if err != nil {
		return 0, 0, err
	}
	if max < min {
		// Админ мог задать границы в обратном порядке — не падаем
		min, max = max, min
	}
	return min, max, nil
}

// InviteReward возвращает награду за приглашение друга.
func (s *Service) InviteReward(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyInviteCoinReward, 100)
}

// KeepAliveCoins возвращает минимальный баланс для «поддержания» аккаунта.
func (s *Service) KeepAliveCoins(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyKeepAliveCoins, 100)
}

// GroupID возвращает ID группы, членство в которой обязательно.
// 0 означает «группа не настроена».
func (s *Service) GroupID(ctx context.Context) (int64, error) {
	raw, ok, err := s.store.Get(ctx, KeyGroupID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("настройка group_id повреждена (%q): %w", raw, err)
	}
	return v, nil
}

// SetGroupID сохраняет ID группы.
func (s *Service) SetGroupID(ctx context.Context, groupID int64) error {
	return s.store.Set(ctx, KeyGroupID, strconv.FormatInt(groupID, 10))
}

// SelfRegistration возвращает, разрешена ли регистрация без инвайта.
func (s *Service) SelfRegistration(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeySelfRegistration, true)
}

// ToggleSelfRegistration переключает самостоятельную регистрацию
// и возвращает новое состояние.
func (s *Service) ToggleSelfRegistration(ctx context.Context) (bool, error) {
	current, err := s.SelfRegistration(ctx)
	if err != nil {
		return false, err
	}
	next := "0"
	if !current {
		next = "1"
	}
	if err := s.store.Set(ctx, KeySelfRegistration, next); err != nil {
		return false, err
	}
	return !current, nil
}

// RegistrationNotice возвращает, отправлять ли уведомление в группу
// об успешной регистрации.
func (s *Service) RegistrationNotice(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyRegistrationNotice, true)
}
