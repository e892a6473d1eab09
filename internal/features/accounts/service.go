// Package accounts — service.go содержит бизнес-логику жизненного цикла
// аккаунтов: регистрацию, выдачу, удаление и чистку просроченных.
//
// Главная сложность — согласованность двух систем без общей транзакции:
// локальной базы и удалённого Jellyfin. Порядок операций строгий:
//   - создание: сначала удалённый аккаунт, потом локальная запись
//     (база никогда не знает аккаунтов, которых нет на сервере);
//   - удаление: сначала подтверждённое удаление на сервере, потом
//     локальное (пока сервер не подтвердил — запись остаётся и чистка
//     повторит попытку в следующем цикле).
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/common"
	"jellyfin-bot/internal/features/invites"
	"jellyfin-bot/internal/jellyfin"
)

// defaultExpiry — срок аккаунта при самостоятельной регистрации (без инвайта).
const defaultExpiry = 30 * 24 * time.Hour

// minPasswordLength — минимальная длина пароля.
const minPasswordLength = 6

// Store — интерфейс хранилища аккаунтов (для тестов без БД).
type Store interface {
	Insert(ctx context.Context, a *Account) error
	GetByTelegramID(ctx context.Context, tgID int64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	ListAll(ctx context.Context) ([]Account, error)
	ListExpired(ctx context.Context, now time.Time) ([]Account, error)
	Delete(ctx context.Context, username string) error
	SetWhitelisted(ctx context.Context, tgID int64, whitelisted bool) error
	SetExpiry(ctx context.Context, username string, expiresAt *time.Time) error
}

// IdentityProvider — три операции удалённого медиасервера.
// Реализуется *jellyfin.Client.
type IdentityProvider interface {
	ListUsers(ctx context.Context) ([]jellyfin.User, error)
	LookupUserID(ctx context.Context, username string) (string, error)
	CreateUser(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, userID string) error
}

// InviteRedeemer — проверка и гашение инвайт-кодов.
type InviteRedeemer interface {
	Validate(ctx context.Context, code string) (invites.Kind, error)
	Redeem(ctx context.Context, code string) error
}

// Gate — проверка членства в группе.
type Gate interface {
	IsMember(ctx context.Context, userID int64) bool
}

// Settings — оперативные настройки, нужные регистрации.
type Settings interface {
	SelfRegistration(ctx context.Context) (bool, error)
}

// Service управляет жизненным циклом аккаунтов.
type Service struct {
	store    Store
	identity IdentityProvider
	invites  InviteRedeemer
	gate     Gate
	settings Settings
	now      func() time.Time // подменяется в тестах
}

// NewService создаёт новый сервис аккаунтов.
func NewService(store Store, identity IdentityProvider, inv InviteRedeemer, gate Gate, settings Settings) *Service {
	return &Service{
		store:    store,
		identity: identity,
		invites:  inv,
		gate:     gate,
		settings: settings,
		now:      time.Now,
	}
}

// Register проводит регистрацию аккаунта. Конечный автомат, терминальный
// на первой же ошибке:
//
//  1. допуск (членство в группе);
//  2. режим: без самостоятельной регистрации обязателен валидный инвайт;
//  3. дубликат: один аккаунт на человека;
//  4. политика пароля;
//  5. создание на Jellyfin — необратимый шаг, ДО локальной записи;
//  6. гашение инвайта — после удалённого успеха, чтобы сбой Jellyfin
//     не сжигал код;
//  7. локальная запись.
//
// inviteArg — сырой аргумент пользователя (inv_XXXXXXXXXX); пустая строка,
// если инвайт не передан.
func (s *Service) Register(ctx context.Context, tgID int64, inviteArg, username, password string) (*Account, error) {
	// Шаг 1: допуск
	if !s.gate.IsMember(ctx, tgID) {
		return nil, common.ErrNotInGroup
	}

	// Шаг 2: режим регистрации
	selfReg, err := s.settings.SelfRegistration(ctx)
	if err != nil {
		return nil, err
	}

	if !selfReg && inviteArg == "" {
		return nil, common.ErrRegistrationClosed
	}

	// Инвайт обрабатываем и при открытой регистрации: переданный код
	// должен быть погашен, а его тип — определить срок аккаунта
	var inviteCode string
	var inviteKind invites.Kind
	if inviteArg != "" {
		inviteCode, err = invites.ParseToken(inviteArg)
		if err != nil {
			return nil, err
		}
		inviteKind, err = s.invites.Validate(ctx, inviteCode)
		if err != nil {
			return nil, err
		}
	}

	// Шаг 3: один аккаунт на человека
	existing, err := s.store.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrAlreadyRegistered
	}

	// Шаг 4: политика пароля
	if len(password) < minPasswordLength {
		return nil, common.ErrPasswordTooShort
	}

	// Шаг 5: удалённое создание. При сбое — никаких локальных изменений,
	// пользователь повторит команду сам.
	if err := s.identity.CreateUser(ctx, username, password); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"tg_id":    tgID,
			"username": username,
		}).Error("Jellyfin не создал пользователя")
		return nil, err
	}

	// Шаг 6: гашение инвайта. Если код успели погасить конкурентно —
	// регистрация проваливается; на сервере остаётся сирота, её покажет
	// сверка (/reconcile).
	if inviteCode != "" {
		if err := s.invites.Redeem(ctx, inviteCode); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"tg_id":    tgID,
				"username": username,
			}).Warn("Инвайт погашен конкурентно, на Jellyfin осталась сирота")
			return nil, err
		}
	}

	// Шаг 7: локальная запись
	now := s.now()
	account := &Account{
		Username:     username,
		Password:     password,
		RegisteredAt: now,
		TelegramID:   tgID,
		ExpiresAt:    s.expiryFor(inviteKind, inviteCode != "", now),
		Whitelisted:  false,
	}
	if err := s.store.Insert(ctx, account); err != nil {
		if errors.Is(err, common.ErrAlreadyRegistered) {
			// Гонка двух регистраций: уникальный индекс пропустил одну
			log.WithField("tg_id", tgID).Warn("Конкурентная регистрация, на Jellyfin осталась сирота")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"tg_id":    tgID,
		"username": username,
		"expires":  common.FormatExpiry(account.ExpiresAt),
	}).Info("Аккаунт зарегистрирован")

	return account, nil
}

// expiryFor выбирает срок действия нового аккаунта.
// Тип инвайта уважается (1d/1m/1y/perm); без инвайта — 30 дней.
func (s *Service) expiryFor(kind invites.Kind, usedInvite bool, now time.Time) *time.Time {
	if usedInvite {
		return kind.AccountExpiry(now)
	}
	exp := now.Add(defaultExpiry)
	return &exp
}

// QueryCredentials возвращает аккаунт владельца (пароль открытым текстом —
// это и есть смысл команды).
func (s *Service) QueryCredentials(ctx context.Context, tgID int64) (*Account, error) {
	if !s.gate.IsMember(ctx, tgID) {
		return nil, common.ErrNotInGroup
	}
	a, err := s.store.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, common.ErrAccountNotFound
	}
	return a, nil
}

// Give создаёт аккаунт напрямую, минуя допуск и инвайты (админская команда).
// Аккаунт бессрочный: выдача руками — осознанное решение админа.
func (s *Service) Give(ctx context.Context, tgID int64, username, password string) (*Account, error) {
	existing, err := s.store.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrAlreadyRegistered
	}
	if len(password) < minPasswordLength {
		return nil, common.ErrPasswordTooShort
	}

	if err := s.identity.CreateUser(ctx, username, password); err != nil {
		return nil, err
	}

	account := &Account{
		Username:     username,
		Password:     password,
		RegisteredAt: s.now(),
		TelegramID:   tgID,
		ExpiresAt:    nil,
		Whitelisted:  false,
	}
	if err := s.store.Insert(ctx, account); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"tg_id": tgID, "username": username}).Info("Аккаунт выдан админом")
	return account, nil
}

// Delete удаляет аккаунт: сначала на Jellyfin, потом локально.
// Если на сервере пользователя уже нет — это локальная сирота,
// локальную запись всё равно убираем.
func (s *Service) Delete(ctx context.Context, username string) error {
	a, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if a == nil {
		return common.ErrAccountNotFound
	}

	remoteID, err := s.identity.LookupUserID(ctx, username)
	switch {
	case errors.Is(err, common.ErrRemoteUserNotFound):
		// На сервере уже нет — чистим только локально
		log.WithField("username", username).Warn("На Jellyfin пользователя нет, удаляем локальную сироту")
	case err != nil:
		return err
	default:
		if err := s.identity.DeleteUser(ctx, remoteID); err != nil {
			return err
		}
	}

	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}

	log.WithField("username", username).Info("Аккаунт удалён")
	return nil
}

// ToggleWhitelist переключает белый список аккаунта владельца tgID.
// Возвращает аккаунт с новым состоянием флага.
func (s *Service) ToggleWhitelist(ctx context.Context, tgID int64) (*Account, error) {
	a, err := s.store.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, common.ErrAccountNotFound
	}
	if err := s.store.SetWhitelisted(ctx, tgID, !a.Whitelisted); err != nil {
		return nil, err
	}
	a.Whitelisted = !a.Whitelisted
	return a, nil
}

// Extend продлевает срок аккаунта на days суток (админская команда,
// ручная выдача купленных продлений). Отсчёт от текущего срока, если он
// ещё не истёк, иначе от «сейчас» — просроченный, но ещё не вычищенный
// аккаунт получает полный срок, а не огрызок.
// Бессрочный аккаунт продлевать нечего — возвращается как есть.
func (s *Service) Extend(ctx context.Context, username string, days int) (*Account, error) {
	a, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, common.ErrAccountNotFound
	}
	if a.ExpiresAt == nil {
		return a, nil
	}

	base := s.now()
	if a.ExpiresAt.After(base) {
		base = *a.ExpiresAt
	}
	exp := base.Add(time.Duration(days) * 24 * time.Hour)
	if err := s.store.SetExpiry(ctx, username, &exp); err != nil {
		return nil, err
	}
	a.ExpiresAt = &exp

	log.WithFields(log.Fields{
		"username": username,
		"days":     days,
		"expires":  common.FormatExpiry(&exp),
	}).Info("Срок аккаунта продлён")
	return a, nil
}

// List возвращает все аккаунты (админская команда).
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.ListAll(ctx)
}

// SweepExpired — один цикл чистки просроченных аккаунтов.
//
// Для каждого просроченного (не белосписочного, не бессрочного) аккаунта:
// находим его на Jellyfin, удаляем там и ТОЛЬКО после подтверждённого
// удалённого удаления убираем локальную запись вместе с валютным счётом.
// Любой сбой по конкретному аккаунту — пропуск до следующего цикла,
// локальная запись остаётся источником правды «этого надо удалить».
//
// Возвращает (удалено, пропущено). Ошибка — только если не удалось
// получить сам список (сбой уровня цикла).
func (s *Service) SweepExpired(ctx context.Context) (int, int, error) {
	expired, err := s.store.ListExpired(ctx, s.now())
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка поиска просроченных: %w", err)
	}

	deleted, skipped := 0, 0
	for _, a := range expired {
		// Между аккаунтами проверяем отмену — при остановке процесса
		// не начинаем новых удалений
		if ctx.Err() != nil {
			return deleted, skipped, ctx.Err()
		}

		logger := log.WithFields(log.Fields{"username": a.Username, "tg_id": a.TelegramID})

		remoteID, err := s.identity.LookupUserID(ctx, a.Username)
		if err != nil && !errors.Is(err, common.ErrRemoteUserNotFound) {
			logger.WithError(err).Warn("Чистка: поиск на Jellyfin не удался, отложено до следующего цикла")
			skipped++
			continue
		}
		if err == nil {
			if err := s.identity.DeleteUser(ctx, remoteID); err != nil {
				logger.WithError(err).Warn("Чистка: удаление на Jellyfin не удалось, отложено до следующего цикла")
				skipped++
				continue
			}
		}
		// err == ErrRemoteUserNotFound: на сервере уже нет, чистим локально

		if err := s.store.Delete(ctx, a.Username); err != nil {
			logger.WithError(err).Error("Чистка: локальное удаление не удалось")
			skipped++
			continue
		}

		logger.Info("Просроченный аккаунт удалён")
		deleted++
	}
	return deleted, skipped, nil
}

// Reconcile сверяет медиасервер с локальной базой и возвращает расхождения.
// Ничего не чинит — только показывает (страховка от сирот после сбоев
// между удалённым созданием и локальной записью).
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	remote, err := s.identity.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	local, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	remoteNames := make(map[string]bool, len(remote))
	for _, u := range remote {
		remoteNames[u.Name] = true
	}
	localNames := make(map[string]bool, len(local))
	for _, a := range local {
		localNames[a.Username] = true
	}

	report := &ReconcileReport{}
	for _, u := range remote {
		if !localNames[u.Name] {
			report.RemoteOnly = append(report.RemoteOnly, u.Name)
		}
	}
	for _, a := range local {
		if !remoteNames[a.Username] {
			report.LocalOnly = append(report.LocalOnly, a.Username)
		}
	}
	return report, nil
}
