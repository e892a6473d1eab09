// Package invites — service.go содержит бизнес-логику инвайт-кодов:
// генерация, разбор токена, проверка и одноразовое гашение.
package invites

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/common"
)

const (
	// TokenPrefix — видимый префикс токена.
	TokenPrefix = "inv_"
	// codeLength — длина тела кода. Полный токен: 4 + 10 = 14 символов.
	codeLength = 10
	// alphabet — 62 символа; 10 знаков дают ~59.5 бит энтропии.
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// insertAttempts — сколько раз пробуем при коллизии кода
	insertAttempts = 5
)

// Store — интерфейс хранилища инвайтов (для тестов без БД).
type Store interface {
	Insert(ctx context.Context, inv *Invite) (bool, error)
	Get(ctx context.Context, code string) (*Invite, error)
	Redeem(ctx context.Context, code string) (bool, error)
}

// Service управляет инвайт-кодами.
type Service struct {
	store Store
}

// NewService создаёт новый сервис инвайтов.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Generate создаёт и сохраняет новый код указанного типа.
// Возвращает полный токен (inv_XXXXXXXXXX).
func (s *Service) Generate(ctx context.Context, kind Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("неизвестный тип инвайта: %q", kind)
	}

	// При коллизии кода (крайне маловероятно) пробуем ещё раз
	for attempt := 0; attempt < insertAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		inv := &Invite{Code: code, Kind: kind}
		ok, err := s.store.Insert(ctx, inv)
		if err != nil {
			return "", err
		}
		if ok {
			log.WithFields(log.Fields{
				"kind": kind,
			}).Info("Сгенерирован инвайт-код")
			return inv.Token(), nil
		}
	}
	return "", fmt.Errorf("не удалось сгенерировать уникальный код за %d попыток", insertAttempts)
}

// ParseToken выделяет тело кода из пользовательского аргумента.
// Токен обязан иметь вид inv_ + 10 символов (всего 14).
func ParseToken(arg string) (string, error) {
	if len(arg) != len(TokenPrefix)+codeLength || !strings.HasPrefix(arg, TokenPrefix) {
		return "", common.ErrInviteInvalid
	}
	return arg[len(TokenPrefix):], nil
}

// Validate проверяет существование кода и возвращает его тип.
// Срок жизни у кодов не проверяется — коды не протухают,
// тип влияет только на срок создаваемого аккаунта.
func (s *Service) Validate(ctx context.Context, code string) (Kind, error) {
	inv, err := s.store.Get(ctx, code)
	if err != nil {
		return "", err
	}
	if inv == nil {
		return "", common.ErrInviteInvalid
	}
	return inv.Kind, nil
}

// Redeem гасит код. Если код уже погашен конкурентной регистрацией —
// возвращает ErrInviteAlreadyUsed.
func (s *Service) Redeem(ctx context.Context, code string) error {
	ok, err := s.store.Redeem(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInviteAlreadyUsed
	}
	return nil
}

// randomCode генерирует криптографически случайное тело кода.
func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("ошибка генератора случайных чисел: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
