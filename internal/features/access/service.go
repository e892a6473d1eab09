// Package access — проверка допуска: состоит ли пользователь в настроенной группе.
// Каждая пользовательская команда сначала проходит через эту проверку.
//
// Принцип: fail closed. Любая ошибка Telegram API (таймаут, бот выгнан
// из группы, группа не найдена) трактуется как «не участник».
// Лучше отказать своему, чем пустить чужого.
package access

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Статусы Telegram, означающие «состоит в группе».
var memberStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// GroupResolver отдаёт актуальный ID группы из оперативных настроек.
// Читается при каждой проверке — смена группы действует сразу.
type GroupResolver interface {
	GroupID(ctx context.Context) (int64, error)
}

// MemberChecker — кусочек Telegram Bot API, который нужен проверке.
// Реализуется *tgbotapi.BotAPI; в тестах подменяется фейком.
type MemberChecker interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Service выполняет проверку членства в группе.
type Service struct {
	groups GroupResolver
	api    MemberChecker
	// bypass определяет поведение, когда группа не настроена (group_id = 0):
	// true — пускаем всех, false — не пускаем никого.
	bypass bool
}

// NewService создаёт новый сервис проверки допуска.
func NewService(groups GroupResolver, api MemberChecker, bypass bool) *Service {
	return &Service{groups: groups, api: api, bypass: bypass}
}

// IsMember проверяет, состоит ли пользователь в настроенной группе.
// Побочных эффектов нет — безопасно вызывать перед каждой операцией.
func (s *Service) IsMember(ctx context.Context, userID int64) bool {
	groupID, err := s.groups.GroupID(ctx)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось прочитать group_id")
		return false
	}

	// Группа не настроена — поведение задаёт флаг ADMISSION_BYPASS
	if groupID == 0 {
		return s.bypass
	}

	member, err := s.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: groupID,
			UserID: userID,
		},
	})
	if err != nil {
		// fail closed: ошибка API = не участник
		log.WithError(err).WithFields(log.Fields{
			"user_id":  userID,
			"group_id": groupID,
		}).Warn("Проверка членства не удалась, отказываем")
		return false
	}

	return memberStatuses[member.Status]
}
