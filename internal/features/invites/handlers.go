// Package invites — handlers.go обрабатывает админскую команду
// /generate_invite (генерация инвайт-кода).
package invites

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает команды инвайтов.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик команд инвайтов.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleGenerate обрабатывает команду /generate_invite тип.
// Типы: 1d, 1m, 1y, perm.
func (h *Handler) HandleGenerate(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "❌ Формат: /generate_invite тип (1d, 1m, 1y, perm)")
		return
	}

	kind := Kind(args[0])
	if !kind.Valid() {
		h.sendMessage(chatID, "❌ Неизвестный тип. Доступны: 1d, 1m, 1y, perm")
		return
	}

	token, err := h.service.Generate(ctx, kind)
	if err != nil {
		log.WithError(err).Error("Ошибка генерации инвайта")
		h.sendMessage(chatID, "❌ Ошибка генерации инвайта")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🎟 Инвайт-код (%s):\n\n%s\n\nРегистрация: /register %s имя пароль",
		kind, token, token))
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
