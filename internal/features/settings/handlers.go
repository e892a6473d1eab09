// Package settings — handlers.go обрабатывает команду /start и админские
// /toggle_registration, /set_group.
package settings

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/common"
)

// Handler обрабатывает команды настроек.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик команд настроек.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleStart обрабатывает команду /start — справка с актуальными
// значениями наград из настроек.
func (h *Handler) HandleStart(ctx context.Context, chatID int64, isAdmin bool) {
	min, max, err := h.service.DailyRange(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения настроек")
		h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		return
	}
	reward, err := h.service.InviteReward(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения настроек")
		h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		return
	}
	keepAlive, err := h.service.KeepAliveCoins(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения настроек")
		h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		return
	}
	selfReg, err := h.service.SelfRegistration(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения настроек")
		h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		return
	}

	regLine := "/register inv_код имя пароль — регистрация по инвайту"
	if selfReg {
		regLine = "/register имя пароль — регистрация"
	}

	text := fmt.Sprintf(
		"🎬 Бот медиасервера.\n\n"+
			"%s\n"+
			"/query_credentials — мои учётные данные\n"+
			"/daily — ежедневная награда (%d–%d монет)\n"+
			"/balance — баланс\n"+
			"/shop — магазин\n\n"+
			"🤝 Награда за приглашение: %s\n"+
			"🔋 Поддержание аккаунта: %s",
		regLine, min, max,
		common.FormatCoins(int64(reward)),
		common.FormatCoins(int64(keepAlive)))

	if isAdmin {
		text += "\n\n🛠 Админ:\n" +
			"/toggle_registration — открыть/закрыть самостоятельную регистрацию\n" +
			"/generate_invite тип — инвайт (1d, 1m, 1y, perm)\n" +
			"/set_group id — группа допуска\n" +
			"/give tg_id имя пароль — выдать аккаунт\n" +
			"/kk tg_id — белый список\n" +
			"/extend имя дни — продлить аккаунт\n" +
			"/grant tg_id сумма — начислить монеты\n" +
			"/admin_accounts — все аккаунты\n" +
			"/delete_account имя — удалить аккаунт\n" +
			"/reconcile — сверка с медиасервером"
	}

	h.sendMessage(chatID, text)
}

// HandleToggleRegistration обрабатывает админскую команду
// /toggle_registration — переключает самостоятельную регистрацию.
func (h *Handler) HandleToggleRegistration(ctx context.Context, chatID int64) {
	enabled, err := h.service.ToggleSelfRegistration(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка переключения регистрации")
		h.sendMessage(chatID, "❌ Ошибка переключения регистрации")
		return
	}

	if enabled {
		h.sendMessage(chatID, "✅ Самостоятельная регистрация открыта")
	} else {
		h.sendMessage(chatID, "🔒 Самостоятельная регистрация закрыта, вход только по инвайтам")
	}
}

// HandleSetGroup обрабатывает админскую команду /set_group id —
// задаёт группу, членство в которой требуется для регистрации.
func (h *Handler) HandleSetGroup(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "❌ Формат: /set_group id (0 — снять требование)")
		return
	}
	groupID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ id группы должен быть числом")
		return
	}

	if err := h.service.SetGroupID(ctx, groupID); err != nil {
		log.WithError(err).Error("Ошибка сохранения группы")
		h.sendMessage(chatID, "❌ Ошибка сохранения группы")
		return
	}

	if groupID == 0 {
		h.sendMessage(chatID, "✅ Группа допуска снята")
	} else {
		h.sendMessage(chatID, fmt.Sprintf("✅ Группа допуска: %d", groupID))
	}
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
