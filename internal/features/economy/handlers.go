// Package economy — handlers.go обрабатывает команды:
// /daily (награда), /balance (баланс), /shop (магазин), /buy_N (покупка).
package economy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/common"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleDaily обрабатывает команду /daily — ежедневная награда.
//
// Ответ при успехе:
//
//	🎁 Ежедневная награда: 37 монет
//	💰 Баланс: 137 монет
func (h *Handler) HandleDaily(ctx context.Context, chatID, userID int64) {
	claim, wait, err := h.service.ClaimDaily(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotInGroup):
			h.sendMessage(chatID, "❌ Команда доступна только участникам группы")
		case errors.Is(err, common.ErrAlreadyClaimedToday):
			h.sendMessage(chatID, fmt.Sprintf(
				"⏳ Награда уже получена сегодня. Следующая через %s", common.FormatWait(wait)))
		default:
			log.WithError(err).Error("Ошибка начисления ежедневной награды")
			h.sendMessage(chatID, "❌ Ошибка получения награды, попробуйте позже")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🎁 Ежедневная награда: %s\n💰 Баланс: %s",
		common.FormatCoins(claim.Awarded), common.FormatCoins(claim.NewBalance)))
}

// HandleBalance обрабатывает команду /balance — баланс и правила экономики.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	info, err := h.service.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotInGroup) {
			h.sendMessage(chatID, "❌ Команда доступна только участникам группы")
			return
		}
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Ошибка получения баланса")
		return
	}

	text := fmt.Sprintf(
		"💰 Баланс: %s\n\n"+
			"🎁 Ежедневная награда: %d–%d монет (/daily)\n"+
			"🤝 Награда за приглашение: %s\n"+
			"🔋 Поддержание аккаунта: %s",
		common.FormatCoins(info.Coins),
		info.DailyMin, info.DailyMax,
		common.FormatCoins(int64(info.InviteReward)),
		common.FormatCoins(int64(info.KeepAlive)))
	h.sendMessage(chatID, text)
}

// HandleShop обрабатывает команду /shop — каталог по возрастанию цены,
// каждый товар со своим селектором /buy_N.
func (h *Handler) HandleShop(ctx context.Context, chatID, userID int64) {
	items, coins, err := h.service.Shop(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotInGroup) {
			h.sendMessage(chatID, "❌ Команда доступна только участникам группы")
			return
		}
		log.WithError(err).Error("Ошибка получения каталога")
		h.sendMessage(chatID, "❌ Ошибка получения каталога")
		return
	}

	if len(items) == 0 {
		h.sendMessage(chatID, "🛒 Магазин пока пуст")
		return
	}

	var sb strings.Builder
	sb.WriteString("🛒 Магазин:\n\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "• %s — %s\n  %s\n  Купить: /buy_%d\n\n",
			item.Name, common.FormatCoins(item.Price), item.Description, item.ID)
	}
	fmt.Fprintf(&sb, "💰 Ваш баланс: %s", common.FormatCoins(coins))
	h.sendMessage(chatID, sb.String())
}

// HandleBuy обрабатывает команду /buy_N. rawID — часть после «buy_»,
// её разобрал маршрутизатор.
func (h *Handler) HandleBuy(ctx context.Context, chatID, userID int64, rawID string) {
	itemID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || itemID <= 0 {
		h.sendMessage(chatID, "❌ Неизвестный товар. Каталог: /shop")
		return
	}

	receipt, err := h.service.Buy(ctx, userID, itemID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotInGroup):
			h.sendMessage(chatID, "❌ Команда доступна только участникам группы")
		case errors.Is(err, common.ErrItemNotFound):
			h.sendMessage(chatID, "❌ Такого товара нет. Каталог: /shop")
		case errors.Is(err, common.ErrInsufficientCoins):
			h.sendMessage(chatID, "❌ Недостаточно монет. Награда за сегодня: /daily")
		default:
			log.WithError(err).Error("Ошибка покупки")
			h.sendMessage(chatID, "❌ Ошибка покупки, попробуйте позже")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Куплено: %s за %s\n💰 Баланс: %s\n\nАдминистратор свяжется с вами для выдачи.",
		receipt.Item.Name,
		common.FormatCoins(receipt.Item.Price),
		common.FormatCoins(receipt.NewBalance)))
}

// HandleGrant обрабатывает админскую команду /grant tg_id сумма —
// прямое начисление монет (выдача, компенсация, ручной возврат).
func (h *Handler) HandleGrant(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.sendMessage(chatID, "❌ Формат: /grant tg_id сумма")
		return
	}
	tgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ tg_id должен быть числом")
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(chatID, "❌ Сумма должна быть положительным числом")
		return
	}

	newBalance, err := h.service.Grant(ctx, tgID, amount)
	if err != nil {
		log.WithError(err).Error("Ошибка начисления монет")
		h.sendMessage(chatID, "❌ Ошибка начисления монет")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Начислено %s пользователю %d\n💰 Его баланс: %s",
		common.FormatCoins(amount), tgID, common.FormatCoins(newBalance)))
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
