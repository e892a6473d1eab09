// Package bot содержит главный модуль бота — polling, разбор команд
// и маршрутизацию к обработчикам фич.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/bot/middleware"
	"jellyfin-bot/internal/config"
	"jellyfin-bot/internal/features/accounts"
	"jellyfin-bot/internal/features/economy"
	"jellyfin-bot/internal/features/invites"
	"jellyfin-bot/internal/features/settings"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter

	settingsHandler *settings.Handler
	accountHandler  *accounts.Handler
	inviteHandler   *invites.Handler
	economyHandler  *economy.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	settingsHandler *settings.Handler,
	accountHandler *accounts.Handler,
	inviteHandler *invites.Handler,
	economyHandler *economy.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		settingsHandler: settingsHandler,
		accountHandler:  accountHandler,
		inviteHandler:   inviteHandler,
		economyHandler:  economyHandler,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message
	if message.From == nil || message.Chat == nil {
		return
	}

	middleware.LogMessage(message)

	// Учётные данные и инвайты ходят только в личке. В группе бот молчит,
	// чтобы не светить чужие пароли.
	if !message.Chat.IsPrivate() {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	b.routeCommand(ctx, message.Chat.ID, message.From.ID, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":     cmd,
		"user_id": userID,
	}).Debug("routing command")

	// /buy_N — один параметризованный маршрут на весь каталог
	if id, ok := strings.CutPrefix(cmd, "buy_"); ok {
		b.economyHandler.HandleBuy(ctx, chatID, userID, id)
		return
	}

	switch cmd {
	case "start", "help":
		b.settingsHandler.HandleStart(ctx, chatID, b.cfg.IsAdmin(userID))

	case "register":
		b.accountHandler.HandleRegister(ctx, chatID, userID, args)

	case "query_credentials":
		b.accountHandler.HandleQueryCredentials(ctx, chatID, userID)

	case "daily":
		b.economyHandler.HandleDaily(ctx, chatID, userID)

	case "balance":
		b.economyHandler.HandleBalance(ctx, chatID, userID)

	case "shop":
		b.economyHandler.HandleShop(ctx, chatID, userID)

	default:
		b.routeAdminCommand(ctx, chatID, userID, cmd, args)
	}
}

// routeAdminCommand маршрутизирует админские команды.
// Статичный список ADMIN_IDS, членство в группе не при чём.
func (b *Bot) routeAdminCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	if !b.cfg.IsAdmin(userID) {
		return
	}

	switch cmd {
	case "toggle_registration":
		b.settingsHandler.HandleToggleRegistration(ctx, chatID)

	case "set_group":
		b.settingsHandler.HandleSetGroup(ctx, chatID, args)

	case "generate_invite":
		b.inviteHandler.HandleGenerate(ctx, chatID, args)

	case "give":
		b.accountHandler.HandleGive(ctx, chatID, args)

	case "kk":
		b.accountHandler.HandleWhitelist(ctx, chatID, args)

	case "admin_accounts":
		b.accountHandler.HandleList(ctx, chatID)

	case "delete_account":
		b.accountHandler.HandleDelete(ctx, chatID, args)

	case "extend":
		b.accountHandler.HandleExtend(ctx, chatID, args)

	case "grant":
		b.economyHandler.HandleGrant(ctx, chatID, args)

	case "reconcile":
		b.accountHandler.HandleReconcile(ctx, chatID)
	}
}

// SendMessageToChat отправляет сообщение в произвольный чат
// (отчёты фоновых задач админам).
func (b *Bot) SendMessageToChat(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser парсит слэш-команды Telegram.
type CommandParser struct{}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{}
}

// ParseCommand разбирает текст на команду и аргументы.
// Принимает «/cmd» и «/cmd@botname», регистр команды не важен.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}

	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	// /register@mybot — упоминание бота отрезаем
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
