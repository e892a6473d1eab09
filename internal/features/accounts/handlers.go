// Package accounts — handlers.go обрабатывает команды жизненного цикла:
// /register, /query_credentials и админские /give, /kk, /admin_accounts,
// /delete_account, /reconcile.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/common"
	"jellyfin-bot/internal/features/settings"
)

// Handler обрабатывает команды аккаунтов.
type Handler struct {
	service  *Service
	settings *settings.Service // уведомление в группу о регистрации
	bot      *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик команд аккаунтов.
func NewHandler(service *Service, settings *settings.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, settings: settings, bot: bot}
}

// HandleRegister обрабатывает команду /register.
//
// Два формата:
//
//	/register имя пароль               — самостоятельная регистрация
//	/register inv_XXXXXXXXXX имя пароль — регистрация по инвайту
func (h *Handler) HandleRegister(ctx context.Context, chatID, userID int64, args []string) {
	var inviteArg, username, password string
	switch len(args) {
	case 2:
		username, password = args[0], args[1]
	case 3:
		inviteArg, username, password = args[0], args[1], args[2]
	default:
		h.sendMessage(chatID, "❌ Формат: /register [inv_код] имя пароль")
		return
	}

	account, err := h.service.Register(ctx, userID, inviteArg, username, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotInGroup):
			h.sendMessage(chatID, "❌ Регистрация доступна только участникам группы")
		case errors.Is(err, common.ErrRegistrationClosed):
			h.sendMessage(chatID, "❌ Самостоятельная регистрация закрыта, нужен инвайт-код:\n/register inv_код имя пароль")
		case errors.Is(err, common.ErrInviteInvalid):
			h.sendMessage(chatID, "❌ Инвайт-код не существует или введён с ошибкой")
		case errors.Is(err, common.ErrInviteAlreadyUsed):
			h.sendMessage(chatID, "❌ Этот инвайт-код уже использован")
		case errors.Is(err, common.ErrAlreadyRegistered):
			h.sendMessage(chatID, "❌ У вас уже есть аккаунт. Данные: /query_credentials")
		case errors.Is(err, common.ErrPasswordTooShort):
			h.sendMessage(chatID, "❌ Пароль должен быть не короче 6 символов")
		case errors.Is(err, common.ErrRemoteUnavailable):
			h.sendMessage(chatID, "❌ Медиасервер недоступен, попробуйте позже. Ничего не потрачено.")
		default:
			log.WithError(err).Error("Ошибка регистрации")
			h.sendMessage(chatID, "❌ Ошибка регистрации, попробуйте позже")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Аккаунт создан!\n\n👤 Имя: %s\n🔑 Пароль: %s\n📅 Срок: %s\n\nДанные всегда доступны: /query_credentials",
		account.Username, account.Password, common.FormatExpiry(account.ExpiresAt)))

	h.notifyGroup(ctx, account.Username)
}

// notifyGroup отправляет уведомление о регистрации в группу,
// если уведомления включены и группа настроена.
func (h *Handler) notifyGroup(ctx context.Context, username string) {
	notice, err := h.settings.RegistrationNotice(ctx)
	if err != nil || !notice {
		return
	}
	groupID, err := h.settings.GroupID(ctx)
	if err != nil || groupID == 0 {
		return
	}
	h.sendMessage(groupID, fmt.Sprintf("🎉 Новый аккаунт на медиасервере: %s", username))
}

// HandleQueryCredentials обрабатывает команду /query_credentials —
// возвращает владельцу его учётные данные.
func (h *Handler) HandleQueryCredentials(ctx context.Context, chatID, userID int64) {
	account, err := h.service.QueryCredentials(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotInGroup):
			h.sendMessage(chatID, "❌ Команда доступна только участникам группы")
		case errors.Is(err, common.ErrAccountNotFound):
			h.sendMessage(chatID, "❌ У вас нет аккаунта. Регистрация: /register имя пароль")
		default:
			log.WithError(err).Error("Ошибка получения учётных данных")
			h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		}
		return
	}

	h.sendMessage(chatID, formatAccount(account))
}

// HandleGive обрабатывает админскую команду /give tg_id имя пароль —
// прямая выдача бессрочного аккаунта, минуя допуск и инвайты.
func (h *Handler) HandleGive(ctx context.Context, chatID int64, args []string) {
	if len(args) != 3 {
		h.sendMessage(chatID, "❌ Формат: /give tg_id имя пароль")
		return
	}
	tgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ tg_id должен быть числом")
		return
	}

	account, err := h.service.Give(ctx, tgID, args[1], args[2])
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyRegistered):
			h.sendMessage(chatID, "❌ У этого пользователя уже есть аккаунт")
		case errors.Is(err, common.ErrPasswordTooShort):
			h.sendMessage(chatID, "❌ Пароль должен быть не короче 6 символов")
		case errors.Is(err, common.ErrRemoteUnavailable):
			h.sendMessage(chatID, "❌ Медиасервер недоступен")
		default:
			log.WithError(err).Error("Ошибка выдачи аккаунта")
			h.sendMessage(chatID, "❌ Ошибка выдачи аккаунта")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"✅ Аккаунт %s выдан пользователю %d (бессрочный)", account.Username, tgID))
}

// HandleWhitelist обрабатывает админскую команду /kk tg_id —
// переключает белый список и показывает состояние аккаунта.
func (h *Handler) HandleWhitelist(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "❌ Формат: /kk tg_id")
		return
	}
	tgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ tg_id должен быть числом")
		return
	}

	account, err := h.service.ToggleWhitelist(ctx, tgID)
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			h.sendMessage(chatID, "❌ У этого пользователя нет аккаунта")
			return
		}
		log.WithError(err).Error("Ошибка переключения белого списка")
		h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		return
	}

	state := "❎ выключен"
	if account.Whitelisted {
		state = "✅ включён"
	}
	h.sendMessage(chatID, fmt.Sprintf("Белый список для %s: %s\n\n%s",
		account.Username, state, formatAccount(account)))
}

// HandleList обрабатывает админскую команду /admin_accounts —
// список всех аккаунтов.
func (h *Handler) HandleList(ctx context.Context, chatID int64) {
	accounts, err := h.service.List(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка аккаунтов")
		h.sendMessage(chatID, "❌ Ошибка получения списка аккаунтов")
		return
	}

	if len(accounts) == 0 {
		h.sendMessage(chatID, "Аккаунтов пока нет")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Аккаунты (%d):\n\n", len(accounts))
	for _, a := range accounts {
		marker := ""
		if a.Whitelisted {
			marker = " ⭐"
		}
		fmt.Fprintf(&sb, "• %s (tg %d) — %s%s\n",
			a.Username, a.TelegramID, common.FormatExpiry(a.ExpiresAt), marker)
	}
	h.sendMessage(chatID, sb.String())
}

// HandleDelete обрабатывает админскую команду /delete_account имя —
// удаление сначала на медиасервере, затем локально.
func (h *Handler) HandleDelete(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "❌ Формат: /delete_account имя")
		return
	}
	username := args[0]

	if err := h.service.Delete(ctx, username); err != nil {
		switch {
		case errors.Is(err, common.ErrAccountNotFound):
			h.sendMessage(chatID, "❌ Аккаунта с таким именем нет")
		case errors.Is(err, common.ErrRemoteUnavailable):
			h.sendMessage(chatID, "❌ Медиасервер недоступен, аккаунт не тронут")
		default:
			log.WithError(err).Error("Ошибка удаления аккаунта")
			h.sendMessage(chatID, "❌ Ошибка удаления аккаунта")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Аккаунт %s удалён", username))
}

// HandleExtend обрабатывает админскую команду /extend имя дни —
// продление срока аккаунта (ручная выдача купленного продления).
func (h *Handler) HandleExtend(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.sendMessage(chatID, "❌ Формат: /extend имя дни")
		return
	}
	days, err := strconv.Atoi(args[1])
	if err != nil || days <= 0 {
		h.sendMessage(chatID, "❌ Число дней должно быть положительным")
		return
	}

	account, err := h.service.Extend(ctx, args[0], days)
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			h.sendMessage(chatID, "❌ Аккаунта с таким именем нет")
			return
		}
		log.WithError(err).Error("Ошибка продления аккаунта")
		h.sendMessage(chatID, "❌ Ошибка продления аккаунта")
		return
	}

	if account.ExpiresAt == nil {
		h.sendMessage(chatID, fmt.Sprintf("Аккаунт %s бессрочный, продлевать нечего", account.Username))
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Аккаунт %s продлён до %s",
		account.Username, common.FormatExpiry(account.ExpiresAt)))
}

// HandleReconcile обрабатывает админскую команду /reconcile —
// сверка медиасервера с локальной базой.
func (h *Handler) HandleReconcile(ctx context.Context, chatID int64) {
	report, err := h.service.Reconcile(ctx)
	if err != nil {
		if errors.Is(err, common.ErrRemoteUnavailable) {
			h.sendMessage(chatID, "❌ Медиасервер недоступен, сверка невозможна")
			return
		}
		log.WithError(err).Error("Ошибка сверки")
		h.sendMessage(chatID, "❌ Ошибка сверки")
		return
	}

	if report.Empty() {
		h.sendMessage(chatID, "✅ Расхождений нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("⚠️ Расхождения:\n")
	if len(report.RemoteOnly) > 0 {
		fmt.Fprintf(&sb, "\nТолько на медиасервере (%d):\n", len(report.RemoteOnly))
		for _, name := range report.RemoteOnly {
			fmt.Fprintf(&sb, "• %s\n", name)
		}
	}
	if len(report.LocalOnly) > 0 {
		fmt.Fprintf(&sb, "\nТолько в базе (%d):\n", len(report.LocalOnly))
		for _, name := range report.LocalOnly {
			fmt.Fprintf(&sb, "• %s\n", name)
		}
	}
	h.sendMessage(chatID, sb.String())
}

// formatAccount — карточка аккаунта для ответов владельцу и админу.
func formatAccount(a *Account) string {
	marker := ""
	if a.Whitelisted {
		marker = "\n⭐ Белый список: чистка не тронет"
	}
	return fmt.Sprintf("👤 Имя: %s\n🔑 Пароль: %s\n📅 Срок: %s%s",
		a.Username, a.Password, common.FormatExpiry(a.ExpiresAt), marker)
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
