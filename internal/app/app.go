// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, клиента Jellyfin, репозитории,
// сервисы, обработчики и собирает всё в один объект.
package app

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/bot"
	"jellyfin-bot/internal/config"
	"jellyfin-bot/internal/db/postgres"
	"jellyfin-bot/internal/features/access"
	"jellyfin-bot/internal/features/accounts"
	"jellyfin-bot/internal/features/economy"
	"jellyfin-bot/internal/features/invites"
	"jellyfin-bot/internal/features/settings"
	"jellyfin-bot/internal/jellyfin"
	"jellyfin-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Sweeper   *jobs.Sweeper
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Клиент Jellyfin ===
	jellyfinClient := jellyfin.NewClient(cfg.JellyfinURL, cfg.JellyfinAPIKey, cfg.JellyfinTimeout)

	// === 4. Репозитории ===
	settingsRepo := settings.NewRepository(pool)
	inviteRepo := invites.NewRepository(pool)
	accountRepo := accounts.NewRepository(pool)
	economyRepo := economy.NewRepository(pool)

	// Дефолты bot_config — один раз, существующие значения не трогаем
	if err := settingsRepo.SeedDefaults(ctx, map[string]string{
		settings.KeyDailyCoinMin:       strconv.Itoa(cfg.DailyCoinMin),
		settings.KeyDailyCoinMax:       strconv.Itoa(cfg.DailyCoinMax),
		settings.KeyInviteCoinReward:   strconv.Itoa(cfg.InviteCoinReward),
		settings.KeyKeepAliveCoins:     strconv.Itoa(cfg.KeepAliveCoins),
		settings.KeySelfRegistration:   "1",
		settings.KeyRegistrationNotice: "1",
	}); err != nil {
		return nil, fmt.Errorf("ошибка записи дефолтных настроек: %w", err)
	}

	// === 5. Сервисы ===
	settingsService := settings.NewService(settingsRepo)
	accessService := access.NewService(settingsService, botAPI, cfg.AdmissionBypass)
	inviteService := invites.NewService(inviteRepo)
	accountService := accounts.NewService(accountRepo, jellyfinClient, inviteService, accessService, settingsService)
	economyService := economy.NewService(economyRepo, settingsService, accessService)

	// === 6. Обработчики ===
	settingsHandler := settings.NewHandler(settingsService, botAPI)
	accountHandler := accounts.NewHandler(accountService, settingsService, botAPI)
	inviteHandler := invites.NewHandler(inviteService, botAPI)
	economyHandler := economy.NewHandler(economyService, botAPI)

	// === 7. Собираем бота ===
	b := bot.New(botAPI, cfg, settingsHandler, accountHandler, inviteHandler, economyHandler)

	// === 8. Фоновые задачи ===
	sweeper := jobs.NewSweeper(accountService, cfg.SweepInterval, cfg.SweepErrorInterval)
	scheduler := jobs.NewScheduler(accountService, cfg.AdminIDs, b.SendMessageToChat)

	return &App{
		Bot:       b,
		Sweeper:   sweeper,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Invites},
		{2, migration002Users},
		{3, migration003Currency},
		{4, migration004Shop},
		{5, migration005Config},
	}

	for _, m := range migrations {
		if err := postgres.ApplyMigration(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Invites = `
CREATE TABLE IF NOT EXISTS invites (
    code VARCHAR(32) PRIMARY KEY,
    kind VARCHAR(8) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration002Users = `
CREATE TABLE IF NOT EXISTS users (
    username VARCHAR(255) PRIMARY KEY,
    password VARCHAR(255) NOT NULL,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    tg_id BIGINT UNIQUE NOT NULL,
    expires_at TIMESTAMPTZ,
    whitelisted BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_users_expires_at ON users(expires_at) WHERE expires_at IS NOT NULL;
`

var migration003Currency = `
CREATE TABLE IF NOT EXISTS user_currency (
    tg_id BIGINT PRIMARY KEY,
    coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
    last_daily TIMESTAMPTZ,
    invited_by BIGINT
);
`

var migration004Shop = `
CREATE TABLE IF NOT EXISTS exchange_items (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    price BIGINT NOT NULL CHECK (price > 0),
    description TEXT NOT NULL DEFAULT '',
    enabled BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS user_purchases (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT NOT NULL,
    item_id BIGINT NOT NULL REFERENCES exchange_items(id),
    purchase_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    used BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_user_purchases_tg_id ON user_purchases(tg_id);

-- Стартовый каталог; дальше им управляет админ прямо в базе
INSERT INTO exchange_items (name, price, description) VALUES
    ('Продление на 30 дней', 100, 'Срок действия аккаунта продлевается на месяц'),
    ('Продление на 365 дней', 1000, 'Срок действия аккаунта продлевается на год'),
    ('Белый список', 3000, 'Аккаунт навсегда защищён от чистки');
`

var migration005Config = `
CREATE TABLE IF NOT EXISTS bot_config (
    key VARCHAR(64) PRIMARY KEY,
    value VARCHAR(255) NOT NULL
);
`
