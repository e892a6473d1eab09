// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
//
// Здесь только статичная конфигурация процесса (токены, адреса, интервалы).
// Оперативные настройки (группа, награды, самостоятельная регистрация)
// живут в таблице bot_config и меняются админ-командами без перезапуска.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную из AdminIDsRaw

	// --- Jellyfin ---
	JellyfinURL    string `envconfig:"JELLYFIN_URL" required:"true"`
	JellyfinAPIKey string `envconfig:"JELLYFIN_API_KEY" required:"true"`
	// Таймаут запросов к Jellyfin. Сервер может быть недоступен —
	// висеть дольше нельзя, иначе встанет обработка команд.
	JellyfinTimeout time.Duration `envconfig:"JELLYFIN_TIMEOUT" default:"10s"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose).
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"jellyfin_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт"
	// = утечка памяти при флуде.
	BotMaxInflight          int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admission ---
	// Что делать, если group_id в bot_config не задан (равен 0):
	// false — никого не пускаем (fail closed), true — пускаем всех.
	AdmissionBypass bool `envconfig:"ADMISSION_BYPASS" default:"false"`

	// --- Expiration sweep ---
	// Интервал между успешными циклами чистки просроченных аккаунтов
	// и укороченная пауза после сбоя цикла.
	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	SweepErrorInterval time.Duration `envconfig:"SWEEP_ERROR_INTERVAL" default:"5m"`

	// --- Дефолты bot_config (применяются один раз при первом запуске) ---
	DailyCoinMin     int `envconfig:"DAILY_COIN_MIN" default:"10"`
	DailyCoinMax     int `envconfig:"DAILY_COIN_MAX" default:"50"`
	InviteCoinReward int `envconfig:"INVITE_COIN_REWARD" default:"100"`
	KeepAliveCoins   int `envconfig:"KEEP_ALIVE_COINS" default:"100"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли пользователь в статичный список админов.
// Этот список независим от проверки членства в группе.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.JellyfinTimeout <= 0 {
		return fmt.Errorf("JELLYFIN_TIMEOUT должен быть > 0")
	}
	if c.SweepInterval <= 0 || c.SweepErrorInterval <= 0 {
		return fmt.Errorf("некорректные SWEEP_INTERVAL/SWEEP_ERROR_INTERVAL")
	}
	if c.DailyCoinMin <= 0 || c.DailyCoinMax < c.DailyCoinMin {
		return fmt.Errorf("некорректные DAILY_COIN_MIN/DAILY_COIN_MAX")
	}
	if !strings.HasPrefix(c.JellyfinURL, "http") {
		return fmt.Errorf("JELLYFIN_URL должен начинаться с http(s)://")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
