// Package jellyfin — клиент административного API медиасервера Jellyfin.
// Боту нужны всего три операции: список пользователей, создание и удаление.
//
// Все вызовы идут с админским API-ключом (заголовок X-Emby-Token)
// и ограничены таймаутом: сервер живёт в другой сети и может не отвечать.
// Любой сбой (сеть, не-2xx статус) возвращается как ошибка — вызывающая
// сторона сама решает, терминальный это сбой или повторяемый.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jellyfin-bot/internal/common"
)

// User — пользователь Jellyfin (нам нужны только имя и внутренний ID).
type User struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

// createUserRequest — тело запроса POST /Users/New.
// Политика фиксированная: обычный пользователь с доступом ко всем папкам.
type createUserRequest struct {
	Name     string     `json:"Name"`
	Password string     `json:"Password"`
	Policy   userPolicy `json:"Policy"`
}

type userPolicy struct {
	IsAdministrator          bool `json:"IsAdministrator"`
	IsDisabled               bool `json:"IsDisabled"`
	EnableContentDownloading bool `json:"EnableContentDownloading"`
	EnableAllFolders         bool `json:"EnableAllFolders"`
}

// Client — HTTP-клиент административного API Jellyfin.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient создаёт клиент Jellyfin.
//
// Параметры:
//   - baseURL: адрес сервера, например http://jellyfin:8096
//   - apiKey: админский API-ключ
//   - timeout: таймаут одного запроса
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListUsers возвращает всех пользователей медиасервера.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Users", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET /Users вернул %d", common.ErrRemoteUnavailable, resp.StatusCode)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("%w: некорректный ответ: %v", common.ErrRemoteUnavailable, err)
	}
	return users, nil
}

// LookupUserID ищет внутренний ID пользователя по имени.
// Имя на Jellyfin уникально, поэтому берём первое совпадение.
func (c *Client) LookupUserID(ctx context.Context, username string) (string, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.Name == username {
			return u.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", common.ErrRemoteUserNotFound, username)
}

// CreateUser создаёт пользователя на медиасервере.
// Это необратимый внешний эффект — вызывается ДО записи в локальную базу,
// чтобы локальная база никогда не знала аккаунтов, которых нет на сервере.
func (c *Client) CreateUser(ctx context.Context, username, password string) error {
	body, err := json.Marshal(createUserRequest{
		Name:     username,
		Password: password,
		Policy: userPolicy{
			IsAdministrator:          false,
			IsDisabled:               false,
			EnableContentDownloading: true,
			EnableAllFolders:         true,
		},
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Users/New", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: POST /Users/New вернул %d", common.ErrRemoteUnavailable, resp.StatusCode)
	}
	return nil
}

// DeleteUser удаляет пользователя с медиасервера по внутреннему ID.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/Users/"+url.PathEscape(userID), nil)
	if err != nil {
		return fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	// Jellyfin отвечает 204 на успешное удаление, но принимаем любой 2xx
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: DELETE /Users/%s вернул %d", common.ErrRemoteUnavailable, userID, resp.StatusCode)
	}
	return nil
}
