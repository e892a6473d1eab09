// Package accounts управляет жизненным циклом аккаунтов медиасервера:
// регистрация, выдача, удаление, чистка просроченных.
// models.go описывает локальную запись аккаунта.
package accounts

import "time"

// Account — локальная запись об аккаунте Jellyfin.
//
// Имя совпадает с именем пользователя на медиасервере — это связующее
// звено между локальной базой и Jellyfin. Пароль хранится открытым
// текстом намеренно: команда /query_credentials возвращает его владельцу.
type Account struct {
	Username     string     `db:"username"`      // имя на медиасервере (первичный ключ)
	Password     string     `db:"password"`      // открытый текст, см. выше
	RegisteredAt time.Time  `db:"registered_at"` // когда зарегистрирован
	TelegramID   int64      `db:"tg_id"`         // владелец; уникален — один аккаунт на человека
	ExpiresAt    *time.Time `db:"expires_at"`    // nil — бессрочный
	Whitelisted  bool       `db:"whitelisted"`   // белый список: чистка не трогает
}

// Expired сообщает, истёк ли аккаунт к моменту now.
// Бессрочные и белосписочные аккаунты не истекают никогда.
func (a *Account) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now) && !a.Whitelisted
}

// ReconcileReport — расхождения между медиасервером и локальной базой.
// remote-only появляются после сбоя между удалённым созданием и локальной
// записью; local-only — если кто-то удалил пользователя руками на сервере.
type ReconcileReport struct {
	RemoteOnly []string // есть на Jellyfin, нет в базе
	LocalOnly  []string // есть в базе, нет на Jellyfin
}

// Empty сообщает, что расхождений нет.
func (r *ReconcileReport) Empty() bool {
	return len(r.RemoteOnly) == 0 && len(r.LocalOnly) == 0
}
