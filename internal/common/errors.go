// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки допуска (членство в группе)
var (
	// ErrNotInGroup — пользователь не состоит в настроенной группе.
	// Любая неоднозначность (таймаут, нет прав) трактуется так же — fail closed.
	ErrNotInGroup = errors.New("пользователь не состоит в группе")
)

// Ошибки регистрации и инвайтов
var (
	// ErrRegistrationClosed — самостоятельная регистрация выключена,
	// а инвайт-код не передан или не распознан
	ErrRegistrationClosed = errors.New("самостоятельная регистрация закрыта")
	// ErrInviteInvalid — инвайт-код неправильного формата или не существует
	ErrInviteInvalid = errors.New("инвайт-код недействителен")
	// ErrInviteAlreadyUsed — инвайт-код уже погашен конкурентной регистрацией
	ErrInviteAlreadyUsed = errors.New("инвайт-код уже использован")
	// ErrAlreadyRegistered — у пользователя уже есть аккаунт (один на человека)
	ErrAlreadyRegistered = errors.New("аккаунт уже зарегистрирован")
	// ErrPasswordTooShort — пароль короче 6 символов
	ErrPasswordTooShort = errors.New("пароль должен быть не короче 6 символов")
	// ErrAccountNotFound — аккаунт не найден в базе
	ErrAccountNotFound = errors.New("аккаунт не найден")
)

// Ошибки экономики (монеты, магазин)
var (
	// ErrAlreadyClaimedToday — сегодня (по UTC) награда уже получена
	ErrAlreadyClaimedToday = errors.New("сегодня награда уже получена")
	// ErrInsufficientCoins — недостаточно монет для покупки
	ErrInsufficientCoins = errors.New("недостаточно монет на счёте")
	// ErrItemNotFound — товар не существует или снят с продажи
	ErrItemNotFound = errors.New("товар не найден или снят с продажи")
)

// Ошибки внешнего сервиса
var (
	// ErrRemoteUnavailable — Jellyfin не ответил или ответил ошибкой.
	// Для регистрации это терминально (пользователь повторит команду сам),
	// для чистки — аккаунт будет повторён в следующем цикле.
	ErrRemoteUnavailable = errors.New("медиасервер недоступен")
	// ErrRemoteUserNotFound — пользователь не найден на медиасервере
	ErrRemoteUserNotFound = errors.New("пользователь не найден на медиасервере")
)
