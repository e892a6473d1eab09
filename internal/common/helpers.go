// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование, работа с временем UTC.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "монета" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "монеты" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "монет" (0, 5-20, 25-30, 100, ...)
func PluralizeCoins(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "монета"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "монеты"
	}
	return "монет"
}

// FormatCoins форматирует сумму в читабельную строку.
// Пример: FormatCoins(150) → "150 монет"
func FormatCoins(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeCoins(n))
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
func PluralizeDays(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}

// UTCDay обрезает время до календарной даты по UTC.
// Вся логика «раз в день» в боте считается по UTC-дням.
func UTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight возвращает начало следующих суток по UTC.
func NextUTCMidnight(t time.Time) time.Time {
	return UTCDay(t).Add(24 * time.Hour)
}

// FormatWait форматирует оставшееся время ожидания в «N часов M минут».
// Секунды округляются вверх до минуты, чтобы не писать «0 часов 0 минут»,
// когда до полуночи осталось меньше минуты.
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(math.Ceil(d.Minutes()))
	hours := total / 60
	minutes := total % 60
	return fmt.Sprintf("%d ч %d мин", hours, minutes)
}

// FormatExpiry форматирует срок действия аккаунта.
// nil означает бессрочный аккаунт.
func FormatExpiry(t *time.Time) string {
	if t == nil {
		return "бессрочно"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
