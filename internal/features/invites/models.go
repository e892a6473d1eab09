// Package invites управляет инвайт-кодами для регистрации.
// models.go описывает структуру кода и его типы.
package invites

import "time"

// Kind — тип инвайт-кода. Определяет срок жизни аккаунта,
// который будет создан по этому коду (но не срок жизни самого кода —
// коды не протухают).
type Kind string

const (
	KindDay   Kind = "1d"   // аккаунт на сутки
	KindMonth Kind = "1m"   // аккаунт на 30 дней
	KindYear  Kind = "1y"   // аккаунт на год
	KindPerm  Kind = "perm" // бессрочный аккаунт
)

// Валидные типы кодов.
var validKinds = map[Kind]bool{
	KindDay:   true,
	KindMonth: true,
	KindYear:  true,
	KindPerm:  true,
}

// Valid сообщает, существует ли такой тип кода.
func (k Kind) Valid() bool {
	return validKinds[k]
}

// AccountExpiry возвращает срок действия аккаунта, создаваемого по коду
// данного типа. nil означает бессрочный аккаунт.
func (k Kind) AccountExpiry(now time.Time) *time.Time {
	var exp time.Time
	switch k {
	case KindDay:
		exp = now.Add(24 * time.Hour)
	case KindMonth:
		exp = now.Add(30 * 24 * time.Hour)
	case KindYear:
		exp = now.Add(365 * 24 * time.Hour)
	default: // KindPerm
		return nil
	}
	return &exp
}

// Invite — инвайт-код. Одноразовый: при успешной регистрации строка
// удаляется из базы, само существование строки и есть признак валидности.
type Invite struct {
	Code      string    `db:"code"`       // тело кода (без префикса inv_)
	Kind      Kind      `db:"kind"`       // тип кода
	CreatedAt time.Time `db:"created_at"` // когда сгенерирован
}

// Token возвращает полный токен, который отправляется пользователю:
// inv_ + 10 символов, всего 14.
func (i *Invite) Token() string {
	return TokenPrefix + i.Code
}
