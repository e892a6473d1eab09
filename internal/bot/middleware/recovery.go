// Package middleware содержит промежуточные обработчики: восстановление
// после паники, rate-limiting и логирование входящих сообщений.
package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic восстанавливает обработчик апдейта после паники.
// Вызывается через defer в начале обработки каждого апдейта.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": "panic_recovery",
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}
