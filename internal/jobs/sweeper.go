// Package jobs управляет фоновыми задачами: циклом чистки просроченных
// аккаунтов и ежедневной сверкой по расписанию (cron).
package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExpirationSweeper — источник одного цикла чистки.
// Реализуется accounts.Service.
type ExpirationSweeper interface {
	SweepExpired(ctx context.Context) (deleted, skipped int, err error)
}

// Sweeper периодически запускает чистку просроченных аккаунтов.
//
// Интервал адаптивный: после чистого цикла ждём interval, после цикла
// со сбоями (ошибка списка или пропущенные аккаунты) — errorInterval,
// чтобы быстрее повторить попытку, когда медиасервер оживёт.
type Sweeper struct {
	sweeper       ExpirationSweeper
	interval      time.Duration
	errorInterval time.Duration
}

// NewSweeper создаёт новый цикл чистки.
func NewSweeper(sweeper ExpirationSweeper, interval, errorInterval time.Duration) *Sweeper {
	return &Sweeper{
		sweeper:       sweeper,
		interval:      interval,
		errorInterval: errorInterval,
	}
}

// Run крутит цикл чистки до отмены контекста. Блокирует — запускать
// в отдельной горутине.
func (s *Sweeper) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"interval":       s.interval,
		"error_interval": s.errorInterval,
	}).Info("Цикл чистки просроченных аккаунтов запущен")

	// Первый цикл сразу после старта: за время простоя процесса могли
	// накопиться просроченные аккаунты, час ждать их незачем
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Цикл чистки остановлен (ctx done)")
			return
		case <-timer.C:
		}

		timer.Reset(s.runOnce(ctx))
	}
}

// runOnce выполняет один цикл и возвращает паузу до следующего.
func (s *Sweeper) runOnce(ctx context.Context) time.Duration {
	deleted, skipped, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		log.WithError(err).Error("Чистка: цикл не удался")
		return s.errorInterval
	}

	if deleted > 0 || skipped > 0 {
		log.WithFields(log.Fields{
			"deleted": deleted,
			"skipped": skipped,
		}).Info("Чистка: цикл завершён")
	}

	if skipped > 0 {
		return s.errorInterval
	}
	return s.interval
}
