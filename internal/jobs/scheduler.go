// scheduler.go настраивает расписание: ежедневная сверка локальной базы
// с медиасервером, отчёт админам при расхождениях.
package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"jellyfin-bot/internal/features/accounts"
)

// Reconciler — источник отчёта о расхождениях.
// Реализуется accounts.Service.
type Reconciler interface {
	Reconcile(ctx context.Context) (*accounts.ReconcileReport, error)
}

// Scheduler управляет задачами по календарному расписанию.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	adminIDs   []int64
	sendFunc   func(chatID int64, text string)
}

// NewScheduler создаёт новый планировщик.
// sendFunc — отправка сообщения в Telegram (bot.SendMessageToChat).
func NewScheduler(reconciler Reconciler, adminIDs []int64, sendFunc func(chatID int64, text string)) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		adminIDs:   adminIDs,
		sendFunc:   sendFunc,
	}
}

// Start запускает все задачи по расписанию.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежедневная сверка в 04:00 UTC — медиасервером в это время
	// почти не пользуются
	s.cron.AddFunc("0 4 * * *", func() {
		log.Info("[CRON] Ежедневная сверка с медиасервером")
		s.runReconcile(ctx)
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info("Планировщик задач остановлен")
}

// runReconcile выполняет сверку и рассылает отчёт админам,
// если нашлись расхождения.
func (s *Scheduler) runReconcile(ctx context.Context) {
	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Сверка не удалась")
		return
	}

	if report.Empty() {
		log.Debug("[CRON] Сверка: расхождений нет")
		return
	}

	log.WithFields(log.Fields{
		"remote_only": len(report.RemoteOnly),
		"local_only":  len(report.LocalOnly),
	}).Warn("[CRON] Сверка нашла расхождения")

	var sb strings.Builder
	sb.WriteString("⚠️ Ежедневная сверка нашла расхождения.\n")
	if len(report.RemoteOnly) > 0 {
		fmt.Fprintf(&sb, "Только на медиасервере: %s\n", strings.Join(report.RemoteOnly, ", "))
	}
	if len(report.LocalOnly) > 0 {
		fmt.Fprintf(&sb, "Только в базе: %s\n", strings.Join(report.LocalOnly, ", "))
	}
	sb.WriteString("Подробности: /reconcile")

	for _, adminID := range s.adminIDs {
		s.sendFunc(adminID, sb.String())
	}
}
