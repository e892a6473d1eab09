package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSweeper struct {
	deleted, skipped int
	err              error
	calls            int
	called           chan struct{} // если задан, сигналит о каждом цикле
}

func (f *fakeSweeper) SweepExpired(_ context.Context) (int, int, error) {
	f.calls++
	if f.called != nil {
		f.called <- struct{}{}
	}
	return f.deleted, f.skipped, f.err
}

// Первый цикл выполняется сразу после запуска, без ожидания полного
// интервала: просроченные за время простоя аккаунты чистятся немедленно.
func TestSweeper_FirstCycleImmediate(t *testing.T) {
	fake := &fakeSweeper{called: make(chan struct{}, 1)}
	s := NewSweeper(fake, time.Hour, 5*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-fake.called:
	case <-time.After(2 * time.Second):
		t.Fatal("первый цикл чистки не запустился сразу после старта")
	}
}

// Пауза после цикла зависит от его исхода: чистый цикл — обычный
// интервал, сбой или пропуски — короткий.
func TestSweeper_IntervalSelection(t *testing.T) {
	const (
		interval      = time.Hour
		errorInterval = 5 * time.Minute
	)

	tests := []struct {
		name    string
		sweeper fakeSweeper
		want    time.Duration
	}{
		{"чистый цикл", fakeSweeper{deleted: 2}, interval},
		{"пустой цикл", fakeSweeper{}, interval},
		{"ошибка списка", fakeSweeper{err: errors.New("база недоступна")}, errorInterval},
		{"пропущенные аккаунты", fakeSweeper{deleted: 1, skipped: 3}, errorInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSweeper(&tt.sweeper, interval, errorInterval)
			if got := s.runOnce(context.Background()); got != tt.want {
				t.Errorf("runOnce() = %v, ожидалось %v", got, tt.want)
			}
			if tt.sweeper.calls != 1 {
				t.Errorf("цикл должен вызываться ровно один раз, вызван %d", tt.sweeper.calls)
			}
		})
	}
}
