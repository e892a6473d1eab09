package access

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ── Фейки ──

type fakeGroups struct {
	id  int64
	err error
}

func (f *fakeGroups) GroupID(_ context.Context) (int64, error) {
	return f.id, f.err
}

type fakeAPI struct {
	status string
	err    error
	called bool
}

func (f *fakeAPI) GetChatMember(_ tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.called = true
	if f.err != nil {
		return tgbotapi.ChatMember{}, f.err
	}
	return tgbotapi.ChatMember{Status: f.status}, nil
}

// ── Тесты ──

func TestIsMember_Statuses(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{"member", true},
		{"administrator", true},
		{"creator", true},
		{"left", false},
		{"kicked", false},
		{"restricted", false},
	}

	for _, tc := range cases {
		svc := NewService(&fakeGroups{id: -100500}, &fakeAPI{status: tc.status}, false)
		if got := svc.IsMember(context.Background(), 42); got != tc.want {
			t.Errorf("статус %q: ожидалось %v, получено %v", tc.status, tc.want, got)
		}
	}
}

// Ошибка Telegram API должна означать отказ, а не допуск.
func TestIsMember_APIError_FailClosed(t *testing.T) {
	svc := NewService(&fakeGroups{id: -100500}, &fakeAPI{err: errors.New("timeout")}, true)
	if svc.IsMember(context.Background(), 42) {
		t.Error("ошибка API должна означать «не участник» (fail closed)")
	}
}

// Ошибка чтения настроек — тоже отказ.
func TestIsMember_SettingsError_FailClosed(t *testing.T) {
	svc := NewService(&fakeGroups{err: errors.New("db down")}, &fakeAPI{status: "member"}, true)
	if svc.IsMember(context.Background(), 42) {
		t.Error("ошибка настроек должна означать отказ")
	}
}

// Группа не настроена: поведение определяет флаг bypass.
func TestIsMember_NoGroupConfigured(t *testing.T) {
	api := &fakeAPI{status: "member"}

	svc := NewService(&fakeGroups{id: 0}, api, false)
	if svc.IsMember(context.Background(), 42) {
		t.Error("без группы и без bypass доступ должен быть закрыт")
	}

	svc = NewService(&fakeGroups{id: 0}, api, true)
	if !svc.IsMember(context.Background(), 42) {
		t.Error("с bypass доступ должен быть открыт")
	}
	if api.called {
		t.Error("при group_id=0 Telegram API вызываться не должен")
	}
}
