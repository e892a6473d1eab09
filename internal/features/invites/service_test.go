package invites

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"jellyfin-bot/internal/common"
)

// fakeInviteStore — хранилище инвайтов в памяти.
// Мьютекс нужен для теста конкурентного гашения.
type fakeInviteStore struct {
	mu      sync.Mutex
	invites map[string]*Invite
}

func newFakeInviteStore() *fakeInviteStore {
	return &fakeInviteStore{invites: make(map[string]*Invite)}
}

func (f *fakeInviteStore) Insert(_ context.Context, inv *Invite) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.invites[inv.Code]; exists {
		return false, nil
	}
	cp := *inv
	cp.CreatedAt = time.Now()
	f.invites[inv.Code] = &cp
	return true, nil
}

func (f *fakeInviteStore) Get(_ context.Context, code string) (*Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[code]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInviteStore) Redeem(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invites[code]; !ok {
		return false, nil
	}
	delete(f.invites, code)
	return true, nil
}

// ── Generate / ParseToken ──

func TestGenerate_TokenFormat(t *testing.T) {
	svc := NewService(newFakeInviteStore())

	token, err := svc.Generate(context.Background(), KindMonth)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(token) != 14 {
		t.Errorf("токен должен быть 14 символов, получено %d (%q)", len(token), token)
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("токен должен начинаться с %q: %q", TokenPrefix, token)
	}

	code, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken на своём же токене: %v", err)
	}
	if kind, err := svc.Validate(context.Background(), code); err != nil || kind != KindMonth {
		t.Errorf("Validate: ожидался KindMonth, получено %q (%v)", kind, err)
	}
}

func TestGenerate_UnknownKind(t *testing.T) {
	svc := NewService(newFakeInviteStore())
	if _, err := svc.Generate(context.Background(), Kind("2w")); err == nil {
		t.Error("неизвестный тип должен возвращать ошибку")
	}
}

func TestParseToken_Malformed(t *testing.T) {
	bad := []string{"", "inv_", "inv_short", "xxx_0123456789", "inv_01234567890"}
	for _, arg := range bad {
		if _, err := ParseToken(arg); !errors.Is(err, common.ErrInviteInvalid) {
			t.Errorf("ParseToken(%q): ожидался ErrInviteInvalid, получено %v", arg, err)
		}
	}
}

// ── Одноразовость ──

func TestRedeem_SingleUse(t *testing.T) {
	store := newFakeInviteStore()
	svc := NewService(store)
	ctx := context.Background()

	token, err := svc.Generate(ctx, KindDay)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	code, _ := ParseToken(token)

	if err := svc.Redeem(ctx, code); err != nil {
		t.Fatalf("первое гашение должно пройти: %v", err)
	}
	if err := svc.Redeem(ctx, code); !errors.Is(err, common.ErrInviteAlreadyUsed) {
		t.Errorf("повторное гашение: ожидался ErrInviteAlreadyUsed, получено %v", err)
	}
	if _, err := svc.Validate(ctx, code); !errors.Is(err, common.ErrInviteInvalid) {
		t.Errorf("погашенный код должен быть невалиден, получено %v", err)
	}
}

// Из N конкурентных гашений одного кода побеждает ровно одно.
func TestRedeem_ConcurrentSingleWinner(t *testing.T) {
	store := newFakeInviteStore()
	svc := NewService(store)
	ctx := context.Background()

	token, _ := svc.Generate(ctx, KindPerm)
	code, _ := ParseToken(token)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Redeem(ctx, code)
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else if !errors.Is(err, common.ErrInviteAlreadyUsed) {
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("ожидался ровно один победитель, получено %d", winners)
	}
}

// ── Kind → срок аккаунта ──

func TestKind_AccountExpiry(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		kind Kind
		want *time.Time
	}{
		{KindDay, ptr(now.Add(24 * time.Hour))},
		{KindMonth, ptr(now.Add(30 * 24 * time.Hour))},
		{KindYear, ptr(now.Add(365 * 24 * time.Hour))},
		{KindPerm, nil},
	}
	for _, tc := range cases {
		got := tc.kind.AccountExpiry(now)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("%s: ожидался nil (бессрочно), получено %v", tc.kind, got)
		case tc.want != nil && (got == nil || !got.Equal(*tc.want)):
			t.Errorf("%s: ожидалось %v, получено %v", tc.kind, tc.want, got)
		}
	}
}

func ptr(t time.Time) *time.Time { return &t }
