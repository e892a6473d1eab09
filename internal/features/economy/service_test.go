package economy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jellyfin-bot/internal/common"
)

// ── Фейки ──

// fakeEconomyStore повторяет транзакционные гарантии настоящего
// репозитория: условное начисление награды и атомарную покупку.
type fakeEconomyStore struct {
	mu        sync.Mutex
	accounts  map[int64]*Currency
	items     map[int64]*ShopItem
	purchases []Purchase
	nextID    int64
}

func newFakeEconomyStore() *fakeEconomyStore {
	return &fakeEconomyStore{
		accounts: make(map[int64]*Currency),
		items:    make(map[int64]*ShopItem),
		nextID:   1,
	}
}

func (f *fakeEconomyStore) GetOrCreate(_ context.Context, tgID int64) (*Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.accounts[tgID]; ok {
		cp := *c
		return &cp, nil
	}
	f.accounts[tgID] = &Currency{TelegramID: tgID}
	cp := *f.accounts[tgID]
	return &cp, nil
}

func (f *fakeEconomyStore) ClaimDaily(_ context.Context, tgID int64, amount int64, now time.Time) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.accounts[tgID]
	if !ok {
		return 0, false, errors.New("счёт не существует")
	}
	// Та же проверка, что в SQL: сравнение календарных дат по UTC
	if c.LastDaily != nil && common.UTCDay(*c.LastDaily).Equal(common.UTCDay(now)) {
		return 0, false, nil
	}
	c.Coins += amount
	t := now
	c.LastDaily = &t
	return c.Coins, true, nil
}

func (f *fakeEconomyStore) GetItem(_ context.Context, itemID int64) (*ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok || !item.Enabled {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (f *fakeEconomyStore) ListItems(_ context.Context) ([]ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ShopItem
	for _, item := range f.items {
		if item.Enabled {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeEconomyStore) Purchase(_ context.Context, tgID int64, item *ShopItem) (*Purchase, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.accounts[tgID]
	if !ok {
		return nil, 0, errors.New("счёт не существует")
	}
	if c.Coins < item.Price {
		return nil, c.Coins, common.ErrInsufficientCoins
	}
	c.Coins -= item.Price
	p := Purchase{ID: f.nextID, TelegramID: tgID, ItemID: item.ID, PurchaseDate: time.Now()}
	f.nextID++
	f.purchases = append(f.purchases, p)
	return &p, c.Coins, nil
}

func (f *fakeEconomyStore) AddCoins(_ context.Context, tgID int64, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.accounts[tgID]
	if !ok {
		c = &Currency{TelegramID: tgID}
		f.accounts[tgID] = c
	}
	c.Coins += amount
	return c.Coins, nil
}

type fakeSettings struct {
	min, max, reward, keepAlive int
}

func (f *fakeSettings) DailyRange(_ context.Context) (int, int, error) { return f.min, f.max, nil }
func (f *fakeSettings) InviteReward(_ context.Context) (int, error)    { return f.reward, nil }
func (f *fakeSettings) KeepAliveCoins(_ context.Context) (int, error)  { return f.keepAlive, nil }

type fakeGate struct{ allow bool }

func (f *fakeGate) IsMember(_ context.Context, _ int64) bool { return f.allow }

func newTestService(store *fakeEconomyStore) *Service {
	return NewService(store, &fakeSettings{min: 10, max: 50, reward: 100, keepAlive: 100}, &fakeGate{allow: true})
}

// ── Допуск ──

// Монеты — привилегия участников группы: не-участник не получает награду,
// не видит баланс и магазин, не покупает. Счёт при отказе не создаётся.
func TestEconomy_DeniedForNonMember(t *testing.T) {
	store := newFakeEconomyStore()
	store.items[1] = &ShopItem{ID: 1, Name: "Белый список", Price: 30, Enabled: true}
	svc := NewService(store, &fakeSettings{min: 10, max: 50, reward: 100, keepAlive: 100}, &fakeGate{allow: false})
	ctx := context.Background()

	if _, _, err := svc.ClaimDaily(ctx, 42); !errors.Is(err, common.ErrNotInGroup) {
		t.Errorf("ClaimDaily: ожидался ErrNotInGroup, получено %v", err)
	}
	if _, err := svc.Balance(ctx, 42); !errors.Is(err, common.ErrNotInGroup) {
		t.Errorf("Balance: ожидался ErrNotInGroup, получено %v", err)
	}
	if _, _, err := svc.Shop(ctx, 42); !errors.Is(err, common.ErrNotInGroup) {
		t.Errorf("Shop: ожидался ErrNotInGroup, получено %v", err)
	}
	if _, err := svc.Buy(ctx, 42, 1); !errors.Is(err, common.ErrNotInGroup) {
		t.Errorf("Buy: ожидался ErrNotInGroup, получено %v", err)
	}

	if len(store.accounts) != 0 {
		t.Errorf("при отказе счёт не должен создаваться, счетов: %d", len(store.accounts))
	}
}

// Покинувший группу теряет доступ к накопленному со следующей команды.
func TestEconomy_ExMemberLosesAccess(t *testing.T) {
	store := newFakeEconomyStore()
	gate := &fakeGate{allow: true}
	svc := NewService(store, &fakeSettings{min: 10, max: 50, reward: 100, keepAlive: 100}, gate)
	ctx := context.Background()

	if _, _, err := svc.ClaimDaily(ctx, 42); err != nil {
		t.Fatalf("участник должен получить награду: %v", err)
	}

	gate.allow = false
	if _, _, err := svc.ClaimDaily(ctx, 42); !errors.Is(err, common.ErrNotInGroup) {
		t.Errorf("после выхода из группы ожидался ErrNotInGroup, получено %v", err)
	}
	if _, err := svc.Buy(ctx, 42, 1); !errors.Is(err, common.ErrNotInGroup) {
		t.Errorf("после выхода из группы покупка должна быть запрещена, получено %v", err)
	}
}

// ── Ежедневная награда ──

func TestClaimDaily_FirstClaim(t *testing.T) {
	store := newFakeEconomyStore()
	svc := newTestService(store)

	claim, wait, err := svc.ClaimDaily(context.Background(), 42)
	if err != nil {
		t.Fatalf("первая награда должна пройти: %v", err)
	}
	if wait != 0 {
		t.Errorf("при успехе ожидание должно быть 0, получено %v", wait)
	}
	if claim.Awarded < 10 || claim.Awarded > 50 {
		t.Errorf("награда вне диапазона 10..50: %d", claim.Awarded)
	}
	if claim.NewBalance != claim.Awarded {
		t.Errorf("баланс %d не равен награде %d", claim.NewBalance, claim.Awarded)
	}
}

func TestClaimDaily_SameDayRejected(t *testing.T) {
	store := newFakeEconomyStore()
	svc := newTestService(store)
	// Фиксируем время: полдень по UTC
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if _, _, err := svc.ClaimDaily(ctx, 42); err != nil {
		t.Fatalf("первая награда: %v", err)
	}

	_, wait, err := svc.ClaimDaily(ctx, 42)
	if !errors.Is(err, common.ErrAlreadyClaimedToday) {
		t.Fatalf("ожидался ErrAlreadyClaimedToday, получено %v", err)
	}
	if wait <= 0 || wait > 24*time.Hour {
		t.Errorf("ожидание должно быть в (0, 24ч], получено %v", wait)
	}
	if wait != 12*time.Hour {
		t.Errorf("в полдень до полуночи 12 часов, получено %v", wait)
	}
}

// Чем позже повторная попытка, тем меньше ожидание.
func TestClaimDaily_WaitDecreases(t *testing.T) {
	store := newFakeEconomyStore()
	svc := newTestService(store)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	if _, _, err := svc.ClaimDaily(ctx, 42); err != nil {
		t.Fatalf("первая награда: %v", err)
	}

	var prev time.Duration = 24 * time.Hour
	for _, offset := range []time.Duration{time.Hour, 5 * time.Hour, 10 * time.Hour} {
		svc.now = func() time.Time { return base.Add(offset) }
		_, wait, err := svc.ClaimDaily(ctx, 42)
		if !errors.Is(err, common.ErrAlreadyClaimedToday) {
			t.Fatalf("ожидался ErrAlreadyClaimedToday, получено %v", err)
		}
		if wait >= prev {
			t.Errorf("ожидание должно убывать: %v после %v", wait, prev)
		}
		prev = wait
	}
}

// На следующие UTC-сутки награда снова доступна.
func TestClaimDaily_NextDayAllowed(t *testing.T) {
	store := newFakeEconomyStore()
	svc := newTestService(store)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Date(2026, 9, 1, 23, 50, 0, 0, time.UTC) }
	first, _, err := svc.ClaimDaily(ctx, 42)
	if err != nil {
		t.Fatalf("первая награда: %v", err)
	}

	// 00:10 следующих суток — уже можно
	svc.now = func() time.Time { return time.Date(2026, 9, 2, 0, 10, 0, 0, time.UTC) }
	second, _, err := svc.ClaimDaily(ctx, 42)
	if err != nil {
		t.Fatalf("награда на следующий день должна пройти: %v", err)
	}
	if second.NewBalance != first.NewBalance+second.Awarded {
		t.Errorf("баланс должен накапливаться: %d + %d != %d",
			first.NewBalance, second.Awarded, second.NewBalance)
	}
}

// Из N конкурентных запросов в один день успешен ровно один.
func TestClaimDaily_ConcurrentSingleWinner(t *testing.T) {
	store := newFakeEconomyStore()
	svc := newTestService(store)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.ClaimDaily(ctx, 42)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, common.ErrAlreadyClaimedToday) {
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("ожидался ровно один успешный запрос, получено %d", winners)
	}
}

// ── Покупки ──

func TestBuy_Success(t *testing.T) {
	store := newFakeEconomyStore()
	store.items[1] = &ShopItem{ID: 1, Name: "Белый список", Price: 30, Description: "Навсегда", Enabled: true}
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, 42, 100); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	receipt, err := svc.Buy(ctx, 42, 1)
	if err != nil {
		t.Fatalf("покупка должна пройти: %v", err)
	}
	if receipt.NewBalance != 70 {
		t.Errorf("баланс после покупки должен быть 70, получено %d", receipt.NewBalance)
	}
	if len(store.purchases) != 1 {
		t.Errorf("должна быть ровно одна запись о покупке, получено %d", len(store.purchases))
	}
	if store.purchases[0].ItemID != 1 || store.purchases[0].TelegramID != 42 {
		t.Errorf("запись о покупке неверна: %+v", store.purchases[0])
	}
}

func TestBuy_InsufficientCoins(t *testing.T) {
	store := newFakeEconomyStore()
	store.items[1] = &ShopItem{ID: 1, Name: "Дорогой товар", Price: 9999, Enabled: true}
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, 42, 100); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	_, err := svc.Buy(ctx, 42, 1)
	if !errors.Is(err, common.ErrInsufficientCoins) {
		t.Fatalf("ожидался ErrInsufficientCoins, получено %v", err)
	}

	// Ни списания, ни записи о покупке
	c, _ := store.GetOrCreate(ctx, 42)
	if c.Coins != 100 {
		t.Errorf("баланс не должен измениться: ожидалось 100, получено %d", c.Coins)
	}
	if len(store.purchases) != 0 {
		t.Errorf("записей о покупке быть не должно, получено %d", len(store.purchases))
	}
}

func TestBuy_UnknownOrDisabledItem(t *testing.T) {
	store := newFakeEconomyStore()
	store.items[2] = &ShopItem{ID: 2, Name: "Снятый товар", Price: 5, Enabled: false}
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Buy(ctx, 42, 99); !errors.Is(err, common.ErrItemNotFound) {
		t.Errorf("несуществующий товар: ожидался ErrItemNotFound, получено %v", err)
	}
	if _, err := svc.Buy(ctx, 42, 2); !errors.Is(err, common.ErrItemNotFound) {
		t.Errorf("снятый товар: ожидался ErrItemNotFound, получено %v", err)
	}
}

// ── Баланс ──

func TestBalance_LazyCreation(t *testing.T) {
	store := newFakeEconomyStore()
	svc := newTestService(store)

	info, err := svc.Balance(context.Background(), 42)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if info.Coins != 0 {
		t.Errorf("новый счёт должен быть нулевым, получено %d", info.Coins)
	}
	if info.DailyMin != 10 || info.DailyMax != 50 {
		t.Errorf("диапазон награды должен приходить из настроек: %d..%d", info.DailyMin, info.DailyMax)
	}
	if info.InviteReward != 100 || info.KeepAlive != 100 {
		t.Errorf("настройки наград неверны: %+v", info)
	}
}
