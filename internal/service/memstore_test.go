// Package service 测试用内存存储
// 与 GORM 仓库保持相同的原子语义：准入事务、状态 CAS、库存 CAS
package service

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
)

type memStore struct {
	mu sync.Mutex

	lotteries     map[uint]*models.Lottery
	participants  map[uint][]models.Participant
	prizes        []*models.PrizeItem
	winners       []*models.WinnerRecord
	nextLotteryID uint
	nextItemID    uint
	nextWinnerID  uint
	nextOrder     map[string]int

	failWinnerCreate bool // 注入中奖记录落库失败
}

func newMemStore() *memStore {
	return &memStore{
		lotteries:    make(map[uint]*models.Lottery),
		participants: make(map[uint][]models.Participant),
		nextOrder:    make(map[string]int),
	}
}

// --- lotteryStore ---

func (m *memStore) CreateExclusive(lottery *models.Lottery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.lotteries {
		if l.ChatID == lottery.ChatID && l.Status == models.LotteryStatusActive {
			return false, nil
		}
	}

	m.nextLotteryID++
	lottery.ID = m.nextLotteryID
	clone := *lottery
	m.lotteries[lottery.ID] = &clone
	return true, nil
}

func (m *memStore) GetByID(id uint) (*models.Lottery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lotteries[id]
	if !ok {
		return nil, nil
	}
	clone := *l
	return &clone, nil
}

func (m *memStore) GetActiveByChat(chatID int64) (*models.Lottery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.lotteries {
		if l.ChatID == chatID && l.Status == models.LotteryStatusActive {
			clone := *l
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetLatestByChat(chatID int64) (*models.Lottery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *models.Lottery
	for _, l := range m.lotteries {
		if l.ChatID == chatID && (latest == nil || l.ID > latest.ID) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (m *memStore) CompleteIfActive(id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lotteries[id]
	if !ok || l.Status != models.LotteryStatusActive {
		return false, nil
	}
	l.Status = models.LotteryStatusCompleted
	return true, nil
}

func (m *memStore) Delete(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.lotteries, id)
	delete(m.participants, id)

	kept := m.winners[:0]
	for _, w := range m.winners {
		if w.LotteryID != id {
			kept = append(kept, w)
		}
	}
	m.winners = kept
	return nil
}

// --- participantStore ---

func (m *memStore) Admit(p *models.Participant, maxParticipants int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.participants[p.LotteryID]
	if len(existing) >= maxParticipants {
		return 0, repository.ErrLedgerFull
	}
	for _, e := range existing {
		if e.TG == p.TG {
			return 0, repository.ErrDuplicateParticipant
		}
	}

	p.ID = uint(len(existing) + 1)
	m.participants[p.LotteryID] = append(existing, *p)
	return int64(len(existing) + 1), nil
}

func (m *memStore) CountByLottery(lotteryID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.participants[lotteryID])), nil
}

func (m *memStore) ListByLottery(lotteryID uint) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.participants[lotteryID]
	out := make([]models.Participant, len(list))
	copy(out, list)
	return out, nil
}

// --- prizeStore ---

func (m *memStore) AddItems(warehouse string, texts []string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, text := range texts {
		m.nextItemID++
		m.nextOrder[warehouse]++
		m.prizes = append(m.prizes, &models.PrizeItem{
			ID:         m.nextItemID,
			Warehouse:  warehouse,
			Text:       text,
			Stock:      stock,
			OrderIndex: m.nextOrder[warehouse],
			CreatedAt:  time.Now(),
		})
	}
	return nil
}

func (m *memStore) NextAvailable(warehouse string) (*models.PrizeItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *models.PrizeItem
	for _, item := range m.prizes {
		if item.Warehouse != warehouse || item.Stock <= 0 {
			continue
		}
		if best == nil ||
			item.OrderIndex < best.OrderIndex ||
			(item.OrderIndex == best.OrderIndex && item.ID < best.ID) {
			best = item
		}
	}
	if best == nil {
		return nil, nil
	}
	clone := *best
	return &clone, nil
}

func (m *memStore) Consume(itemID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.prizes {
		if item.ID == itemID {
			if item.Stock <= 0 {
				return false, nil
			}
			item.Stock--
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Restock(itemID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.prizes {
		if item.ID == itemID {
			item.Stock++
			return nil
		}
	}
	return nil
}

func (m *memStore) ListByWarehouse(warehouse string) ([]models.PrizeItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PrizeItem
	for _, item := range m.prizes {
		if item.Warehouse == warehouse {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) Warehouses() ([]repository.WarehouseStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byName := make(map[string]*repository.WarehouseStat)
	for _, item := range m.prizes {
		stat, ok := byName[item.Warehouse]
		if !ok {
			stat = &repository.WarehouseStat{Warehouse: item.Warehouse}
			byName[item.Warehouse] = stat
		}
		stat.Items++
		stat.Stock += int64(item.Stock)
	}

	out := make([]repository.WarehouseStat, 0, len(byName))
	for _, stat := range byName {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Warehouse < out[j].Warehouse })
	return out, nil
}

func (m *memStore) Clear(warehouse string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	kept := m.prizes[:0]
	for _, item := range m.prizes {
		if item.Warehouse == warehouse {
			deleted++
		} else {
			kept = append(kept, item)
		}
	}
	m.prizes = kept
	return deleted, nil
}

func (m *memStore) ClearAll() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := int64(len(m.prizes))
	m.prizes = nil
	return deleted, nil
}

// --- winnerStore ---

func (m *memStore) Create(record *models.WinnerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWinnerCreate {
		return errors.New("winner create failed")
	}
	for _, w := range m.winners {
		if w.LotteryID == record.LotteryID && w.TG == record.TG {
			return errors.New("duplicate winner record")
		}
	}

	m.nextWinnerID++
	record.ID = m.nextWinnerID
	clone := *record
	m.winners = append(m.winners, &clone)
	return nil
}

func (m *memStore) RecordsByLottery(lotteryID uint) ([]models.WinnerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.WinnerRecord
	for _, w := range m.winners {
		if w.LotteryID == lotteryID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memStore) ListPendingByUser(tg int64) ([]models.WinnerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.WinnerRecord
	for _, w := range m.winners {
		if w.TG == tg && w.Status == models.WinnerStatusPending {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memStore) MarkSent(lotteryID uint, tg int64, claimedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.winners {
		if w.LotteryID == lotteryID && w.TG == tg && w.Status == models.WinnerStatusPending {
			w.Status = models.WinnerStatusSent
			t := claimedAt
			w.ClaimedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ExpirePending(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var swept int64
	for _, w := range m.winners {
		if w.Status == models.WinnerStatusPending && now.After(w.ExpiresAt) {
			w.Status = models.WinnerStatusExpired
			swept++
		}
	}
	return swept, nil
}

// --- 外部依赖的测试替身 ---

type fakeResolver struct {
	avatars   map[int64]bool
	usernames map[int64]bool
	members   map[int64]bool
	lookupErr error // 注入查询失败
}

func (f *fakeResolver) HasAvatar(tg int64) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.avatars[tg], nil
}

func (f *fakeResolver) HasUsername(tg int64) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.usernames[tg], nil
}

func (f *fakeResolver) IsChannelMember(channelID, tg int64) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.members[tg], nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]bool // 指定用户发送失败
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		sent:    make(map[int64][]string),
		failFor: make(map[int64]bool),
	}
}

func (f *fakeNotifier) SendDirectMessage(tg int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor[tg] {
		return errors.New("send failed")
	}
	f.sent[tg] = append(f.sent[tg], text)
	return nil
}

func (f *fakeNotifier) sentCount(tg int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[tg])
}

// --- 组装 ---

func testConfig() *config.Config {
	return &config.Config{
		Lottery: config.LotteryConfig{
			Enabled:         true,
			DefaultMode:     models.ModeClaim,
			ClaimTimeout:    86400,
			FallbackPrize:   "谢谢参与，请联系管理员领取安慰奖",
			MaxParticipants: 10000,
			MaxWinners:      100,
		},
	}
}

type testEngine struct {
	store       *memStore
	cfg         *config.Config
	notifier    *fakeNotifier
	resolver    *fakeResolver
	lotteries   *LotteryService
	admission   *AdmissionService
	draw        *DrawService
	distributor *DistributionService
	prizes      *PrizeService
}

func newTestEngine() *testEngine {
	store := newMemStore()
	cfg := testConfig()
	notifier := newFakeNotifier()
	resolver := &fakeResolver{
		avatars:   make(map[int64]bool),
		usernames: make(map[int64]bool),
		members:   make(map[int64]bool),
	}

	distributor := newDistributionService(store, store, notifier, cfg)
	draw := newDrawService(store, store, distributor)

	return &testEngine{
		store:       store,
		cfg:         cfg,
		notifier:    notifier,
		resolver:    resolver,
		lotteries:   newLotteryService(store, cfg),
		admission:   newAdmissionService(store, store, resolver, draw),
		draw:        draw,
		distributor: distributor,
		prizes:      newPrizeService(store),
	}
}

// mustCreateLottery 建一场测试活动
func (e *testEngine) mustCreateLottery(t interface{ Fatalf(string, ...interface{}) }, req *CreateRequest) *models.Lottery {
	lottery, err := e.lotteries.Create(req)
	if err != nil {
		t.Fatalf("创建抽奖活动失败: %v", err)
	}
	return lottery
}

// mustJoin 让指定用户参与
func (e *testEngine) mustJoin(t interface{ Fatalf(string, ...interface{}) }, lotteryID uint, tg int64) *JoinResult {
	result, err := e.admission.Join(lotteryID, &JoinRequest{
		TG:       tg,
		Username: "user",
		Name:     "测试用户",
	})
	if err != nil {
		t.Fatalf("参与抽奖失败 tg=%d: %v", tg, err)
	}
	return result
}
