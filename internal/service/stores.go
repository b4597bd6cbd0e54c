// Package service 抽奖引擎核心服务
//
// 各服务通过小接口访问存储层，默认实现是 repository 包的 GORM 仓库，
// 测试中注入内存实现
package service

import (
	"sync"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
)

// lotteryStore 抽奖活动存储
type lotteryStore interface {
	CreateExclusive(lottery *models.Lottery) (bool, error)
	GetByID(id uint) (*models.Lottery, error)
	GetActiveByChat(chatID int64) (*models.Lottery, error)
	GetLatestByChat(chatID int64) (*models.Lottery, error)
	CompleteIfActive(id uint) (bool, error)
	Delete(id uint) error
}

// participantStore 参与者存储
type participantStore interface {
	Admit(p *models.Participant, maxParticipants int) (int64, error)
	CountByLottery(lotteryID uint) (int64, error)
	ListByLottery(lotteryID uint) ([]models.Participant, error)
}

// prizeStore 奖品库存存储
type prizeStore interface {
	AddItems(warehouse string, texts []string, stock int) error
	NextAvailable(warehouse string) (*models.PrizeItem, error)
	Consume(itemID uint) (bool, error)
	Restock(itemID uint) error
	ListByWarehouse(warehouse string) ([]models.PrizeItem, error)
	Warehouses() ([]repository.WarehouseStat, error)
	Clear(warehouse string) (int64, error)
	ClearAll() (int64, error)
}

// winnerStore 中奖记录存储
type winnerStore interface {
	Create(record *models.WinnerRecord) error
	RecordsByLottery(lotteryID uint) ([]models.WinnerRecord, error)
	ListPendingByUser(tg int64) ([]models.WinnerRecord, error)
	MarkSent(lotteryID uint, tg int64, claimedAt time.Time) (bool, error)
	ExpirePending(now time.Time) (int64, error)
}

// EligibilityResolver 参与资格的外部查询依赖
// 机器人身份来自消息本身，属于本地判断，不经过该接口
type EligibilityResolver interface {
	HasAvatar(tg int64) (bool, error)
	HasUsername(tg int64) (bool, error)
	IsChannelMember(channelID, tg int64) (bool, error)
}

// Notifier 中奖通知的外部发送依赖
type Notifier interface {
	SendDirectMessage(tg int64, text string) error
}

// keyedMutex 按 key 串行化的互斥锁集合
// 不同 key 互不阻塞，同一 key 上的操作严格串行
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*sync.Mutex)}
}

func (k *keyedMutex) get(key int64) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	return lock
}
