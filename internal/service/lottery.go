// Package service 抽奖活动服务
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
	"github.com/smysle/sakura-lottery-go/pkg/utils"
)

var (
	ErrLotteryDisabled = errors.New("抽奖功能已关闭")
	ErrLotteryExists   = errors.New("本群已有进行中的抽奖")
	ErrLotteryNotFound = errors.New("抽奖活动不存在")
	ErrInvalidTitle    = errors.New("无效的活动标题")
	ErrInvalidKeyword  = errors.New("无效的参与口令")
	ErrInvalidCapacity = errors.New("无效的人数上限")
	ErrInvalidWinners  = errors.New("无效的中奖人数")
	ErrInvalidMode     = errors.New("无效的分发模式")
)

// LotteryService 抽奖活动服务（每群组最多一个进行中活动）
type LotteryService struct {
	lotteries lotteryStore
	cfg       *config.Config
	chatLocks *keyedMutex // 同一群组的创建操作串行
}

// NewLotteryService 创建抽奖活动服务
func NewLotteryService() *LotteryService {
	return newLotteryService(repository.NewLotteryRepository(), config.Get())
}

func newLotteryService(store lotteryStore, cfg *config.Config) *LotteryService {
	return &LotteryService{
		lotteries: store,
		cfg:       cfg,
		chatLocks: newKeyedMutex(),
	}
}

// CreateRequest 创建抽奖活动请求
type CreateRequest struct {
	ChatID          int64
	Title           string
	Keyword         string
	MaxParticipants int
	WinnerCount     int
	Mode            string // 为空时取配置默认值
	ClaimTimeout    int64  // 秒，为空时取配置默认值
	NeedAvatar      bool
	NeedUsername    bool
	RequiredChannel int64
	AllowBots       bool
	Warehouse       string
	CreatorTG       int64
	CreatorName     string
}

// Create 创建抽奖活动
// 同一群组的创建请求串行执行，配合存储层事务保证
// 并发创建时最多一个成功
func (s *LotteryService) Create(req *CreateRequest) (*models.Lottery, error) {
	if !s.cfg.Lottery.Enabled {
		return nil, ErrLotteryDisabled
	}

	if req.Title == "" {
		return nil, ErrInvalidTitle
	}
	keyword := utils.NormalizeKeyword(req.Keyword)
	if keyword == "" {
		return nil, ErrInvalidKeyword
	}
	if req.MaxParticipants <= 0 || req.MaxParticipants > s.cfg.Lottery.MaxParticipants {
		return nil, ErrInvalidCapacity
	}
	// 中奖人数允许超过人数上限，开奖时按实际参与人数收敛
	if req.WinnerCount <= 0 || req.WinnerCount > s.cfg.Lottery.MaxWinners {
		return nil, ErrInvalidWinners
	}

	mode := req.Mode
	if mode == "" {
		mode = s.cfg.Lottery.DefaultMode
	}
	if mode != models.ModeClaim && mode != models.ModeAutoSend {
		return nil, ErrInvalidMode
	}

	claimTimeout := req.ClaimTimeout
	if claimTimeout <= 0 {
		claimTimeout = s.cfg.Lottery.ClaimTimeout
	}

	lottery := &models.Lottery{
		ChatID:          req.ChatID,
		Title:           req.Title,
		Keyword:         keyword,
		MaxParticipants: req.MaxParticipants,
		WinnerCount:     req.WinnerCount,
		Mode:            mode,
		ClaimTimeout:    claimTimeout,
		NeedAvatar:      req.NeedAvatar,
		NeedUsername:    req.NeedUsername,
		RequiredChannel: req.RequiredChannel,
		AllowBots:       req.AllowBots,
		Warehouse:       req.Warehouse,
		Status:          models.LotteryStatusActive,
		CreatorTG:       req.CreatorTG,
		CreatorName:     req.CreatorName,
		CreatedAt:       time.Now(),
	}

	lock := s.chatLocks.get(req.ChatID)
	lock.Lock()
	created, err := s.lotteries.CreateExclusive(lottery)
	lock.Unlock()

	if err != nil {
		return nil, fmt.Errorf("创建抽奖活动失败: %w", err)
	}
	if !created {
		return nil, ErrLotteryExists
	}

	invalidateActiveCache(req.ChatID)

	logger.Info().
		Uint("lottery_id", lottery.ID).
		Int64("chat_id", req.ChatID).
		Str("title", req.Title).
		Int("max", req.MaxParticipants).
		Int("winners", req.WinnerCount).
		Str("mode", mode).
		Msg("抽奖活动创建成功")

	return lottery, nil
}

// GetActive 获取群组当前进行中的抽奖活动
// 结果短暂缓存，参与口令匹配走缓存以减少数据库压力
func (s *LotteryService) GetActive(chatID int64) (*models.Lottery, error) {
	if cached, found := utils.CacheGet(activeCacheKey(chatID)); found {
		if lottery, ok := cached.(*models.Lottery); ok {
			return lottery, nil
		}
	}

	lottery, err := s.lotteries.GetActiveByChat(chatID)
	if err != nil {
		return nil, err
	}
	if lottery != nil {
		utils.CacheSet(activeCacheKey(chatID), lottery, time.Minute)
	}
	return lottery, nil
}

// ActiveByKeyword 按口令匹配群组当前进行中的抽奖活动
// 口令不匹配或无进行中活动时返回 nil
func (s *LotteryService) ActiveByKeyword(chatID int64, text string) (*models.Lottery, error) {
	keyword := utils.NormalizeKeyword(text)
	if keyword == "" {
		return nil, nil
	}

	lottery, err := s.GetActive(chatID)
	if err != nil {
		return nil, err
	}
	if lottery == nil || lottery.Keyword != keyword {
		return nil, nil
	}
	return lottery, nil
}

// GetByID 根据 ID 获取抽奖活动
func (s *LotteryService) GetByID(id uint) (*models.Lottery, error) {
	lottery, err := s.lotteries.GetByID(id)
	if err != nil {
		return nil, err
	}
	if lottery == nil {
		return nil, ErrLotteryNotFound
	}
	return lottery, nil
}

// GetLatest 获取群组最近一场抽奖活动（含已开奖）
func (s *LotteryService) GetLatest(chatID int64) (*models.Lottery, error) {
	return s.lotteries.GetLatestByChat(chatID)
}

// Delete 删除抽奖活动，级联删除参与者和中奖记录
func (s *LotteryService) Delete(id uint) error {
	lottery, err := s.lotteries.GetByID(id)
	if err != nil {
		return err
	}
	if lottery == nil {
		return ErrLotteryNotFound
	}

	if err := s.lotteries.Delete(id); err != nil {
		return fmt.Errorf("删除抽奖活动失败: %w", err)
	}

	invalidateActiveCache(lottery.ChatID)

	logger.Info().
		Uint("lottery_id", id).
		Int64("chat_id", lottery.ChatID).
		Msg("抽奖活动已删除")

	return nil
}

// activeCacheKey 群组进行中活动的缓存键
func activeCacheKey(chatID int64) string {
	return fmt.Sprintf("lottery:active:%d", chatID)
}

// invalidateActiveCache 活动创建、开奖、删除后让缓存失效
func invalidateActiveCache(chatID int64) {
	utils.CacheDelete(activeCacheKey(chatID))
}
