// Package service 开奖服务
package service

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var ErrAlreadyDrawn = errors.New("该抽奖已开过奖")

// DrawService 开奖服务
type DrawService struct {
	lotteries    lotteryStore
	participants participantStore
	distributor  *DistributionService
}

// NewDrawService 创建开奖服务
func NewDrawService(distributor *DistributionService) *DrawService {
	return newDrawService(
		repository.NewLotteryRepository(),
		repository.NewParticipantRepository(),
		distributor,
	)
}

func newDrawService(lotteries lotteryStore, participants participantStore, distributor *DistributionService) *DrawService {
	return &DrawService{
		lotteries:    lotteries,
		participants: participants,
		distributor:  distributor,
	}
}

// DrawResult 开奖结果
type DrawResult struct {
	Lottery          *models.Lottery
	Winners          []models.WinnerRecord
	ParticipantCount int
}

// Empty 是否无人参与（有效的开奖结果，无中奖记录，不消耗库存）
func (r *DrawResult) Empty() bool {
	return r.ParticipantCount == 0
}

// Draw 开奖
// 活动状态的原子翻转是防止重复开奖的唯一闸门：满员自动开奖与
// 手动开奖竞争时只有一方成功，另一方得到 ErrAlreadyDrawn。
// 中奖人数超过实际参与人数时按参与人数收敛
func (s *DrawService) Draw(lotteryID uint) (*DrawResult, error) {
	lottery, err := s.lotteries.GetByID(lotteryID)
	if err != nil {
		return nil, fmt.Errorf("查询抽奖活动失败: %w", err)
	}
	if lottery == nil {
		return nil, ErrLotteryNotFound
	}

	flipped, err := s.lotteries.CompleteIfActive(lotteryID)
	if err != nil {
		return nil, fmt.Errorf("更新活动状态失败: %w", err)
	}
	if !flipped {
		return nil, ErrAlreadyDrawn
	}
	lottery.Status = models.LotteryStatusCompleted

	invalidateActiveCache(lottery.ChatID)

	participants, err := s.participants.ListByLottery(lotteryID)
	if err != nil {
		return nil, fmt.Errorf("获取参与者失败: %w", err)
	}

	result := &DrawResult{
		Lottery:          lottery,
		ParticipantCount: len(participants),
	}

	if len(participants) == 0 {
		logger.Info().Uint("lottery_id", lotteryID).Msg("无人参与，活动结束")
		return result, nil
	}

	winners := selectWinners(participants, lottery.WinnerCount)

	records, err := s.distributor.Distribute(lottery, winners)
	if err != nil {
		return nil, err
	}
	result.Winners = records

	logger.Info().
		Uint("lottery_id", lotteryID).
		Int("participants", len(participants)).
		Int("winners", len(records)).
		Msg("开奖完成")

	return result, nil
}

// selectWinners 等概率无放回抽取
// 对完整参与者列表做 Fisher-Yates 洗牌后取前 k 个，
// 每名参与者中选概率相同
func selectWinners(participants []models.Participant, winnerCount int) []models.Participant {
	shuffled := make([]models.Participant, len(participants))
	copy(shuffled, participants)

	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	k := winnerCount
	if k > len(shuffled) {
		k = len(shuffled)
	}
	return shuffled[:k]
}
