// Package service 奖品分发服务
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var ErrNothingToClaim = errors.New("没有待领取的奖品")

// DistributionService 奖品分发服务
// 驱动中奖记录 pending -> sent / expired 的状态机
type DistributionService struct {
	prizes   prizeStore
	winners  winnerStore
	notifier Notifier
	cfg      *config.Config
}

// NewDistributionService 创建奖品分发服务
func NewDistributionService(notifier Notifier) *DistributionService {
	return newDistributionService(
		repository.NewPrizeRepository(),
		repository.NewWinnerRepository(),
		notifier,
		config.Get(),
	)
}

func newDistributionService(prizes prizeStore, winners winnerStore, notifier Notifier, cfg *config.Config) *DistributionService {
	return &DistributionService{
		prizes:   prizes,
		winners:  winners,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Distribute 为一次开奖的全部中奖者分配奖品
// 按开奖顺序逐个执行：取库存、扣减、落中奖记录；
// 库存耗尽换保底文案，单个中奖者的失败不影响后续处理。
// auto 模式随后逐条尝试私信，发送失败的记录保持 pending，
// 已扣减的库存不回滚
func (s *DistributionService) Distribute(lottery *models.Lottery, winners []models.Participant) ([]models.WinnerRecord, error) {
	now := time.Now()
	records := make([]models.WinnerRecord, 0, len(winners))

	for _, w := range winners {
		prizeText, itemID := s.allocatePrize(lottery.Warehouse)

		record := models.WinnerRecord{
			LotteryID:  lottery.ID,
			TG:         w.TG,
			Username:   w.Username,
			Name:       w.Name,
			PrizeText:  prizeText,
			ClaimCode:  uuid.New().String(),
			Status:     models.WinnerStatusPending,
			AssignedAt: now,
			ExpiresAt:  lottery.ClaimDeadline(now),
		}

		if err := s.winners.Create(&record); err != nil {
			// 落库失败时归还已扣减的库存，库存不能凭空蒸发
			if itemID != 0 {
				if restockErr := s.prizes.Restock(itemID); restockErr != nil {
					logger.Error().Err(restockErr).Uint("item_id", itemID).Msg("归还库存失败")
				}
			}
			logger.Error().Err(err).
				Uint("lottery_id", lottery.ID).
				Int64("tg", w.TG).
				Msg("创建中奖记录失败")
			continue
		}

		records = append(records, record)
	}

	if lottery.Mode == models.ModeAutoSend {
		s.autoSend(lottery, records)
	}

	return records, nil
}

// allocatePrize 从仓库消费一个奖品
// 返回奖品文案和条目 ID；库存耗尽时返回保底文案和 0。
// 扣减是 CAS 语义，被并发抢走时继续取下一个有库存的条目
func (s *DistributionService) allocatePrize(warehouse string) (string, uint) {
	if warehouse == "" {
		return s.cfg.Lottery.FallbackPrize, 0
	}

	for {
		item, err := s.prizes.NextAvailable(warehouse)
		if err != nil {
			logger.Error().Err(err).Str("warehouse", warehouse).Msg("查询奖品库存失败")
			return s.cfg.Lottery.FallbackPrize, 0
		}
		if item == nil {
			return s.cfg.Lottery.FallbackPrize, 0
		}

		consumed, err := s.prizes.Consume(item.ID)
		if err != nil {
			logger.Error().Err(err).Uint("item_id", item.ID).Msg("扣减库存失败")
			return s.cfg.Lottery.FallbackPrize, 0
		}
		if consumed {
			return item.Text, item.ID
		}
		// 库存被其他中奖分配抢走，取下一个条目
	}
}

// autoSend 开奖后逐条私信中奖者
// 发送是尽力而为的旁路：成功的记录置为 sent，失败的保持
// pending 等待手动领取，且不中断剩余记录的发送
func (s *DistributionService) autoSend(lottery *models.Lottery, records []models.WinnerRecord) {
	if s.notifier == nil {
		return
	}

	for i := range records {
		r := &records[i]
		text := fmt.Sprintf(
			"🎉 恭喜中奖！\n\n活动: %s\n奖品: %s",
			lottery.Title, r.PrizeText,
		)

		if err := s.notifier.SendDirectMessage(r.TG, text); err != nil {
			logger.Warn().Err(err).
				Uint("lottery_id", lottery.ID).
				Int64("tg", r.TG).
				Msg("中奖私信发送失败，记录保持待领取")
			continue
		}

		now := time.Now()
		if ok, err := s.winners.MarkSent(lottery.ID, r.TG, now); err != nil {
			logger.Error().Err(err).Int64("tg", r.TG).Msg("更新中奖记录状态失败")
		} else if ok {
			r.Status = models.WinnerStatusSent
			r.ClaimedAt = &now
		}
	}
}

// MarkClaimed 手动完成领奖（原子操作，pending -> sent）
// 返回是否由本次调用完成状态翻转
func (s *DistributionService) MarkClaimed(lotteryID uint, tg int64) (bool, error) {
	return s.winners.MarkSent(lotteryID, tg, time.Now())
}

// ClaimAll 领取用户全部待领取的奖品
// 先做一次过期清扫，再逐条完成 pending -> sent 翻转，
// 返回本次实际领到的记录
func (s *DistributionService) ClaimAll(tg int64) ([]models.WinnerRecord, error) {
	if _, err := s.SweepExpired(); err != nil {
		logger.Warn().Err(err).Msg("领奖前过期清扫失败")
	}

	pending, err := s.winners.ListPendingByUser(tg)
	if err != nil {
		return nil, fmt.Errorf("查询待领取记录失败: %w", err)
	}
	if len(pending) == 0 {
		return nil, ErrNothingToClaim
	}

	claimed := make([]models.WinnerRecord, 0, len(pending))
	for _, record := range pending {
		ok, err := s.winners.MarkSent(record.LotteryID, record.TG, time.Now())
		if err != nil {
			logger.Error().Err(err).Uint("lottery_id", record.LotteryID).Int64("tg", tg).Msg("领奖失败")
			continue
		}
		if ok {
			record.Status = models.WinnerStatusSent
			claimed = append(claimed, record)
		}
	}

	if len(claimed) == 0 {
		return nil, ErrNothingToClaim
	}

	logger.Info().Int64("tg", tg).Int("count", len(claimed)).Msg("用户领取奖品")
	return claimed, nil
}

// ListWinners 获取活动的全部中奖记录，列出前先做过期清扫
func (s *DistributionService) ListWinners(lotteryID uint) ([]models.WinnerRecord, error) {
	if _, err := s.SweepExpired(); err != nil {
		logger.Warn().Err(err).Msg("过期清扫失败")
	}
	return s.winners.RecordsByLottery(lotteryID)
}

// SweepExpired 过期清扫
// 把领奖期限已过的 pending 记录置为 expired；sent 为终态不受影响
func (s *DistributionService) SweepExpired() (int64, error) {
	swept, err := s.winners.ExpirePending(time.Now())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		logger.Info().Int64("count", swept).Msg("已过期未领取的中奖记录清扫完成")
	}
	return swept, nil
}
