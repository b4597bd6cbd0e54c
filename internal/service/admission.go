// Package service 参与准入服务
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var (
	ErrLotteryClosed    = errors.New("该抽奖已开奖")
	ErrLotteryFull      = errors.New("参与人数已满")
	ErrAlreadyJoined    = errors.New("您已参与过该抽奖")
	ErrBotNotAllowed    = errors.New("机器人不能参与抽奖")
	ErrNeedAvatar       = errors.New("参与前请先设置头像")
	ErrNeedUsername     = errors.New("参与前请先设置用户名")
	ErrNotChannelMember = errors.New("参与前请先加入指定频道")
)

// AdmissionService 参与准入服务
type AdmissionService struct {
	lotteries    lotteryStore
	participants participantStore
	resolver     EligibilityResolver
	draw         *DrawService
	joinLocks    *keyedMutex // 同一活动的准入串行
}

// NewAdmissionService 创建参与准入服务
func NewAdmissionService(resolver EligibilityResolver, draw *DrawService) *AdmissionService {
	return newAdmissionService(
		repository.NewLotteryRepository(),
		repository.NewParticipantRepository(),
		resolver,
		draw,
	)
}

func newAdmissionService(lotteries lotteryStore, participants participantStore, resolver EligibilityResolver, draw *DrawService) *AdmissionService {
	return &AdmissionService{
		lotteries:    lotteries,
		participants: participants,
		resolver:     resolver,
		draw:         draw,
		joinLocks:    newKeyedMutex(),
	}
}

// JoinRequest 参与请求
type JoinRequest struct {
	TG       int64
	Username string
	Name     string
	IsBot    bool
}

// JoinResult 参与结果
type JoinResult struct {
	Lottery *models.Lottery
	Count   int64       // 本次参与后的人数
	Draw    *DrawResult // 参与后满员触发的开奖结果，未触发为 nil
}

// Join 参与抽奖
// 人数复查、查重、插入在一个事务内完成，且同一活动上的准入串行执行；
// 满员的那一次参与会触发开奖，开奖与手动 /draw 的竞争由
// 活动状态的原子翻转兜底，一场抽奖只会开奖一次
func (s *AdmissionService) Join(lotteryID uint, req *JoinRequest) (*JoinResult, error) {
	lottery, err := s.lotteries.GetByID(lotteryID)
	if err != nil {
		return nil, fmt.Errorf("查询抽奖活动失败: %w", err)
	}
	if lottery == nil {
		return nil, ErrLotteryNotFound
	}
	if !lottery.IsActive() {
		return nil, ErrLotteryClosed
	}

	// 资格校验走外部查询，放在临界区之外
	if err := s.checkEligibility(lottery, req); err != nil {
		return nil, err
	}

	participant := &models.Participant{
		LotteryID: lotteryID,
		TG:        req.TG,
		Username:  req.Username,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	lock := s.joinLocks.get(int64(lotteryID))
	lock.Lock()
	count, err := s.participants.Admit(participant, lottery.MaxParticipants)
	lock.Unlock()

	if errors.Is(err, repository.ErrLedgerFull) {
		return nil, ErrLotteryFull
	}
	if errors.Is(err, repository.ErrDuplicateParticipant) {
		return nil, ErrAlreadyJoined
	}
	if err != nil {
		return nil, fmt.Errorf("参与抽奖失败: %w", err)
	}

	logger.Info().
		Uint("lottery_id", lotteryID).
		Int64("tg", req.TG).
		Int64("count", count).
		Int("max", lottery.MaxParticipants).
		Msg("用户参与抽奖")

	result := &JoinResult{Lottery: lottery, Count: count}

	// 满员自动开奖
	if count >= int64(lottery.MaxParticipants) {
		drawResult, err := s.draw.Draw(lotteryID)
		if errors.Is(err, ErrAlreadyDrawn) {
			// 手动开奖抢先完成，无需重复
			return result, nil
		}
		if err != nil {
			logger.Error().Err(err).Uint("lottery_id", lotteryID).Msg("满员自动开奖失败")
			return result, nil
		}
		result.Draw = drawResult
	}

	return result, nil
}

// Count 获取活动当前参与人数
func (s *AdmissionService) Count(lotteryID uint) (int64, error) {
	return s.participants.CountByLottery(lotteryID)
}

// Participants 获取活动的全部参与者，按参与顺序
func (s *AdmissionService) Participants(lotteryID uint) ([]models.Participant, error) {
	return s.participants.ListByLottery(lotteryID)
}

// checkEligibility 评估参与资格
// 机器人过滤是本地判断，严格执行；其余条件依赖外部查询，
// 查询出错时放行（沿用线上行为）
func (s *AdmissionService) checkEligibility(lottery *models.Lottery, req *JoinRequest) error {
	if req.IsBot && !lottery.AllowBots {
		return ErrBotNotAllowed
	}

	if s.resolver == nil {
		if lottery.NeedUsername && req.Username == "" {
			return ErrNeedUsername
		}
		return nil
	}

	if lottery.NeedUsername && req.Username == "" {
		ok, err := s.resolver.HasUsername(req.TG)
		if err != nil {
			logger.Warn().Err(err).Int64("tg", req.TG).Msg("用户名查询失败，跳过该项校验")
		} else if !ok {
			return ErrNeedUsername
		}
	}

	if lottery.NeedAvatar {
		ok, err := s.resolver.HasAvatar(req.TG)
		if err != nil {
			logger.Warn().Err(err).Int64("tg", req.TG).Msg("头像查询失败，跳过该项校验")
		} else if !ok {
			return ErrNeedAvatar
		}
	}

	if lottery.RequiredChannel != 0 {
		ok, err := s.resolver.IsChannelMember(lottery.RequiredChannel, req.TG)
		if err != nil {
			logger.Warn().Err(err).Int64("tg", req.TG).Msg("频道成员查询失败，跳过该项校验")
		} else if !ok {
			return ErrNotChannelMember
		}
	}

	return nil
}
