// Package repository 参与者数据仓库
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// 存储层准入结果，由上层服务映射为对用户可见的拒绝原因
var (
	ErrLedgerFull           = errors.New("participant ledger full")
	ErrDuplicateParticipant = errors.New("participant already admitted")
)

// ParticipantRepository 参与者仓库
type ParticipantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository 创建参与者仓库
func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{db: database.GetDB()}
}

// Admit 准入一名参与者
// 复查人数、查重、插入在同一事务内完成，返回插入后的参与人数；
// 满员返回 ErrLedgerFull，重复返回 ErrDuplicateParticipant
func (r *ParticipantRepository) Admit(p *models.Participant, maxParticipants int) (int64, error) {
	var newCount int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("lottery_id = ?", p.LotteryID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(maxParticipants) {
			return ErrLedgerFull
		}

		var dup int64
		if err := tx.Model(&models.Participant{}).
			Where("lottery_id = ? AND tg = ?", p.LotteryID, p.TG).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateParticipant
		}

		if err := tx.Create(p).Error; err != nil {
			return err
		}
		newCount = count + 1
		return nil
	})
	return newCount, err
}

// CountByLottery 统计参与人数
func (r *ParticipantRepository) CountByLottery(lotteryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("lottery_id = ?", lotteryID).
		Count(&count).Error
	return count, err
}

// ListByLottery 获取全部参与者，按加入顺序
func (r *ParticipantRepository) ListByLottery(lotteryID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("lottery_id = ?", lotteryID).
		Order("id ASC").
		Find(&participants).Error
	return participants, err
}

// Exists 检查用户是否已参与
func (r *ParticipantRepository) Exists(lotteryID uint, tg int64) (bool, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("lottery_id = ? AND tg = ?", lotteryID, tg).
		Count(&count).Error
	return count > 0, err
}

// CountAll 统计全部参与记录数
func (r *ParticipantRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).Count(&count).Error
	return count, err
}
