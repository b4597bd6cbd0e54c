// Package repository 抽奖活动数据仓库
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// LotteryRepository 抽奖活动仓库
type LotteryRepository struct {
	db *gorm.DB
}

// NewLotteryRepository 创建抽奖活动仓库
func NewLotteryRepository() *LotteryRepository {
	return &LotteryRepository{db: database.GetDB()}
}

// CreateExclusive 创建抽奖活动
// 同一群组最多一个进行中的活动，检查和插入在同一事务内完成；
// 已存在进行中活动时返回 false 且不创建
func (r *LotteryRepository) CreateExclusive(lottery *models.Lottery) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Lottery{}).
			Where("chat_id = ? AND status = ?", lottery.ChatID, models.LotteryStatusActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := tx.Create(lottery).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// GetByID 根据 ID 获取抽奖活动，不存在时返回 nil
func (r *LotteryRepository) GetByID(id uint) (*models.Lottery, error) {
	var lottery models.Lottery
	err := r.db.First(&lottery, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lottery, nil
}

// GetActiveByChat 获取群组当前进行中的抽奖活动，不存在时返回 nil
func (r *LotteryRepository) GetActiveByChat(chatID int64) (*models.Lottery, error) {
	var lottery models.Lottery
	err := r.db.Where("chat_id = ? AND status = ?", chatID, models.LotteryStatusActive).
		First(&lottery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lottery, nil
}

// GetLatestByChat 获取群组最近一场抽奖活动（含已开奖）
func (r *LotteryRepository) GetLatestByChat(chatID int64) (*models.Lottery, error) {
	var lottery models.Lottery
	err := r.db.Where("chat_id = ?", chatID).
		Order("id DESC").
		First(&lottery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lottery, nil
}

// CompleteIfActive 将活动状态从 active 置为 completed（原子操作）
// 返回是否由本次调用完成状态翻转，并发开奖时只有一个调用方会得到 true
func (r *LotteryRepository) CompleteIfActive(id uint) (bool, error) {
	result := r.db.Model(&models.Lottery{}).
		Where("id = ? AND status = ?", id, models.LotteryStatusActive).
		Update("status", models.LotteryStatusCompleted)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除抽奖活动，级联删除参与者和中奖记录
func (r *LotteryRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lottery_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lottery_id = ?", id).Delete(&models.WinnerRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lottery{}, id).Error
	})
}

// CountByStatus 统计指定状态的活动数量
func (r *LotteryRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Lottery{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
