// Package repository 中奖记录数据仓库
package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// WinnerRepository 中奖记录仓库
type WinnerRepository struct {
	db *gorm.DB
}

// NewWinnerRepository 创建中奖记录仓库
func NewWinnerRepository() *WinnerRepository {
	return &WinnerRepository{db: database.GetDB()}
}

// Create 创建单条中奖记录
func (r *WinnerRepository) Create(record *models.WinnerRecord) error {
	return r.db.Create(record).Error
}

// RecordsByLottery 获取活动的全部中奖记录，按分配顺序
func (r *WinnerRepository) RecordsByLottery(lotteryID uint) ([]models.WinnerRecord, error) {
	var records []models.WinnerRecord
	err := r.db.Where("lottery_id = ?", lotteryID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// ListPendingByUser 获取用户全部待领取的中奖记录
func (r *WinnerRepository) ListPendingByUser(tg int64) ([]models.WinnerRecord, error) {
	var records []models.WinnerRecord
	err := r.db.Where("tg = ? AND status = ?", tg, models.WinnerStatusPending).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// MarkSent 将记录从 pending 置为 sent（原子操作）
// 返回是否由本次调用完成状态翻转；已过期或已发放的记录不受影响
func (r *WinnerRepository) MarkSent(lotteryID uint, tg int64, claimedAt time.Time) (bool, error) {
	result := r.db.Model(&models.WinnerRecord{}).
		Where("lottery_id = ? AND tg = ? AND status = ?", lotteryID, tg, models.WinnerStatusPending).
		Updates(map[string]interface{}{
			"status":     models.WinnerStatusSent,
			"claimed_at": claimedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpirePending 过期清扫：把领奖期限已过的 pending 记录置为 expired
// sent 为终态，永远不会被清扫
func (r *WinnerRepository) ExpirePending(now time.Time) (int64, error) {
	result := r.db.Model(&models.WinnerRecord{}).
		Where("status = ? AND expires_at < ?", models.WinnerStatusPending, now).
		Update("status", models.WinnerStatusExpired)
	return result.RowsAffected, result.Error
}

// CountByStatus 按状态统计中奖记录数
func (r *WinnerRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.WinnerRecord{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
