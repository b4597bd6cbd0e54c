// Package repository 奖品库存数据仓库
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
)

// PrizeRepository 奖品仓库
type PrizeRepository struct {
	db *gorm.DB
}

// NewPrizeRepository 创建奖品仓库
func NewPrizeRepository() *PrizeRepository {
	return &PrizeRepository{db: database.GetDB()}
}

// AddItems 向仓库追加奖品，order_index 接在现有最大序号之后
func (r *PrizeRepository) AddItems(warehouse string, texts []string, stock int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var maxIndex int
		tx.Model(&models.PrizeItem{}).
			Where("warehouse = ?", warehouse).
			Select("COALESCE(MAX(order_index), 0)").
			Scan(&maxIndex)

		items := make([]models.PrizeItem, 0, len(texts))
		for i, text := range texts {
			items = append(items, models.PrizeItem{
				Warehouse:  warehouse,
				Text:       text,
				Stock:      stock,
				OrderIndex: maxIndex + i + 1,
				CreatedAt:  time.Now(),
			})
		}
		return tx.Create(&items).Error
	})
}

// NextAvailable 获取仓库中下一个有库存的奖品
// 顺序：order_index 升序，同序按插入顺序；无可用奖品时返回 nil
func (r *PrizeRepository) NextAvailable(warehouse string) (*models.PrizeItem, error) {
	var item models.PrizeItem
	err := r.db.Where("warehouse = ? AND stock > 0", warehouse).
		Order("order_index ASC, id ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Consume 消费一个单位库存（原子操作）
// 校验 stock > 0 和扣减在同一条语句内完成，并发扣减不会把库存打成负数；
// 返回是否扣减成功，失败表示库存已被其他调用方抢走
func (r *PrizeRepository) Consume(itemID uint) (bool, error) {
	result := r.db.Model(&models.PrizeItem{}).
		Where("id = ? AND stock > 0", itemID).
		Update("stock", gorm.Expr("stock - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Restock 归还一个单位库存（消费后落库失败时的补偿动作）
func (r *PrizeRepository) Restock(itemID uint) error {
	return r.db.Model(&models.PrizeItem{}).
		Where("id = ?", itemID).
		Update("stock", gorm.Expr("stock + 1")).Error
}

// ListByWarehouse 获取仓库内全部奖品
func (r *PrizeRepository) ListByWarehouse(warehouse string) ([]models.PrizeItem, error) {
	var items []models.PrizeItem
	err := r.db.Where("warehouse = ?", warehouse).
		Order("order_index ASC, id ASC").
		Find(&items).Error
	return items, err
}

// WarehouseStat 仓库统计
type WarehouseStat struct {
	Warehouse string `json:"warehouse"`
	Items     int64  `json:"items"`
	Stock     int64  `json:"stock"`
}

// Warehouses 统计全部仓库的奖品数和剩余库存
func (r *PrizeRepository) Warehouses() ([]WarehouseStat, error) {
	var stats []WarehouseStat
	err := r.db.Model(&models.PrizeItem{}).
		Select("warehouse, COUNT(*) AS items, COALESCE(SUM(stock), 0) AS stock").
		Group("warehouse").
		Order("warehouse ASC").
		Scan(&stats).Error
	return stats, err
}

// Clear 清空指定仓库（硬删除）
func (r *PrizeRepository) Clear(warehouse string) (int64, error) {
	result := r.db.Where("warehouse = ?", warehouse).Delete(&models.PrizeItem{})
	return result.RowsAffected, result.Error
}

// ClearAll 清空全部仓库（硬删除）
func (r *PrizeRepository) ClearAll() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&models.PrizeItem{})
	return result.RowsAffected, result.Error
}
