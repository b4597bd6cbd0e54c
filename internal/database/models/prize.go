// Package models 奖品库存数据模型
package models

import (
	"time"
)

// PrizeItem 奖品条目，按仓库分组
// 消费顺序：order_index 升序，同序按插入顺序；仅 stock > 0 的条目可被消费
type PrizeItem struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Warehouse  string    `gorm:"column:warehouse;size:100;index" json:"warehouse"` // 仓库名称
	Text       string    `gorm:"column:text;size:500" json:"text"`                 // 奖品内容（卡密、文案等）
	Stock      int       `gorm:"column:stock" json:"stock"`                        // 剩余库存，不会为负
	OrderIndex int       `gorm:"column:order_index" json:"order_index"`            // 消费顺序
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (PrizeItem) TableName() string {
	return "prize_items"
}

// Available 是否还有库存
func (p *PrizeItem) Available() bool {
	return p.Stock > 0
}
