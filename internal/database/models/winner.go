// Package models 中奖记录数据模型
package models

import (
	"time"
)

// 中奖记录状态，pending 为初始态，sent / expired 为终态
const (
	WinnerStatusPending = "pending" // 待领取
	WinnerStatusSent    = "sent"    // 已发放
	WinnerStatusExpired = "expired" // 已过期
)

// WinnerRecord 中奖记录表，(lottery_id, tg) 唯一
type WinnerRecord struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryID uint       `gorm:"column:lottery_id;uniqueIndex:idx_winner_user" json:"lottery_id"`
	TG        int64      `gorm:"column:tg;uniqueIndex:idx_winner_user" json:"tg"`
	Username  string     `gorm:"column:username;size:255" json:"username"`
	Name      string     `gorm:"column:name;size:255" json:"name"`
	PrizeText string     `gorm:"column:prize_text;size:500" json:"prize_text"`        // 分得的奖品内容或保底文案
	ClaimCode string     `gorm:"column:claim_code;size:36;uniqueIndex" json:"claim_code"` // 领奖凭证
	Status    string     `gorm:"column:status;size:20;default:'pending';index" json:"status"`
	AssignedAt time.Time `gorm:"column:assigned_at" json:"assigned_at"`
	ClaimedAt *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	ExpiresAt time.Time  `gorm:"column:expires_at;index" json:"expires_at"`
}

// TableName 表名
func (WinnerRecord) TableName() string {
	return "lottery_winners"
}

// IsPending 是否待领取
func (w *WinnerRecord) IsPending() bool {
	return w.Status == WinnerStatusPending
}

// IsExpired 以指定时间为基准判断是否已超过领奖期限
func (w *WinnerRecord) IsExpired(now time.Time) bool {
	return now.After(w.ExpiresAt)
}
