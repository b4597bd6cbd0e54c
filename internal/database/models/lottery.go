// Package models 抽奖活动数据模型
package models

import (
	"time"
)

// 抽奖活动状态
const (
	LotteryStatusActive    = "active"    // 进行中
	LotteryStatusCompleted = "completed" // 已开奖
)

// 奖品分发模式
const (
	ModeClaim    = "claim" // 中奖者手动领取
	ModeAutoSend = "auto"  // 开奖后自动私信发送
)

// Lottery 抽奖活动表
type Lottery struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID          int64     `gorm:"column:chat_id;index:idx_chat_status" json:"chat_id"`             // 所在群组 ID
	Title           string    `gorm:"column:title;size:255" json:"title"`                              // 活动标题
	Keyword         string    `gorm:"column:keyword;size:100" json:"keyword"`                          // 参与口令
	MaxParticipants int       `gorm:"column:max_participants" json:"max_participants"`                 // 人数上限，满员自动开奖
	WinnerCount     int       `gorm:"column:winner_count" json:"winner_count"`                         // 中奖人数，开奖时按实际人数收敛
	Mode            string    `gorm:"column:mode;size:20;default:'claim'" json:"mode"`                 // 分发模式: claim, auto
	ClaimTimeout    int64     `gorm:"column:claim_timeout" json:"claim_timeout"`                       // 领奖超时（秒）
	NeedAvatar      bool      `gorm:"column:need_avatar;default:false" json:"need_avatar"`             // 要求设置头像
	NeedUsername    bool      `gorm:"column:need_username;default:false" json:"need_username"`         // 要求设置用户名
	RequiredChannel int64     `gorm:"column:required_channel;default:0" json:"required_channel"`       // 要求加入的频道/群组 ID，0 表示不限
	AllowBots       bool      `gorm:"column:allow_bots;default:false" json:"allow_bots"`               // 是否允许机器人参与
	Warehouse       string    `gorm:"column:warehouse;size:100" json:"warehouse"`                      // 绑定的奖品仓库
	Status          string    `gorm:"column:status;size:20;default:'active';index:idx_chat_status" json:"status"`
	CreatorTG       int64     `gorm:"column:creator_tg" json:"creator_tg"`
	CreatorName     string    `gorm:"column:creator_name;size:255" json:"creator_name"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (Lottery) TableName() string {
	return "lotteries"
}

// IsActive 是否进行中
func (l *Lottery) IsActive() bool {
	return l.Status == LotteryStatusActive
}

// ClaimDeadline 以指定时间为基准计算领奖截止时间
func (l *Lottery) ClaimDeadline(from time.Time) time.Time {
	return from.Add(time.Duration(l.ClaimTimeout) * time.Second)
}

// Participant 参与者表，(lottery_id, tg) 唯一
type Participant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryID uint      `gorm:"column:lottery_id;uniqueIndex:idx_lottery_user" json:"lottery_id"`
	TG        int64     `gorm:"column:tg;uniqueIndex:idx_lottery_user" json:"tg"`
	Username  string    `gorm:"column:username;size:255" json:"username"`
	Name      string    `gorm:"column:name;size:255" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (Participant) TableName() string {
	return "lottery_participants"
}
