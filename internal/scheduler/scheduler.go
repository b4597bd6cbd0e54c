// Package scheduler 定时任务调度
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// Scheduler 定时任务调度器
type Scheduler struct {
	cron *gocron.Scheduler
	cfg  *config.Config
	bot  *tele.Bot
}

var instance *Scheduler

// New 创建调度器
func New(cfg *config.Config) *Scheduler {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	s := gocron.NewScheduler(loc)
	s.SetMaxConcurrentJobs(5, gocron.RescheduleMode)

	instance = &Scheduler{
		cron: s,
		cfg:  cfg,
	}

	return instance
}

// Get 获取调度器实例
func Get() *Scheduler {
	return instance
}

// SetBot 设置 Bot 实例（用于发送消息）
func (s *Scheduler) SetBot(bot *tele.Bot) {
	s.bot = bot
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info().Msg("启动定时任务调度器")

	// 注册定时任务
	s.registerJobs()

	// 异步启动
	s.cron.StartAsync()
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() {
	cfg := s.cfg.Scheduler

	// 领奖过期清扫
	if cfg.SweepExpired {
		s.cron.Every(cfg.SweepMinutes).Minutes().Do(s.sweepExpired)
		logger.Info().Int("minutes", cfg.SweepMinutes).Msg("已注册: 领奖过期清扫任务")
	}
}

// sweepExpired 清扫超过领奖期限的中奖记录
// /winners 和 /claim 前也会各自做一次按需清扫，这里兜底
func (s *Scheduler) sweepExpired() {
	logger.Info().Msg("执行定时任务: 领奖过期清扫")

	distSvc := service.NewDistributionService(nil)
	swept, err := distSvc.SweepExpired()
	if err != nil {
		logger.Error().Err(err).Msg("领奖过期清扫失败")
		return
	}

	logger.Info().Int64("swept", swept).Msg("领奖过期清扫完成")

	// 向 Owner 发送报告
	if s.bot != nil && s.cfg.Owner != 0 && swept > 0 {
		chat := &tele.Chat{ID: s.cfg.Owner}
		s.bot.Send(chat, fmt.Sprintf("🧹 本轮清扫了 %d 条过期未领取的中奖记录", swept))
	}
}

// RunNow 立即执行指定任务（用于调试）
func (s *Scheduler) RunNow(taskName string) error {
	switch taskName {
	case "sweep":
		s.sweepExpired()
	default:
		logger.Warn().Str("task", taskName).Msg("未知任务")
	}
	return nil
}
