// Package bot Telegram Bot 核心
package bot

import (
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/bot/handlers"
	"github.com/smysle/sakura-lottery-go/internal/bot/middleware"
	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// Bot Telegram Bot 实例
type Bot struct {
	*tele.Bot
	cfg *config.Config
}

var instance *Bot

// New 创建新的 Bot 实例
func New(cfg *config.Config) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error().Err(err).Msg("Bot 错误")
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		Bot: b,
		cfg: cfg,
	}

	// 组装服务层（资格查询和中奖私信依赖 Bot 实例）
	handlers.Init(b)

	// 注册中间件
	bot.registerMiddleware()

	// 注册处理器
	bot.registerHandlers()

	// 设置命令列表
	bot.setCommands()

	instance = bot
	return bot, nil
}

// Get 获取 Bot 单例
func Get() *Bot {
	return instance
}

// registerMiddleware 注册中间件
func (b *Bot) registerMiddleware() {
	// 日志中间件
	b.Use(middleware.Logger())

	// 恢复中间件
	b.Use(middleware.Recover())
}

// registerHandlers 注册所有处理器
func (b *Bot) registerHandlers() {
	// 用户命令
	b.Handle("/start", handlers.Start)

	// 群组命令
	groupCmds := b.Group()
	groupCmds.Use(middleware.GroupOnly())

	groupCmds.Handle("/lotteryinfo", handlers.LotteryInfo)
	groupCmds.Handle("/join", handlers.Join)

	// 管理员命令 (需要权限验证)
	adminGroup := b.Group()
	adminGroup.Use(middleware.GroupOnly())
	adminGroup.Use(middleware.AdminOnly())

	adminGroup.Handle("/lottery", handlers.CreateLottery)
	adminGroup.Handle("/participants", handlers.Participants)
	adminGroup.Handle("/draw", handlers.DrawNow)
	adminGroup.Handle("/winners", handlers.Winners)
	adminGroup.Handle("/dellottery", handlers.DeleteLottery)

	// 奖品仓库管理命令
	adminGroup.Handle("/prizeadd", handlers.PrizeAdd)
	adminGroup.Handle("/prizestock", handlers.PrizeStock)
	adminGroup.Handle("/prizeclear", handlers.PrizeClear)

	// 私聊命令
	privateGroup := b.Group()
	privateGroup.Use(middleware.PrivateOnly())

	privateGroup.Handle("/claim", handlers.Claim)

	// 口令参与（限速防刷屏）
	textGroup := b.Group()
	textGroup.Use(middleware.AntiFlood(2))
	textGroup.Handle(tele.OnText, handlers.OnText)
}

// setCommands 设置命令列表
func (b *Bot) setCommands() {
	// 用户命令
	userCmds := []tele.Command{
		{Text: "start", Description: "[私聊] 查看帮助"},
		{Text: "lotteryinfo", Description: "[用户] 查看当前抽奖"},
		{Text: "join", Description: "[用户] 口令参与抽奖"},
		{Text: "claim", Description: "[私聊] 领取中奖奖品"},
	}

	// 管理员命令
	adminCmds := append(userCmds, []tele.Command{
		{Text: "lottery", Description: "创建抽奖 [管理]"},
		{Text: "participants", Description: "查看参与名单 [管理]"},
		{Text: "draw", Description: "手动开奖 [管理]"},
		{Text: "winners", Description: "查看中奖名单 [管理]"},
		{Text: "dellottery", Description: "删除抽奖 [管理]"},
		{Text: "prizeadd", Description: "奖品入库 [管理]"},
		{Text: "prizestock", Description: "查看库存 [管理]"},
		{Text: "prizeclear", Description: "清空仓库 [管理]"},
	}...)

	// 为不同用户设置不同命令
	b.SetCommands(userCmds)

	// 为管理员设置专属命令列表
	for _, adminID := range b.cfg.Admins {
		b.SetCommands(adminCmds, tele.CommandScope{
			Type:   tele.CommandScopeChat,
			ChatID: adminID,
		})
	}

	// 为 Owner 设置专属命令列表
	if b.cfg.Owner != 0 {
		b.SetCommands(adminCmds, tele.CommandScope{
			Type:   tele.CommandScopeChat,
			ChatID: b.cfg.Owner,
		})
	}
}

// Run 运行 Bot
func (b *Bot) Run() {
	logger.Info().Str("bot", b.cfg.BotName).Msg("Bot 启动中...")
	b.Start()
}

// Stop 停止 Bot
func (b *Bot) Stop() {
	logger.Info().Msg("Bot 停止中...")
	b.Bot.Stop()
}
