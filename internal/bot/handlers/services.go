// Package handlers Bot 命令处理器
package handlers

import (
	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/service"
)

var (
	lotterySvc   *service.LotteryService
	admissionSvc *service.AdmissionService
	drawSvc      *service.DrawService
	distSvc      *service.DistributionService
	prizeSvc     *service.PrizeService
)

// Init 组装服务层
// 资格查询和中奖私信依赖 Bot 实例，必须在 Bot 创建后调用
func Init(b *tele.Bot) {
	resolver := &telegramResolver{bot: b}
	notifier := &telegramNotifier{bot: b}

	distSvc = service.NewDistributionService(notifier)
	drawSvc = service.NewDrawService(distSvc)
	admissionSvc = service.NewAdmissionService(resolver, drawSvc)
	lotterySvc = service.NewLotteryService()
	prizeSvc = service.NewPrizeService()
}
