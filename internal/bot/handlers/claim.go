// Package handlers 领奖处理器
package handlers

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/service"
)

// Start /start 帮助信息
func Start(c tele.Context) error {
	return c.Send(
		"🌸 **抽奖机器人**\n\n"+
			"群内发送抽奖口令即可参与，满员自动开奖。\n\n"+
			"常用命令:\n"+
			"- /lotteryinfo - 查看当前抽奖\n"+
			"- /join <口令> - 口令参与\n"+
			"- /claim - [私聊] 领取中奖奖品",
		tele.ModeMarkdown,
	)
}

// Claim /claim 私聊领奖
// 领取前先做一次过期清扫，超过领奖期限的记录不能再领
func Claim(c tele.Context) error {
	claimed, err := distSvc.ClaimAll(c.Sender().ID)
	if errors.Is(err, service.ErrNothingToClaim) {
		return c.Send("📭 您没有待领取的奖品")
	}
	if err != nil {
		return c.Send("❌ 领取失败，请稍后重试")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎉 恭喜！领取了 %d 份奖品:\n\n", len(claimed)))
	for i, r := range claimed {
		sb.WriteString(fmt.Sprintf("%d. %s\n    凭证: `%s`\n", i+1, r.PrizeText, r.ClaimCode))
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}
