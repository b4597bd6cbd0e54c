// Package handlers 抽奖命令处理器
package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/service"
	"github.com/smysle/sakura-lottery-go/pkg/utils"
)

const createUsage = "🎰 **创建抽奖**\n\n" +
	"用法: `/lottery <标题> <口令> <人数> <中奖数> [仓库] [auto|claim] [要求]`\n\n" +
	"要求为逗号分隔的组合: `avatar,username,member:<频道ID>,bots`\n\n" +
	"示例:\n" +
	"- `/lottery 周年庆 我要抽奖 100 5` - 基础抽奖\n" +
	"- `/lottery 年货节 抽 50 3 codes auto` - 从 codes 仓库发奖并自动私信\n" +
	"- `/lottery 粉丝福利 冲 200 10 gifts claim avatar,member:-1001234` - 带参与门槛"

// CreateLottery /lottery 创建抽奖活动
func CreateLottery(c tele.Context) error {
	args := c.Args()
	if len(args) < 4 {
		return c.Send(createUsage, tele.ModeMarkdown)
	}

	maxParticipants, err := strconv.Atoi(args[2])
	if err != nil {
		return c.Send("❌ 无效的人数上限")
	}
	winnerCount, err := strconv.Atoi(args[3])
	if err != nil {
		return c.Send("❌ 无效的中奖人数")
	}

	req := &service.CreateRequest{
		ChatID:          c.Chat().ID,
		Title:           args[0],
		Keyword:         args[1],
		MaxParticipants: maxParticipants,
		WinnerCount:     winnerCount,
		CreatorTG:       c.Sender().ID,
		CreatorName:     utils.DisplayName(c.Sender().FirstName, c.Sender().LastName),
	}

	// 可选参数按内容识别：模式、要求列表，其余视为仓库名
	for _, arg := range args[4:] {
		switch {
		case arg == models.ModeAutoSend || arg == models.ModeClaim:
			req.Mode = arg
		case parseRequirements(arg, req):
		default:
			req.Warehouse = arg
		}
	}

	lottery, err := lotterySvc.Create(req)
	if err != nil {
		return c.Send(createErrorText(err))
	}

	text := fmt.Sprintf(
		"🎰 **%s**\n\n"+
			"🔑 参与口令: `%s`\n"+
			"👥 人数上限: %d\n"+
			"🎁 中奖人数: %d\n"+
			"📦 分发模式: %s\n"+
			"⏰ 领奖期限: %s\n\n"+
			"发送口令即可参与！满员自动开奖，管理员也可 /draw 手动开奖",
		lottery.Title,
		lottery.Keyword,
		lottery.MaxParticipants,
		lottery.WinnerCount,
		modeText(lottery.Mode),
		utils.FormatDuration(lottery.ClaimTimeout),
	)
	return c.Send(text, tele.ModeMarkdown)
}

// parseRequirements 解析参与要求列表
// 返回是否识别为要求参数
func parseRequirements(arg string, req *service.CreateRequest) bool {
	matched := false
	for _, part := range strings.Split(arg, ",") {
		switch {
		case part == "avatar":
			req.NeedAvatar = true
			matched = true
		case part == "username":
			req.NeedUsername = true
			matched = true
		case part == "bots":
			req.AllowBots = true
			matched = true
		case strings.HasPrefix(part, "member:"):
			if id, err := strconv.ParseInt(strings.TrimPrefix(part, "member:"), 10, 64); err == nil {
				req.RequiredChannel = id
				matched = true
			}
		}
	}
	return matched
}

// createErrorText 创建失败的提示文案
func createErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrLotteryDisabled):
		return "❌ 抽奖功能已关闭"
	case errors.Is(err, service.ErrLotteryExists):
		return "❌ 本群已有进行中的抽奖，请先 /draw 开奖或 /dellottery 删除"
	case errors.Is(err, service.ErrInvalidTitle),
		errors.Is(err, service.ErrInvalidKeyword),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidWinners),
		errors.Is(err, service.ErrInvalidMode):
		return "❌ " + err.Error()
	default:
		return "❌ 创建失败: " + err.Error()
	}
}

// LotteryInfo /lotteryinfo 查看当前抽奖
func LotteryInfo(c tele.Context) error {
	lottery, err := lotterySvc.GetActive(c.Chat().ID)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	if lottery == nil {
		return c.Send("📭 本群当前没有进行中的抽奖")
	}

	count, _ := admissionSvc.Count(lottery.ID)

	var requirements []string
	if lottery.NeedAvatar {
		requirements = append(requirements, "需要头像")
	}
	if lottery.NeedUsername {
		requirements = append(requirements, "需要用户名")
	}
	if lottery.RequiredChannel != 0 {
		requirements = append(requirements, "需要加入指定频道")
	}
	reqText := "无"
	if len(requirements) > 0 {
		reqText = strings.Join(requirements, "、")
	}

	text := fmt.Sprintf(
		"🎰 **%s**\n\n"+
			"🔑 参与口令: `%s`\n"+
			"👥 当前进度: %d / %d\n"+
			"🎁 中奖人数: %d\n"+
			"📦 分发模式: %s\n"+
			"📋 参与要求: %s\n"+
			"👤 发起人: %s\n"+
			"🕐 创建时间: %s",
		lottery.Title,
		lottery.Keyword,
		count, lottery.MaxParticipants,
		lottery.WinnerCount,
		modeText(lottery.Mode),
		reqText,
		lottery.CreatorName,
		utils.FormatTimeCST(lottery.CreatedAt, "2006-01-02 15:04"),
	)
	return c.Send(text, tele.ModeMarkdown)
}

// Participants /participants 查看参与者名单
func Participants(c tele.Context) error {
	lottery, err := lotterySvc.GetActive(c.Chat().ID)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	if lottery == nil {
		return c.Send("📭 本群当前没有进行中的抽奖")
	}

	list, err := admissionSvc.Participants(lottery.ID)
	if err != nil {
		return c.Send("❌ 获取参与者失败")
	}
	if len(list) == 0 {
		return c.Send("📭 还没有人参与")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 **%s** 参与名单 (%d/%d)\n\n", lottery.Title, len(list), lottery.MaxParticipants))
	for i, p := range list {
		sb.WriteString(fmt.Sprintf("%d. [%s](tg://user?id=%d)\n", i+1, p.Name, p.TG))
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}

// DrawNow /draw 手动开奖
func DrawNow(c tele.Context) error {
	lottery, err := lotterySvc.GetActive(c.Chat().ID)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	if lottery == nil {
		return c.Send("📭 本群当前没有进行中的抽奖")
	}

	result, err := drawSvc.Draw(lottery.ID)
	if errors.Is(err, service.ErrAlreadyDrawn) {
		return c.Send("❌ 该抽奖已开过奖")
	}
	if err != nil {
		return c.Send("❌ 开奖失败: " + err.Error())
	}

	return c.Send(drawResultText(result), tele.ModeMarkdown)
}

// Winners /winners 查看中奖名单（先做过期清扫）
func Winners(c tele.Context) error {
	lottery, err := lotterySvc.GetLatest(c.Chat().ID)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	if lottery == nil {
		return c.Send("📭 本群还没有抽奖记录")
	}

	records, err := distSvc.ListWinners(lottery.ID)
	if err != nil {
		return c.Send("❌ 获取中奖记录失败")
	}
	if len(records) == 0 {
		return c.Send("📭 该抽奖还没有中奖记录")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 **%s** 中奖名单\n\n", lottery.Title))
	for i, r := range records {
		sb.WriteString(fmt.Sprintf(
			"%d. [%s](tg://user?id=%d) - %s %s\n",
			i+1, r.Name, r.TG, r.PrizeText, statusMark(r.Status),
		))
	}
	if lottery.Mode == models.ModeClaim {
		sb.WriteString("\n💡 中奖者请私聊 Bot 发送 /claim 领取奖品")
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}

// DeleteLottery /dellottery 删除抽奖活动（级联删除参与者和中奖记录）
func DeleteLottery(c tele.Context) error {
	lottery, err := lotterySvc.GetActive(c.Chat().ID)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	if lottery == nil {
		if lottery, err = lotterySvc.GetLatest(c.Chat().ID); err != nil || lottery == nil {
			return c.Send("📭 本群没有可删除的抽奖")
		}
	}

	if err := lotterySvc.Delete(lottery.ID); err != nil {
		return c.Send("❌ 删除失败: " + err.Error())
	}
	return c.Send(fmt.Sprintf("🗑 抽奖 **%s** 已删除", lottery.Title), tele.ModeMarkdown)
}

// Join /join 口令参与
func Join(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("用法: `/join <口令>`", tele.ModeMarkdown)
	}

	lottery, err := lotterySvc.ActiveByKeyword(c.Chat().ID, strings.Join(args, " "))
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	if lottery == nil {
		return c.Send("❌ 口令不对，或本群没有进行中的抽奖")
	}

	return joinLottery(c, lottery)
}

// OnText 群消息口令匹配
// 非口令消息静默放过，避免打扰正常聊天
func OnText(c tele.Context) error {
	if c.Chat().Type != tele.ChatGroup && c.Chat().Type != tele.ChatSuperGroup {
		return nil
	}

	lottery, err := lotterySvc.ActiveByKeyword(c.Chat().ID, c.Text())
	if err != nil || lottery == nil {
		return nil
	}

	return joinLottery(c, lottery)
}

// joinLottery 执行参与并回复结果，满员时公示开奖结果
func joinLottery(c tele.Context, lottery *models.Lottery) error {
	sender := c.Sender()
	result, err := admissionSvc.Join(lottery.ID, &service.JoinRequest{
		TG:       sender.ID,
		Username: sender.Username,
		Name:     utils.DisplayName(sender.FirstName, sender.LastName),
		IsBot:    sender.IsBot,
	})
	if err != nil {
		return c.Reply(joinErrorText(err))
	}

	if err := c.Reply(fmt.Sprintf(
		"✅ 参与成功！当前 %d / %d 人", result.Count, lottery.MaxParticipants,
	)); err != nil {
		return err
	}

	// 本次参与触发了满员开奖，向群内公示
	if result.Draw != nil {
		return c.Send(drawResultText(result.Draw), tele.ModeMarkdown)
	}
	return nil
}

// joinErrorText 参与失败的提示文案，区分每种拒绝原因
func joinErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrLotteryClosed):
		return "❌ 该抽奖已开奖"
	case errors.Is(err, service.ErrLotteryFull):
		return "❌ 参与人数已满"
	case errors.Is(err, service.ErrAlreadyJoined):
		return "❌ 您已参与过该抽奖"
	case errors.Is(err, service.ErrBotNotAllowed):
		return "❌ 机器人不能参与抽奖"
	case errors.Is(err, service.ErrNeedAvatar):
		return "❌ 参与前请先设置头像"
	case errors.Is(err, service.ErrNeedUsername):
		return "❌ 参与前请先设置用户名"
	case errors.Is(err, service.ErrNotChannelMember):
		return "❌ 参与前请先加入指定频道"
	default:
		return "❌ 参与失败，请稍后重试"
	}
}

// drawResultText 格式化开奖公示
func drawResultText(result *service.DrawResult) string {
	if result.Empty() {
		return fmt.Sprintf("🎰 **%s** 开奖啦！\n\n😢 无人参与，本场流局", result.Lottery.Title)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"🎰 **%s** 开奖啦！\n\n👥 参与人数: %d\n🏆 中奖名单:\n\n",
		result.Lottery.Title, result.ParticipantCount,
	))
	for i, w := range result.Winners {
		sb.WriteString(fmt.Sprintf("%d. [%s](tg://user?id=%d)\n", i+1, w.Name, w.TG))
	}

	if result.Lottery.Mode == models.ModeClaim {
		sb.WriteString(fmt.Sprintf(
			"\n💡 中奖者请在 %s 内私聊 Bot 发送 /claim 领取奖品",
			utils.FormatDuration(result.Lottery.ClaimTimeout),
		))
	} else {
		sb.WriteString("\n📬 奖品已通过私信发送，未收到的请私聊 Bot 发送 /claim")
	}
	return sb.String()
}

// modeText 分发模式显示文案
func modeText(mode string) string {
	if mode == models.ModeAutoSend {
		return "自动私信发奖"
	}
	return "私聊 /claim 领取"
}

// statusMark 中奖记录状态标记
func statusMark(status string) string {
	switch status {
	case models.WinnerStatusSent:
		return "✅"
	case models.WinnerStatusExpired:
		return "⏰ 已过期"
	default:
		return "⏳ 待领取"
	}
}
