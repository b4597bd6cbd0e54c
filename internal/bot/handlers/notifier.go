// Package handlers 中奖私信发送
package handlers

import (
	tele "gopkg.in/telebot.v3"
)

// telegramNotifier 通过 Bot 私信中奖者
type telegramNotifier struct {
	bot *tele.Bot
}

// SendDirectMessage 给用户发送私信
// 用户未与 Bot 对话过时发送会失败，由调用方决定降级策略
func (n *telegramNotifier) SendDirectMessage(tg int64, text string) error {
	_, err := n.bot.Send(&tele.User{ID: tg}, text, tele.ModeMarkdown)
	return err
}
