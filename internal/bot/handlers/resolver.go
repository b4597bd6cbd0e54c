// Package handlers 参与资格的 Telegram 查询实现
package handlers

import (
	tele "gopkg.in/telebot.v3"
)

// telegramResolver 通过 Telegram API 查询参与资格
type telegramResolver struct {
	bot *tele.Bot
}

// HasAvatar 查询用户是否设置了头像
func (r *telegramResolver) HasAvatar(tg int64) (bool, error) {
	photos, err := r.bot.ProfilePhotosOf(&tele.User{ID: tg})
	if err != nil {
		return false, err
	}
	return len(photos) > 0, nil
}

// HasUsername 查询用户是否设置了用户名
func (r *telegramResolver) HasUsername(tg int64) (bool, error) {
	chat, err := r.bot.ChatByID(tg)
	if err != nil {
		return false, err
	}
	return chat.Username != "", nil
}

// IsChannelMember 查询用户是否在指定频道内
func (r *telegramResolver) IsChannelMember(channelID, tg int64) (bool, error) {
	member, err := r.bot.ChatMemberOf(&tele.Chat{ID: channelID}, &tele.User{ID: tg})
	if err != nil {
		return false, err
	}
	return member.Role != tele.Left && member.Role != tele.Kicked, nil
}
