// Package middleware Bot 中间件
package middleware

import (
	"runtime/debug"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

// Logger 日志中间件
func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil {
				logger.Debug().
					Int64("user_id", user.ID).
					Str("username", user.Username).
					Str("text", c.Text()).
					Msg("收到消息")
			}
			return next(c)
		}
	}
}

// Recover 恢复中间件
func Recover() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Interface("panic", r).
						Str("stack", string(debug.Stack())).
						Msg("处理器 panic")

					c.Send("❌ 处理请求时发生错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}

// AdminOnly 管理员权限中间件
func AdminOnly() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			cfg := config.Get()
			if cfg == nil {
				return c.Send("❌ 配置加载失败")
			}

			user := c.Sender()
			if user == nil {
				return c.Send("❌ 无法获取用户信息")
			}

			if !cfg.IsAdmin(user.ID) {
				return c.Send("❌ 您没有权限执行此操作")
			}

			return next(c)
		}
	}
}

// GroupOnly 群组中间件
func GroupOnly() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || (chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup) {
				return c.Send("❌ 此命令仅可在群组中使用")
			}
			return next(c)
		}
	}
}

// PrivateOnly 私聊中间件
func PrivateOnly() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || chat.Type != tele.ChatPrivate {
				return c.Send("❌ 此命令仅可在私聊中使用")
			}
			return next(c)
		}
	}
}

// AntiFlood 防刷屏中间件
// 口令刷屏时静默丢弃，避免参与高峰把群刷爆
func AntiFlood(maxPerSecond int) tele.MiddlewareFunc {
	var (
		mu       sync.RWMutex
		lastCall = make(map[int64]time.Time)
	)

	interval := time.Second / time.Duration(maxPerSecond)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			now := time.Now()

			mu.RLock()
			last, exists := lastCall[user.ID]
			mu.RUnlock()

			if exists && now.Sub(last) < interval {
				// 太快了，忽略
				return nil
			}

			mu.Lock()
			lastCall[user.ID] = now
			mu.Unlock()

			return next(c)
		}
	}
}
