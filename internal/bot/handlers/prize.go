// Package handlers 奖品仓库命令处理器
package handlers

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/sakura-lottery-go/internal/service"
)

// PrizeAdd /prizeadd 向仓库追加奖品
// 多个奖品用 | 分隔，每条默认 1 个库存
func PrizeAdd(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Send(
			"📦 **奖品入库**\n\n"+
				"用法: `/prizeadd <仓库> <奖品>`\n"+
				"多个奖品用 `|` 分隔\n\n"+
				"示例:\n"+
				"- `/prizeadd codes 激活码ABC123`\n"+
				"- `/prizeadd gifts 一等奖:键盘 | 二等奖:鼠标 | 三等奖:贴纸`",
			tele.ModeMarkdown,
		)
	}

	warehouse := args[0]
	var texts []string
	for _, part := range strings.Split(strings.Join(args[1:], " "), "|") {
		if text := strings.TrimSpace(part); text != "" {
			texts = append(texts, text)
		}
	}

	if err := prizeSvc.AddPrizes(warehouse, texts); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidWarehouse), errors.Is(err, service.ErrNoPrizeText):
			return c.Send("❌ " + err.Error())
		default:
			return c.Send("❌ 入库失败: " + err.Error())
		}
	}

	return c.Send(fmt.Sprintf("✅ 已向仓库 `%s` 添加 %d 条奖品", warehouse, len(texts)), tele.ModeMarkdown)
}

// PrizeStock /prizestock 查看库存
// 不带参数列出全部仓库统计，带仓库名列出条目明细
func PrizeStock(c tele.Context) error {
	args := c.Args()

	if len(args) == 0 {
		stats, err := prizeSvc.Warehouses()
		if err != nil {
			return c.Send("❌ 查询库存失败")
		}
		if len(stats) == 0 {
			return c.Send("📭 仓库是空的")
		}

		var sb strings.Builder
		sb.WriteString("📦 **仓库概览**\n\n")
		for _, s := range stats {
			sb.WriteString(fmt.Sprintf("- `%s`: %d 条奖品，剩余库存 %d\n", s.Warehouse, s.Items, s.Stock))
		}
		sb.WriteString("\n发送 `/prizestock <仓库>` 查看明细")
		return c.Send(sb.String(), tele.ModeMarkdown)
	}

	warehouse := args[0]
	items, err := prizeSvc.ListStock(warehouse)
	if err != nil {
		return c.Send("❌ 查询库存失败")
	}
	if len(items) == 0 {
		return c.Send(fmt.Sprintf("📭 仓库 `%s` 是空的", warehouse), tele.ModeMarkdown)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 仓库 `%s` 明细\n\n", warehouse))
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s × %d\n", i+1, item.Text, item.Stock))
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}

// PrizeClear /prizeclear 清空仓库
func PrizeClear(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("用法: `/prizeclear <仓库>` 或 `/prizeclear all`", tele.ModeMarkdown)
	}

	var (
		deleted int64
		err     error
	)
	if args[0] == "all" {
		deleted, err = prizeSvc.ClearAll()
	} else {
		deleted, err = prizeSvc.Clear(args[0])
	}
	if err != nil {
		return c.Send("❌ 清空失败: " + err.Error())
	}

	return c.Send(fmt.Sprintf("🗑 已清除 %d 条奖品", deleted))
}
