// Package utils 工具函数
package utils

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeKeyword 规范化抽奖口令（去首尾空白）
func NormalizeKeyword(s string) string {
	return strings.TrimSpace(s)
}

// DisplayName 拼接用户显示名称
func DisplayName(firstName, lastName string) string {
	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		return "匿名用户"
	}
	return name
}

// FormatDuration 格式化时长显示
func FormatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		result := fmt.Sprintf("%d天", days)
		if hours > 0 {
			result += fmt.Sprintf("%d小时", hours)
		}
		return result
	case hours > 0:
		if minutes > 0 {
			return fmt.Sprintf("%d小时%d分钟", hours, minutes)
		}
		return fmt.Sprintf("%d小时", hours)
	default:
		return fmt.Sprintf("%d分钟", minutes)
	}
}

// TimeNowCST 获取当前北京时间
func TimeNowCST() time.Time {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	return time.Now().In(loc)
}

// FormatTimeCST 格式化时间为北京时间字符串
func FormatTimeCST(t time.Time, layout string) string {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	return t.In(loc).Format(layout)
}

// IsExpired 判断时间是否已过期
func IsExpired(expiryTime time.Time) bool {
	return time.Now().After(expiryTime)
}
